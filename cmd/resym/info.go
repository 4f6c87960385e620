package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clayne/resym/pkg/pdb"
)

var infoCmd = &cobra.Command{
	Use:   "info <file.pdb>",
	Short: "Show container metadata and type statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := pdb.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Path:           %s\n", f.Path)
		fmt.Printf("Architecture:   %s\n", f.MachineName())
		if guid := f.GUID(); guid != "" {
			fmt.Printf("GUID:           %s\n", guid)
			fmt.Printf("Age:            %d\n", f.Age())
			fmt.Printf("Version:        %d\n", f.Version())
		}
		fmt.Printf("Type records:   %d\n", f.TypeCount())
		fmt.Printf("Complete types: %d\n", len(f.CompleteTypes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
