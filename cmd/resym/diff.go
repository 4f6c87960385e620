package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clayne/resym/pkg/backend"
	"github.com/clayne/resym/pkg/diffing"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <old.pdb> <new.pdb> <type-name>",
	Short: "Diff one type between two PDBs",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := dumpOptions(cmd)
		if err != nil {
			return err
		}

		b := backend.New()
		defer b.Close()
		if err := loadSlot(b, backend.SlotMain, args[0]); err != nil {
			return err
		}
		if err := loadSlot(b, backend.SlotDiff, args[1]); err != nil {
			return err
		}

		if err := b.Send(backend.DiffTypeByName{
			From:    backend.SlotMain,
			To:      backend.SlotDiff,
			Name:    args[2],
			Options: opts,
		}); err != nil {
			return err
		}
		res, ok := b.WaitResult()
		if !ok {
			return fmt.Errorf("backend closed before the diff finished")
		}
		d, ok := res.(backend.DiffTypeResult)
		if !ok {
			return fmt.Errorf("unexpected result %T", res)
		}
		if d.Err != nil {
			return d.Err
		}

		if diffJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(d.Diff.Changes)
		}
		printDiff(d.Diff)
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&dumpFlavor, "flavor", "",
		"primitive type naming: portable, microsoft, or raw")
	diffCmd.Flags().BoolVar(&dumpNoDeps, "no-deps", false,
		"diff only the requested type")
	diffCmd.Flags().BoolVar(&dumpNoAccess, "no-access-specifiers", false,
		"omit public/protected/private labels")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false,
		"emit the change list as JSON")
	rootCmd.AddCommand(diffCmd)
}

var (
	diffRemoved  = color.New(color.FgRed)
	diffInserted = color.New(color.FgGreen)
)

// printDiff writes the merged rendering with unified-diff prefixes,
// colorized when the terminal supports it.
func printDiff(d diffing.Diff) {
	for _, c := range d.Changes {
		switch c.Kind {
		case diffing.Unchanged:
			fmt.Printf("  %s\n", c.OldText)
		case diffing.Removed:
			diffRemoved.Printf("- %s\n", c.OldText)
		case diffing.Inserted:
			diffInserted.Printf("+ %s\n", c.NewText)
		case diffing.Modified:
			diffRemoved.Printf("- %s\n", c.OldText)
			diffInserted.Printf("+ %s\n", c.NewText)
		}
	}
}
