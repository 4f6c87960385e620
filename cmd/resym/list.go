package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clayne/resym/pkg/backend"
)

var (
	listCaseInsensitive bool
	listUseRegex        bool
	listJSON            bool
)

var listCmd = &cobra.Command{
	Use:   "list <file.pdb> [filter]",
	Short: "List the complete types declared in a PDB",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 2 {
			filter = args[1]
		}

		b := backend.New()
		defer b.Close()

		if err := loadSlot(b, backend.SlotMain, args[0]); err != nil {
			return err
		}
		if err := b.Send(backend.UpdateTypeFilter{
			Slot:            backend.SlotMain,
			Filter:          filter,
			CaseInsensitive: listCaseInsensitive || settings.SearchCaseInsensitive,
			UseRegex:        listUseRegex || settings.SearchUseRegex,
		}); err != nil {
			return err
		}
		res, ok := b.WaitResult()
		if !ok {
			return fmt.Errorf("backend closed before the type list arrived")
		}
		list, ok := res.(backend.FilteredTypesResult)
		if !ok {
			return fmt.Errorf("unexpected result %T", res)
		}
		if list.Err != nil {
			return list.Err
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list.Types)
		}
		for _, entry := range list.Types {
			fmt.Printf("%s\t0x%x\n", entry.Name, uint32(entry.Index))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listCaseInsensitive, "ignore-case", "i", false,
		"match the filter case-insensitively")
	listCmd.Flags().BoolVarP(&listUseRegex, "regex", "r", false,
		"treat the filter as a regular expression")
	listCmd.Flags().BoolVar(&listJSON, "json", false,
		"emit the list as JSON")
	rootCmd.AddCommand(listCmd)
}

// loadSlot loads a container into a backend slot and waits for the
// load to finish.
func loadSlot(b *backend.Backend, slot backend.PDBSlot, path string) error {
	if err := b.Send(backend.LoadPDB{Slot: slot, Path: path}); err != nil {
		return err
	}
	res, ok := b.WaitResult()
	if !ok {
		return fmt.Errorf("backend closed while loading %s", path)
	}
	load, ok := res.(backend.LoadPDBResult)
	if !ok {
		return fmt.Errorf("unexpected result %T", res)
	}
	return load.Err
}
