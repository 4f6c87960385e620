package main

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"github.com/clayne/resym/pkg/backend"
	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/reconstruct"
)

var (
	dumpFlavor      string
	dumpNoHeader    bool
	dumpNoDeps      bool
	dumpNoAccess    bool
	dumpLineNumbers bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.pdb> <type-name|type-index>",
	Short: "Reconstruct one type and its dependencies",
	Args:  cobra.ExactArgs(2),
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

		var command backend.Command
		if index, ok := parseTypeIndex(args[1]); ok {
			command = backend.ReconstructTypeByIndex{
				Slot:    backend.SlotMain,
				Index:   index,
				Options: opts,
			}
		} else {
			command = backend.ReconstructTypeByName{
				Slot:    backend.SlotMain,
				Name:    args[1],
				Options: opts,
			}
		}
		if err := b.Send(command); err != nil {
			return err
		}
		res, ok := b.WaitResult()
		if !ok {
			return fmt.Errorf("backend closed before reconstruction finished")
		}
		rec, ok := res.(backend.ReconstructTypeResult)
		if !ok {
			return fmt.Errorf("unexpected result %T", res)
		}
		if rec.Err != nil {
			return rec.Err
		}

		if dumpLineNumbers || settings.PrintLineNumbers {
			printNumbered(rec.Text)
		} else {
			fmt.Print(rec.Text)
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFlavor, "flavor", "",
		"primitive type naming: portable, microsoft, or raw")
	dumpCmd.Flags().BoolVar(&dumpNoHeader, "no-header", false,
		"omit the provenance header")
	dumpCmd.Flags().BoolVar(&dumpNoDeps, "no-deps", false,
		"reconstruct only the requested type")
	dumpCmd.Flags().BoolVar(&dumpNoAccess, "no-access-specifiers", false,
		"omit public/protected/private labels")
	dumpCmd.Flags().BoolVarP(&dumpLineNumbers, "line-numbers", "n", false,
		"prefix output lines with line numbers")
	rootCmd.AddCommand(dumpCmd)
}

// dumpOptions merges the persisted settings with the flags set on the
// command line.
func dumpOptions(cmd *cobra.Command) (reconstruct.Options, error) {
	opts := settings.ReconstructOptions()
	if cmd.Flags().Changed("flavor") {
		flavor, err := reconstruct.ParseFlavor(dumpFlavor)
		if err != nil {
			return reconstruct.Options{}, err
		}
		opts.Flavor = flavor
	}
	if dumpNoHeader {
		opts.PrintHeader = false
	}
	if dumpNoDeps {
		opts.ReconstructDependencies = false
	}
	if dumpNoAccess {
		opts.PrintAccessSpecifiers = false
	}
	return opts, nil
}

// parseTypeIndex accepts a decimal or 0x-prefixed index argument.
func parseTypeIndex(arg string) (codeview.TypeIndex, bool) {
	base := 10
	digits := arg
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		base = 16
		digits = arg[2:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	index, err := safecast.Conv[uint32](v)
	if err != nil {
		return 0, false
	}
	return codeview.TypeIndex(index), true
}

func printNumbered(text string) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	width := len(strconv.Itoa(len(lines)))
	for i, line := range lines {
		fmt.Printf("%*d  %s\n", width, i+1, line)
	}
}
