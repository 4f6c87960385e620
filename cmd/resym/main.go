// Command resym reconstructs C/C++ type definitions from PDB debug
// files and diffs them across two versions of a binary.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/clayne/resym/pkg/config"
	"github.com/clayne/resym/pkg/version"
)

var (
	flagVerbose      bool
	flagColor        string
	flagSettingsPath string

	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:           "resym",
	Short:         "Reconstruct and diff C/C++ types from PDB files",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		switch flagColor {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		case "auto":
			color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
		default:
			return fmt.Errorf("invalid --color value %q (want auto, on, or off)", flagColor)
		}

		path := flagSettingsPath
		if path == "" {
			path = config.DefaultPath()
		}
		s, err := config.Load(path)
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"colorize output: auto, on, or off")
	rootCmd.PersistentFlags().StringVar(&flagSettingsPath, "settings", "",
		"settings file (default: the per-user resym.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "resym:", err)
		os.Exit(1)
	}
}
