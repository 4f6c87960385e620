// Package config loads persisted resym settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/clayne/resym/pkg/reconstruct"
)

// Settings is the persisted configuration. Fields map one-to-one to
// the resym.toml keys.
type Settings struct {
	UseLightTheme           bool   `toml:"use_light_theme"`
	FontSize                int    `toml:"font_size"`
	SearchCaseInsensitive   bool   `toml:"search_case_insensitive"`
	SearchUseRegex          bool   `toml:"search_use_regex"`
	PrintHeader             bool   `toml:"print_header"`
	ReconstructDependencies bool   `toml:"reconstruct_dependencies"`
	PrintAccessSpecifiers   bool   `toml:"print_access_specifiers"`
	PrintLineNumbers        bool   `toml:"print_line_numbers"`
	PrimitiveTypesFlavor    string `toml:"primitive_types_flavor"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		FontSize:                14,
		PrintHeader:             true,
		ReconstructDependencies: true,
		PrintAccessSpecifiers:   true,
		PrimitiveTypesFlavor:    "portable",
	}
}

// DefaultPath returns the per-user settings location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "resym.toml"
	}
	return filepath.Join(dir, "resym", "resym.toml")
}

// Load reads settings from path. A missing file yields the defaults;
// a malformed file is an error.
func Load(path string) (Settings, error) {
	s := Default()
	// Unknown keys are tolerated so older binaries can read newer
	// files.
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, creating parent directories.
func Save(path string, s Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("settings %s: %w", path, err)
	}
	return nil
}

// ReconstructOptions converts the persisted flags into reconstruction
// options. An unknown flavor falls back to portable.
func (s Settings) ReconstructOptions() reconstruct.Options {
	flavor, err := reconstruct.ParseFlavor(s.PrimitiveTypesFlavor)
	if err != nil {
		flavor = reconstruct.FlavorPortable
	}
	return reconstruct.Options{
		Flavor:                  flavor,
		PrintHeader:             s.PrintHeader,
		ReconstructDependencies: s.ReconstructDependencies,
		PrintAccessSpecifiers:   s.PrintAccessSpecifiers,
	}
}
