// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidSearchPathEntry is the sentinel error wrapped by InvalidSearchPathEntryError.
	ErrInvalidSearchPathEntry = errors.New("invalid search path entry")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// SearchPathEntry is a user-added search path for one module, persisted
	// in the config file. The field set mirrors a descriptor search path but
	// is defined locally to avoid coupling config to pkg/moddesc.
	SearchPathEntry struct {
		// Module is the full name of the module the entry applies to.
		Module string `json:"module" mapstructure:"module"`
		// Type selects the search-path handler: directory, env or registry.
		Type string `json:"type" mapstructure:"type"`
		// Key is interpreted by the handler.
		Key string `json:"key" mapstructure:"key"`
		// SubFolder is joined onto the resolved candidate.
		SubFolder string `json:"sub_folder,omitempty" mapstructure:"sub_folder"`
		// Priority orders search paths; higher values win.
		Priority int `json:"priority,omitempty" mapstructure:"priority"`
	}

	// InvalidSearchPathEntryError is returned when a SearchPathEntry has
	// invalid fields. It wraps ErrInvalidSearchPathEntry for errors.Is.
	InvalidSearchPathEntryError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields. It
	// wraps ErrInvalidConfig and collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ModuleRoots are the directories scanned for module descriptors.
		// Empty means the default modules directory (~/.envmod/modules).
		ModuleRoots []string `json:"module_roots" mapstructure:"module_roots"`
		// SearchPaths are user-added module search paths; they compete with
		// descriptor defaults purely on priority.
		SearchPaths []SearchPathEntry `json:"search_paths" mapstructure:"search_paths"`
		// RegistryFile is the TOML file backing registry-type search paths.
		// Empty means <configdir>/registry.toml.
		RegistryFile string `json:"registry_file,omitempty" mapstructure:"registry_file"`
		// SessionFile is where session state persists between invocations.
		// Empty means ~/.envmod/session.toml.
		SessionFile string `json:"session_file,omitempty" mapstructure:"session_file"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidSearchPathEntryError.
func (e *InvalidSearchPathEntryError) Error() string {
	return fmt.Sprintf("invalid search path entry: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidSearchPathEntry for errors.Is compatibility.
func (e *InvalidSearchPathEntryError) Unwrap() error { return ErrInvalidSearchPathEntry }

// IsValid returns whether the SearchPathEntry has valid fields. Module,
// Type and Key must be non-blank; SubFolder and Priority are free-form.
func (e SearchPathEntry) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(e.Module) == "" {
		errs = append(errs, fmt.Errorf("module must be non-empty"))
	}
	if strings.TrimSpace(e.Type) == "" {
		errs = append(errs, fmt.Errorf("type must be non-empty"))
	}
	if strings.TrimSpace(e.Key) == "" {
		errs = append(errs, fmt.Errorf("key must be non-empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSearchPathEntryError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the Config has valid fields. It delegates to
// each SearchPaths entry and to UI.ColorScheme.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, entry := range c.SearchPaths {
		if valid, fieldErrs := entry.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ModuleRoots: []string{},
		SearchPaths: []SearchPathEntry{},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
