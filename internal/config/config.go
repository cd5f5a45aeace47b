// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"envmod-cli/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "envmod"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the envmod configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ModulesDir returns the default directory for installed module
// descriptors, ~/.envmod/modules on all platforms.
func ModulesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".envmod", "modules"), nil
}

// Load reads the configuration: defaults first, then the config file from
// the platform config directory (or the current directory as a fallback),
// validated against the embedded schema and merged into viper.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("module_roots", defaults.ModuleRoots)
	v.SetDefault("search_paths", defaults.SearchPaths)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	if configFileOverride != "" {
		if !fileExists(configFileOverride) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFileOverride).
				WithSuggestion("Verify the file path is correct").
				Wrap(fmt.Errorf("config file not found: %s", configFileOverride)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, configFileOverride); err != nil {
			return nil, wrapConfigError(configFileOverride, err)
		}
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		switch {
		case fileExists(cuePath):
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, wrapConfigError(cuePath, err)
			}
		case fileExists(ConfigFileName + "." + ConfigFileExt):
			localPath := ConfigFileName + "." + ConfigFileExt
			if err := loadCUEIntoViper(v, localPath); err != nil {
				return nil, wrapConfigError(localPath, err)
			}
		}
		// No config file found: defaults only, not an error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check the search_paths entries and ui settings").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, nil
}

func wrapConfigError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Run 'envmod explain config-load-failed' for details").
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into viper. Decoding goes through
// map[string]any (not a struct) because viper owns the default/override
// layering.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// EffectiveModuleRoots resolves the configured module roots, falling back
// to the default modules directory when none are configured.
func (c *Config) EffectiveModuleRoots() ([]string, error) {
	if len(c.ModuleRoots) > 0 {
		return c.ModuleRoots, nil
	}
	def, err := ModulesDir()
	if err != nil {
		return nil, err
	}
	return []string{def}, nil
}

// EffectiveRegistryFile resolves the registry file path, defaulting to
// registry.toml inside the config directory.
func (c *Config) EffectiveRegistryFile() (string, error) {
	if c.RegistryFile != "" {
		return c.RegistryFile, nil
	}
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "registry.toml"), nil
}

// EffectiveSessionFile resolves the session state path, defaulting to
// ~/.envmod/session.toml.
func (c *Config) EffectiveSessionFile() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".envmod", "session.toml"), nil
}

// SearchPathsFor returns the persisted user search paths for one module.
func (c *Config) SearchPathsFor(fullName string) []SearchPathEntry {
	var out []SearchPathEntry
	for _, entry := range c.SearchPaths {
		if entry.Module == fullName {
			out = append(out, entry)
		}
	}
	return out
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// Save writes the current configuration to the config file.
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// envmod configuration file\n\n")

	if len(cfg.ModuleRoots) > 0 {
		sb.WriteString("module_roots: [\n")
		for _, root := range cfg.ModuleRoots {
			sb.WriteString(fmt.Sprintf("\t%q,\n", root))
		}
		sb.WriteString("]\n")
	}

	if len(cfg.SearchPaths) > 0 {
		sb.WriteString("\nsearch_paths: [\n")
		for _, entry := range cfg.SearchPaths {
			sb.WriteString(fmt.Sprintf("\t{module: %q, type: %q, key: %q", entry.Module, entry.Type, entry.Key))
			if entry.SubFolder != "" {
				sb.WriteString(fmt.Sprintf(", sub_folder: %q", entry.SubFolder))
			}
			if entry.Priority != 0 {
				sb.WriteString(fmt.Sprintf(", priority: %d", entry.Priority))
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("]\n")
	}

	if cfg.RegistryFile != "" {
		sb.WriteString(fmt.Sprintf("\nregistry_file: %q\n", cfg.RegistryFile))
	}
	if cfg.SessionFile != "" {
		sb.WriteString(fmt.Sprintf("session_file: %q\n", cfg.SessionFile))
	}

	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tcolor_scheme: %q\n", cfg.UI.ColorScheme))
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
