// SPDX-License-Identifier: MPL-2.0

package config

var (
	// configDirOverride replaces the platform config directory when set.
	// Used by tests and the --config-dir flag.
	configDirOverride string

	// configFileOverride points Load at an explicit config file when set.
	configFileOverride string
)

// SetConfigDirOverride redirects ConfigDir to the given directory. Pass ""
// to restore platform resolution.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// SetConfigFileOverride makes Load read the given file instead of probing
// the config directory. Pass "" to restore probing.
func SetConfigFileOverride(path string) { configFileOverride = path }

// ResetOverrides clears all overrides. Tests call this in cleanup.
func ResetOverrides() {
	configDirOverride = ""
	configFileOverride = ""
}
