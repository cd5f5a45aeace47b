// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for envmod.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"envmod-cli/internal/config"
	"envmod-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "envmod",
		Short: "A session-scoped environment module manager",
		Long: TitleStyle.Render("envmod") + SubtitleStyle.Render(" - a session-scoped environment module manager") + `

envmod mounts third-party programs into your shell session: loading a
module edits environment variables, installs aliases and shell functions,
and pulls in the module's dependencies. Unloading reverses exactly what
was applied, down to the inserted substring.

Modules are described in '<FullName>.envmod.cue' descriptor files placed
under the configured module roots. Partial names resolve through
synthesized shorthand modules, so 'envmod load NotepadPlusPlus' picks the
best installed version for your architecture.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Drop a descriptor under a module root (see 'envmod create')
  2. Refresh the descriptor index with: envmod rescan
  3. Mount the module with: envmod load <name>

` + SubtitleStyle.Render("Examples:") + `
  envmod list --all           List every known module
  envmod load NotepadPlusPlus Mount the best matching instance
  envmod unload NotepadPlusPlus-x64
  envmod switch Go-1_21 Go-1_22
  envmod explain conflict     Explain a failure category`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/envmod/config.cue)")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(unloadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(searchPathCmd)
	rootCmd.AddCommand(paramCmd)
	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(explainCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads the config file and applies UI settings.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFileOverride(cfgFile)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}

	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their suggestions; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
