// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"envmod-cli/internal/config"
	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

var createCategory string

var createCmd = &cobra.Command{
	Use:   "create <full-name>",
	Short: "Scaffold a new module descriptor",
	Long: `Write a minimal descriptor file for the given full module name into the
first configured module root. The name must satisfy the module name
grammar: Name[-Version][-Architecture][-AdditionalOptions], e.g.
NotepadPlusPlus-8_5-x64.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fullName := args[0]
		if _, err := modname.Parse(fullName); err != nil {
			return fail(cmd, err)
		}

		cfg, err := config.Load()
		if err != nil {
			return fail(cmd, err)
		}
		roots, err := cfg.EffectiveModuleRoots()
		if err != nil {
			return fail(cmd, err)
		}
		root := roots[0]
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fail(cmd, fmt.Errorf("failed to create module root %s: %w", root, err))
		}

		path := filepath.Join(root, fullName+moddesc.DescriptorSuffix)
		if _, err := os.Stat(path); err == nil {
			return fail(cmd, fmt.Errorf("descriptor already exists: %s", path))
		}

		if err := os.WriteFile(path, []byte(descriptorTemplate(fullName)), 0o644); err != nil {
			return fail(cmd, fmt.Errorf("failed to write descriptor: %w", err))
		}

		fmt.Println(SuccessStyle.Render("Created ") + path)
		fmt.Println(SubtitleStyle.Render("Edit the descriptor, then run 'envmod rescan'."))
		return nil
	},
}

// descriptorTemplate produces the scaffold content for a new descriptor.
func descriptorTemplate(fullName string) string {
	category := ""
	if createCategory != "" {
		category = fmt.Sprintf("category: %q\n", createCategory)
	}
	return fmt.Sprintf(`// Module descriptor for %s.

module_type: "default"
dependencies: [{name: "EnvironmentModuleCore"}]
%s
default_search_paths: [
	// {type: "directory", key: "/opt/%s", priority: 10},
	// {type: "env", key: "TOOL_ROOT", priority: 20},
]

required_items: [
	// {type: "file", value: "bin/tool"},
]

path_edits: [
	// {variable: "PATH", mode: "prepend", values: ["bin"], key: "root"},
]

aliases: []
functions: []
`, fullName, category, fullName)
}

func init() {
	createCmd.Flags().StringVar(&createCategory, "category", "", "category metadata for the new module")
}
