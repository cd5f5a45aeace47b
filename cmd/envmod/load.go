// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <module>",
	Short: "Mount a module into the current session",
	Long: `Mount a module: apply its environment edits, install its aliases and
shell functions, and load its dependencies recursively. Partial names
(bare name, name-arch, name-major) resolve to the best installed
instance for this machine.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}

		name := args[0]
		if err := a.sess.Load(cmd.Context(), name, true); err != nil {
			return fail(cmd, err)
		}
		if err := a.saveSession(); err != nil {
			return fail(cmd, err)
		}

		mod, _ := a.sess.Get(name)
		loadedAs := name
		if mod != nil {
			loadedAs = mod.FullName
		}
		fmt.Println(SuccessStyle.Render("Loaded ") + ModuleStyle.Render(loadedAs))
		return nil
	},
}
