// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unloadForce bool

var unloadCmd = &cobra.Command{
	Use:   "unload <module>",
	Short: "Dismount a module from the current session",
	Long: `Dismount a module: reverse its environment edits in reverse application
order, remove its aliases and functions, and release its dependencies.
Dependencies whose last reference goes away are dismounted too.

Modules that were only pulled in as dependencies refuse a direct unload;
--force overrides that and also dismounts regardless of remaining
references.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}

		if err := a.sess.Unload(args[0], unloadForce); err != nil {
			return fail(cmd, err)
		}
		if err := a.saveSession(); err != nil {
			return fail(cmd, err)
		}

		fmt.Println(SuccessStyle.Render("Unloaded ") + ModuleStyle.Render(args[0]))
		return nil
	},
}

func init() {
	unloadCmd.Flags().BoolVarP(&unloadForce, "force", "f", false, "dismount even when loaded as a dependency or still referenced")
}
