// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch <loaded-module> <new-module>",
	Short: "Replace one loaded module with another",
	Long: `Unload one directly-loaded module and load another in a single step,
typically to move between versions or architectures of the same tool.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}

		if err := a.sess.Switch(cmd.Context(), args[0], args[1]); err != nil {
			return fail(cmd, err)
		}
		if err := a.saveSession(); err != nil {
			return fail(cmd, err)
		}

		fmt.Println(SuccessStyle.Render("Switched ") +
			ModuleStyle.Render(args[0]) + " -> " + ModuleStyle.Render(args[1]))
		return nil
	},
}
