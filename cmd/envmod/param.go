// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var paramVirtualEnv string

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Manage session parameters",
	Long: `Parameters are session-scoped key/value settings. Modules register
defaults for their parameters when they mount; 'param set' overrides a
value, optionally scoped to a virtual environment name. Lookups prefer
the scoped value and fall back to the unscoped one.`,
}

var paramSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a parameter value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}
		a.sess.SetParam(args[0], paramVirtualEnv, args[1])
		if err := a.saveSession(); err != nil {
			return fail(cmd, err)
		}
		fmt.Println(SuccessStyle.Render("Set ") + args[0])
		return nil
	},
}

var paramGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a parameter value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}
		value, ok := a.sess.GetParam(args[0], paramVirtualEnv)
		if !ok {
			return fail(cmd, fmt.Errorf("parameter not set: %s", args[0]))
		}
		fmt.Println(value)
		return nil
	},
}

var paramListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all session parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}
		params := a.sess.Params()
		if len(params) == 0 {
			fmt.Println(SubtitleStyle.Render("No parameters set."))
			return nil
		}
		fmt.Println(TitleStyle.Render("Session parameters:"))
		for _, p := range params {
			scope := ""
			if p.VirtualEnv != "" {
				scope = SubtitleStyle.Render(" [" + p.VirtualEnv + "]")
			}
			fmt.Printf("  %s%s = %s\n", p.Name, scope, p.Value)
		}
		return nil
	},
}

func init() {
	paramSetCmd.Flags().StringVar(&paramVirtualEnv, "virtual-env", "", "scope the parameter to a virtual environment")
	paramGetCmd.Flags().StringVar(&paramVirtualEnv, "virtual-env", "", "resolve within a virtual environment scope")

	paramCmd.AddCommand(paramSetCmd)
	paramCmd.AddCommand(paramGetCmd)
	paramCmd.AddCommand(paramListCmd)
}
