// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envmod-cli/internal/issue"
)

var explainCmd = &cobra.Command{
	Use:   "explain [issue]",
	Short: "Explain a failure category",
	Long: `Render the help page for one of envmod's known failure categories.
Without an argument, list the available pages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(TitleStyle.Render("Known issues:"))
			fmt.Println("  " + strings.Join(issue.Names(), "\n  "))
			return nil
		}

		entry := issue.Lookup(args[0])
		if entry == nil {
			return fail(cmd, fmt.Errorf("unknown issue %q; run 'envmod explain' to list them", args[0]))
		}
		rendered, err := entry.Render("auto")
		if err != nil {
			return fail(cmd, err)
		}
		fmt.Print(rendered)
		return nil
	},
}
