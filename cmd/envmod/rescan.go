// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rescanWatch bool

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the descriptor index",
	Long: `Walk the configured module roots, decode every descriptor file, and
rebuild the index of known modules including synthesized shorthand
names. With --watch, keep running and rescan whenever a descriptor
changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}

		if err := a.repo.Rescan(); err != nil {
			return fail(cmd, err)
		}
		fmt.Printf("%s %d modules known\n",
			SuccessStyle.Render("Rescan complete:"), len(a.repo.ListAvailable("")))

		if rescanWatch {
			fmt.Println(SubtitleStyle.Render("Watching module roots for changes (Ctrl-C to stop)..."))
			if err := a.repo.Watch(cmd.Context()); err != nil {
				return fail(cmd, err)
			}
		}
		return nil
	},
}

func init() {
	rescanCmd.Flags().BoolVarP(&rescanWatch, "watch", "w", false, "keep watching module roots and rescan on changes")
}
