// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"envmod-cli/internal/config"
	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

var (
	searchPathType      string
	searchPathKey       string
	searchPathSubFolder string
	searchPathPriority  int
)

var searchPathCmd = &cobra.Command{
	Use:   "search-path",
	Short: "Manage user-added module search paths",
	Long: `User-added search paths compete with a descriptor's default search
paths purely on priority: give yours a higher priority value and it is
tried first. Entries persist in the config file.`,
}

var searchPathAddCmd = &cobra.Command{
	Use:   "add <module>",
	Short: "Add a search path for a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := modname.Parse(args[0]); err != nil {
			return fail(cmd, err)
		}
		switch searchPathType {
		case moddesc.SearchPathDirectory, moddesc.SearchPathEnv, moddesc.SearchPathRegistry:
		default:
			return fail(cmd, fmt.Errorf("unknown search path type %q (valid: directory, env, registry)", searchPathType))
		}

		cfg, err := config.Load()
		if err != nil {
			return fail(cmd, err)
		}
		cfg.SearchPaths = append(cfg.SearchPaths, config.SearchPathEntry{
			Module:    args[0],
			Type:      searchPathType,
			Key:       searchPathKey,
			SubFolder: searchPathSubFolder,
			Priority:  searchPathPriority,
		})
		if err := config.Save(cfg); err != nil {
			return fail(cmd, err)
		}
		fmt.Println(SuccessStyle.Render("Added search path for ") + ModuleStyle.Render(args[0]))
		return nil
	},
}

var searchPathListCmd = &cobra.Command{
	Use:   "list [module]",
	Short: "List user-added search paths",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fail(cmd, err)
		}
		entries := cfg.SearchPaths
		if len(args) == 1 {
			entries = cfg.SearchPathsFor(args[0])
		}
		if len(entries) == 0 {
			fmt.Println(SubtitleStyle.Render("No user-added search paths."))
			return nil
		}
		fmt.Println(TitleStyle.Render("User-added search paths:"))
		for i, entry := range entries {
			fmt.Printf("  %d. %s %s key=%q", i, ModuleStyle.Render(entry.Module), entry.Type, entry.Key)
			if entry.SubFolder != "" {
				fmt.Printf(" sub_folder=%q", entry.SubFolder)
			}
			if entry.Priority != 0 {
				fmt.Printf(" priority=%d", entry.Priority)
			}
			fmt.Println()
		}
		return nil
	},
}

var searchPathRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove a user-added search path by its list index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return fail(cmd, fmt.Errorf("index must be a number: %w", err))
		}
		cfg, err := config.Load()
		if err != nil {
			return fail(cmd, err)
		}
		if idx < 0 || idx >= len(cfg.SearchPaths) {
			return fail(cmd, fmt.Errorf("index %d out of range (0..%d)", idx, len(cfg.SearchPaths)-1))
		}
		removed := cfg.SearchPaths[idx]
		cfg.SearchPaths = append(cfg.SearchPaths[:idx], cfg.SearchPaths[idx+1:]...)
		if err := config.Save(cfg); err != nil {
			return fail(cmd, err)
		}
		fmt.Println(SuccessStyle.Render("Removed search path for ") + ModuleStyle.Render(removed.Module))
		return nil
	},
}

func init() {
	searchPathAddCmd.Flags().StringVar(&searchPathType, "type", moddesc.SearchPathDirectory, "search path type: directory, env or registry")
	searchPathAddCmd.Flags().StringVar(&searchPathKey, "key", "", "directory path, environment variable name or registry key")
	searchPathAddCmd.Flags().StringVar(&searchPathSubFolder, "subfolder", "", "subfolder joined onto the resolved candidate")
	searchPathAddCmd.Flags().IntVar(&searchPathPriority, "priority", 50, "priority; higher values are tried first")
	searchPathAddCmd.MarkFlagRequired("key") //nolint:errcheck

	searchPathCmd.AddCommand(searchPathAddCmd)
	searchPathCmd.AddCommand(searchPathListCmd)
	searchPathCmd.AddCommand(searchPathRemoveCmd)
}
