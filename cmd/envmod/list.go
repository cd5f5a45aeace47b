// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envmod-cli/internal/session"
	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

var (
	listAll  bool
	listTree bool
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List loaded or available modules",
	Long: `Without flags, list the modules mounted in the current session. With
--all, list every module the repository knows, including synthesized
shorthand names. With --tree, show the loaded modules as a dependency
tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fail(cmd, err)
		}
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}

		switch {
		case listAll:
			listAvailable(a, filter)
		case listTree:
			listLoadedTree(a)
		default:
			listLoaded(a, filter)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "list every known module, not just loaded ones")
	listCmd.Flags().BoolVarP(&listTree, "tree", "t", false, "show loaded modules as a dependency tree")
	listCmd.MarkFlagsMutuallyExclusive("all", "tree")
}

func listLoaded(a *app, filter string) {
	mods := a.sess.List()
	if len(mods) == 0 {
		fmt.Println(SubtitleStyle.Render("No modules loaded."))
		return
	}
	fmt.Println(TitleStyle.Render("Loaded modules:"))
	for _, mod := range mods {
		if filter != "" && !strings.Contains(strings.ToLower(mod.FullName), strings.ToLower(filter)) {
			continue
		}
		fmt.Println("  " + ModuleStyle.Render(mod.FullName) + loadedMarkers(mod))
		if mod.Root != "" {
			fmt.Println(SubtitleStyle.Render("    root: " + mod.Root))
		}
	}
}

func loadedMarkers(mod *session.LoadedModule) string {
	var marks []string
	if !mod.Direct {
		marks = append(marks, "dependency")
	}
	if mod.RefCount > 1 {
		marks = append(marks, fmt.Sprintf("refs: %d", mod.RefCount))
	}
	if mod.Category != "" {
		marks = append(marks, mod.Category)
	}
	if len(marks) == 0 {
		return ""
	}
	return SubtitleStyle.Render("  (" + strings.Join(marks, ", ") + ")")
}

func listAvailable(a *app, filter string) {
	descs := a.repo.ListAvailable(filter)
	if len(descs) == 0 {
		fmt.Println(SubtitleStyle.Render("No modules match."))
		return
	}
	fmt.Println(TitleStyle.Render("Available modules:"))
	for _, desc := range descs {
		fmt.Println("  " + ModuleStyle.Render(desc.FullName) + availableMarkers(a, desc))
	}
}

func availableMarkers(a *app, desc *moddesc.Descriptor) string {
	var marks []string
	switch {
	case desc.Synthesized:
		target := ""
		if len(desc.Dependencies) > 0 {
			target = " -> " + desc.Dependencies[0].FullName
		}
		marks = append(marks, "shorthand"+target)
	case desc.IsMeta():
		marks = append(marks, "meta")
	case desc.IsAbstract():
		marks = append(marks, "abstract")
	}
	if desc.Category != "" {
		marks = append(marks, desc.Category)
	}
	if _, loaded := a.sess.Get(desc.FullName); loaded {
		marks = append(marks, "loaded")
	}
	if len(marks) == 0 {
		return ""
	}
	return SubtitleStyle.Render("  (" + strings.Join(marks, ", ") + ")")
}

// listLoadedTree prints directly-loaded modules as roots with their
// dependency subtrees indented beneath them.
func listLoadedTree(a *app) {
	mods := a.sess.List()
	if len(mods) == 0 {
		fmt.Println(SubtitleStyle.Render("No modules loaded."))
		return
	}
	fmt.Println(TitleStyle.Render("Loaded modules:"))
	for _, mod := range mods {
		if !mod.Direct {
			continue
		}
		printTree(a, mod, 1, map[string]bool{})
	}
}

func printTree(a *app, mod *session.LoadedModule, depth int, seen map[string]bool) {
	indent := strings.Repeat("  ", depth)
	fmt.Println(indent + ModuleStyle.Render(mod.FullName) + loadedMarkers(mod))
	if seen[mod.ShortName] {
		return
	}
	seen[mod.ShortName] = true
	for _, dep := range mod.Dependencies {
		parsed, err := modname.Parse(dep)
		if err != nil {
			continue
		}
		if child, ok := a.sess.Get(parsed.Name); ok {
			printTree(a, child, depth+1, seen)
		}
	}
}
