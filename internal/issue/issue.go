// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies one entry of the issue catalog.
type Id int

const (
	ModuleNotFoundId Id = iota + 1
	DescriptorParseErrorId
	RootNotFoundId
	ConflictId
	DependencyCycleId
	DependencyFailedId
	ConfigLoadFailedId
	SessionStateCorruptId
)

// MarkdownMsg is the rendered help text for one issue.
type MarkdownMsg string

type Issue struct {
	id    Id
	name  string // stable identifier used on the command line
	mdMsg MarkdownMsg
}

func (i *Issue) Id() Id { return i.id }

// Name returns the stable identifier used by `envmod explain <name>`.
func (i *Issue) Name() string { return i.name }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Render produces the terminal-ready markdown rendering of the issue.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id:   ModuleNotFoundId,
		name: "module-not-found",
		mdMsg: `
# Module not found!

No descriptor matches the requested module name.

## Things you can try:
- List every known module, including synthesized short-hands:
~~~
$ envmod list --all
~~~

- Refresh the descriptor cache after installing a module:
~~~
$ envmod rescan
~~~

- Check the module roots configured in your config file; descriptors must
  be named ` + "`<FullName>.envmod.cue`" + ` and live under a module root.`,
	}

	descriptorParseErrorIssue = &Issue{
		id:   DescriptorParseErrorId,
		name: "descriptor-parse-error",
		mdMsg: `
# Failed to parse a module descriptor!

A descriptor file contains syntax errors, unknown keys, or an alias or
function body that is not valid shell.

## Common issues:
- Invalid CUE syntax (missing quotes, braces)
- Keys outside the descriptor schema (unknown keys are rejected)
- A file name that does not satisfy the module name grammar

## Example of a valid descriptor (Foo-1_0-x64.envmod.cue):
~~~cue
module_type: "default"
dependencies: [{name: "EnvironmentModuleCore"}]
default_search_paths: [
	{type: "directory", key: "/opt/foo", priority: 10},
]
required_items: [{type: "file", value: "bin/foo"}]
path_edits: [
	{variable: "PATH", mode: "prepend", values: ["bin"], key: "root"},
]
~~~`,
	}

	rootNotFoundIssue = &Issue{
		id:   RootNotFoundId,
		name: "root-not-found",
		mdMsg: `
# Module root not found!

None of the module's search paths produced a directory satisfying all of
its required items.

## Things you can try:
- Add a search path with a higher priority than the defaults:
~~~
$ envmod search-path add <module> --type directory --key /opt/tool --priority 100
~~~

- Verify the program the module wraps is actually installed
- Run verbosely to see every candidate that was rejected:
~~~
$ envmod --verbose load <module>
~~~`,
	}

	conflictIssue = &Issue{
		id:   ConflictId,
		name: "conflict",
		mdMsg: `
# Version or architecture conflict!

A module with the same short name but an incompatible version or
architecture is already loaded. At most one instance per short name can be
mounted at a time; conflicting loads are rejected, never merged.

## Things you can try:
- Swap the loaded instance in one step:
~~~
$ envmod switch <loaded-module> <requested-module>
~~~

- Or unload the current instance first:
~~~
$ envmod unload <loaded-module>
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id:   DependencyCycleId,
		name: "dependency-cycle",
		mdMsg: `
# Dependency cycle detected!

The requested module's dependency chain loops back on itself, so no load
order exists. Nothing was mounted: every module loaded while following the
chain has been rolled back.

## Things you can try:
- Inspect the descriptors named in the cycle and break the loop
- Mark one direction of the cycle optional if the modules merely
  cooperate instead of requiring each other`,
	}

	dependencyFailedIssue = &Issue{
		id:   DependencyFailedId,
		name: "dependency-failed",
		mdMsg: `
# Mandatory dependency failed to load!

A dependency without the ` + "`optional`" + ` flag could not be satisfied, so the
whole load was rolled back. Optional dependencies that fail are skipped
with a warning and do not abort the load.

## Things you can try:
- Load the failing dependency directly to see its own error:
~~~
$ envmod load <dependency>
~~~

- Mark the dependency optional in the descriptor if the module can
  function without it`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Failed to load configuration!

## Configuration file locations:
- Linux: ~/.config/envmod/config.cue
- macOS: ~/Library/Application Support/envmod/config.cue
- Windows: %APPDATA%\envmod\config.cue

## Things you can try:
- Check the configuration syntax against the schema
- Remove the config file to fall back to defaults

## Example configuration:
~~~cue
module_roots: ["/opt/envmod/modules"]

ui: {
	color_scheme: "auto"
	verbose:      false
}
~~~`,
	}

	sessionStateCorruptIssue = &Issue{
		id:   SessionStateCorruptId,
		name: "session-state-corrupt",
		mdMsg: `
# Session state could not be restored!

The persisted session file is unreadable or does not match the expected
shape. A crash during an unload can leave partial environment edits behind;
compensating actions are ordered but not atomic.

## Things you can try:
- Start a fresh session by removing the state file:
~~~
$ rm ~/.envmod/session.toml
~~~

- Re-load the modules you need afterwards`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():       moduleNotFoundIssue,
		descriptorParseErrorIssue.Id(): descriptorParseErrorIssue,
		rootNotFoundIssue.Id():         rootNotFoundIssue,
		conflictIssue.Id():             conflictIssue,
		dependencyCycleIssue.Id():      dependencyCycleIssue,
		dependencyFailedIssue.Id():     dependencyFailedIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		sessionStateCorruptIssue.Id():  sessionStateCorruptIssue,
	}
)

// Values returns every catalog entry, in unspecified order.
func Values() []*Issue {
	return maps.Values(issues)
}

// Get returns the issue for the given id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by its command-line name, or nil.
func Lookup(name string) *Issue {
	all := Values()
	idx := slices.IndexFunc(all, func(i *Issue) bool { return i.name == name })
	if idx < 0 {
		return nil
	}
	return all[idx]
}

// Names returns the sorted command-line names of every catalog entry.
func Names() []string {
	names := make([]string, 0, len(issues))
	for _, i := range issues {
		names = append(names, i.name)
	}
	slices.Sort(names)
	return names
}
