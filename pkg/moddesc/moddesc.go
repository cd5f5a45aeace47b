// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// DescriptorSuffix is the filesystem suffix for module descriptor files.
	// The full module name is the file name with this suffix stripped.
	DescriptorSuffix = ".envmod.cue"

	// CoreModuleName identifies the core runtime module. Only units that
	// depend on it are considered installable environment modules during a
	// repository scan.
	CoreModuleName = "EnvironmentModuleCore"
)

const (
	// TypeDefault is a regular module with its own root and edits.
	TypeDefault ModuleType = "default"
	// TypeMeta is a module that delegates to exactly one concrete module.
	TypeMeta ModuleType = "meta"
	// TypeAbstract is a module that can only be loaded as a dependency.
	TypeAbstract ModuleType = "abstract"

	// EditAppend joins values onto the end of a path-list variable.
	EditAppend EditMode = "append"
	// EditPrepend joins values onto the front of a path-list variable.
	EditPrepend EditMode = "prepend"
	// EditSet overwrites a variable, remembering the prior value.
	EditSet EditMode = "set"

	// SearchPathDirectory resolves a candidate from a literal directory.
	SearchPathDirectory = "directory"
	// SearchPathEnv resolves a candidate from an environment variable.
	SearchPathEnv = "env"
	// SearchPathRegistry resolves a candidate from the registry file.
	SearchPathRegistry = "registry"

	// RequiredItemFile requires a relative file to exist under the candidate.
	RequiredItemFile = "file"
	// RequiredItemGitRemote requires the candidate to be a git checkout
	// whose configured remote matches the item value.
	RequiredItemGitRemote = "gitremote"
)

var (
	// ErrInvalidModuleType is the sentinel error wrapped by InvalidModuleTypeError.
	ErrInvalidModuleType = errors.New("invalid module type")
	// ErrInvalidEditMode is the sentinel error wrapped by InvalidEditModeError.
	ErrInvalidEditMode = errors.New("invalid edit mode")
)

type (
	// ModuleType classifies how a module participates in loading.
	ModuleType string

	// InvalidModuleTypeError is returned when a ModuleType value is not
	// recognized. It wraps ErrInvalidModuleType for errors.Is compatibility.
	InvalidModuleTypeError struct {
		Value ModuleType
	}

	// EditMode selects how a PathEdit mutates its variable.
	EditMode string

	// InvalidEditModeError is returned when an EditMode value is not
	// recognized. It wraps ErrInvalidEditMode for errors.Is compatibility.
	InvalidEditModeError struct {
		Value EditMode
	}

	// DependencyRef names another module this one needs. Optional
	// dependencies that fail to load are tolerated with a warning.
	DependencyRef struct {
		FullName string `json:"name"`
		Optional bool   `json:"optional,omitempty"`
	}

	// SearchPath is a typed strategy for locating the module root.
	SearchPath struct {
		// Type selects the registered handler: directory, env or registry.
		Type string `json:"type"`
		// Key is interpreted by the handler: a literal directory, an
		// environment variable name, or a registry key.
		Key string `json:"key"`
		// SubFolder is joined onto the resolved candidate before the
		// required-item checks run.
		SubFolder string `json:"sub_folder,omitempty"`
		// Priority orders search paths; higher values are tried first.
		Priority int `json:"priority,omitempty"`
	}

	// RequiredItem is a typed predicate a candidate root must satisfy.
	RequiredItem struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}

	// PathEdit declares a mutation of one environment variable. Values are
	// joined with the platform path-list separator before application.
	// Relative values are resolved against the module root at mount time
	// when Key is "root".
	PathEdit struct {
		Variable string   `json:"variable"`
		Mode     EditMode `json:"mode"`
		Values   []string `json:"values"`
		Key      string   `json:"key,omitempty"`
	}

	// AliasDecl declares a shell alias installed on mount.
	AliasDecl struct {
		Name        string `json:"name"`
		Definition  string `json:"definition"`
		Description string `json:"description,omitempty"`
	}

	// FunctionDecl declares a shell function installed on mount. The body
	// must be valid POSIX shell; it is syntax-checked at decode time.
	FunctionDecl struct {
		Name string `json:"name"`
		Body string `json:"body"`
	}

	// Descriptor is the immutable template for one environment module,
	// decoded once from its descriptor file and cached for the process
	// lifetime.
	Descriptor struct {
		// FullName is derived from the descriptor file name, never from
		// file content (not in CUE).
		FullName string `json:"-"`
		// BaseDirectory is where the descriptor file lives (not in CUE).
		BaseDirectory string `json:"-"`
		// Synthesized marks repository-generated meta descriptors (not in CUE).
		Synthesized bool `json:"-"`

		ModuleType   ModuleType      `json:"module_type,omitempty"`
		Dependencies []DependencyRef `json:"dependencies,omitempty"`
		// DirectUnload marks a module that delegates to its dependencies
		// and never persists as a loaded instance. Its own edits are never
		// applied.
		DirectUnload  bool              `json:"direct_unload,omitempty"`
		SearchPaths   []SearchPath      `json:"default_search_paths,omitempty"`
		RequiredItems []RequiredItem    `json:"required_items,omitempty"`
		PathEdits     []PathEdit        `json:"path_edits,omitempty"`
		Aliases       []AliasDecl       `json:"aliases,omitempty"`
		Functions     []FunctionDecl    `json:"functions,omitempty"`
		Parameters    map[string]string `json:"parameters,omitempty"`
		// MergeRefs name patch descriptors merged into this one before
		// mounting.
		MergeRefs    []string `json:"merge_modules,omitempty"`
		StyleVersion float64  `json:"style_version,omitempty"`
		Category     string   `json:"category,omitempty"`
	}
)

// Error implements the error interface for InvalidModuleTypeError.
func (e *InvalidModuleTypeError) Error() string {
	return fmt.Sprintf("invalid module type %q (valid: default, meta, abstract)", e.Value)
}

// Unwrap returns ErrInvalidModuleType for errors.Is compatibility.
func (e *InvalidModuleTypeError) Unwrap() error { return ErrInvalidModuleType }

// String returns the string representation of the ModuleType.
func (t ModuleType) String() string { return string(t) }

// IsValid returns whether the ModuleType is one of the defined types,
// and a list of validation errors if it is not.
func (t ModuleType) IsValid() (bool, []error) {
	switch t {
	case TypeDefault, TypeMeta, TypeAbstract:
		return true, nil
	default:
		return false, []error{&InvalidModuleTypeError{Value: t}}
	}
}

// Error implements the error interface for InvalidEditModeError.
func (e *InvalidEditModeError) Error() string {
	return fmt.Sprintf("invalid edit mode %q (valid: append, prepend, set)", e.Value)
}

// Unwrap returns ErrInvalidEditMode for errors.Is compatibility.
func (e *InvalidEditModeError) Unwrap() error { return ErrInvalidEditMode }

// String returns the string representation of the EditMode.
func (m EditMode) String() string { return string(m) }

// IsValid returns whether the EditMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m EditMode) IsValid() (bool, []error) {
	switch m {
	case EditAppend, EditPrepend, EditSet:
		return true, nil
	default:
		return false, []error{&InvalidEditModeError{Value: m}}
	}
}

// IsMeta reports whether the descriptor is meta-typed.
func (d *Descriptor) IsMeta() bool { return d.ModuleType == TypeMeta }

// IsAbstract reports whether the descriptor is abstract-typed.
func (d *Descriptor) IsAbstract() bool { return d.ModuleType == TypeAbstract }

// DependsOnCore reports whether the descriptor declares a dependency on the
// core runtime module.
func (d *Descriptor) DependsOnCore() bool {
	for _, dep := range d.Dependencies {
		if base, _, _ := strings.Cut(dep.FullName, "-"); base == CoreModuleName {
			return true
		}
	}
	return false
}

// sortSearchPaths orders search paths by descending priority, keeping
// declaration order among equal priorities.
func sortSearchPaths(paths []SearchPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Priority > paths[j].Priority
	})
}

// Clone returns a deep copy of the descriptor. Merging patch descriptors
// works on a clone so the cached template stays immutable.
func (d *Descriptor) Clone() *Descriptor {
	out := *d
	out.Dependencies = append([]DependencyRef(nil), d.Dependencies...)
	out.SearchPaths = append([]SearchPath(nil), d.SearchPaths...)
	out.RequiredItems = append([]RequiredItem(nil), d.RequiredItems...)
	out.PathEdits = append([]PathEdit(nil), d.PathEdits...)
	out.Aliases = append([]AliasDecl(nil), d.Aliases...)
	out.Functions = append([]FunctionDecl(nil), d.Functions...)
	out.MergeRefs = append([]string(nil), d.MergeRefs...)
	if d.Parameters != nil {
		out.Parameters = make(map[string]string, len(d.Parameters))
		for k, v := range d.Parameters {
			out.Parameters[k] = v
		}
	}
	return &out
}

// Merge folds a patch descriptor into this one: edits, aliases, functions
// and dependencies are appended, parameters are overlaid (patch wins).
// Identity fields and search paths are left untouched.
func (d *Descriptor) Merge(patch *Descriptor) {
	d.PathEdits = append(d.PathEdits, patch.PathEdits...)
	d.Aliases = append(d.Aliases, patch.Aliases...)
	d.Functions = append(d.Functions, patch.Functions...)
	d.Dependencies = append(d.Dependencies, patch.Dependencies...)
	if len(patch.Parameters) > 0 {
		if d.Parameters == nil {
			d.Parameters = make(map[string]string, len(patch.Parameters))
		}
		for k, v := range patch.Parameters {
			d.Parameters[k] = v
		}
	}
}
