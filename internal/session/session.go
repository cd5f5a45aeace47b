// SPDX-License-Identifier: MPL-2.0

// Package session owns the mutable state of one shell session: which
// modules are mounted, the reversal records for their environment edits,
// the alias and function stacks, and session-scoped parameters. Loading is
// recursive over descriptor dependencies with rollback on failure;
// unloading is reference-counted so shared dependencies stay mounted until
// the last dependent goes away.
package session

import (
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"envmod-cli/internal/config"
	"envmod-cli/internal/dag"
	"envmod-cli/internal/repository"
	"envmod-cli/internal/rootresolve"
	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

type (
	// LoadedModule is one mounted module instance. The session keys
	// instances by short (base) name: two versions of the same module can
	// never be mounted together.
	LoadedModule struct {
		// FullName is the name the instance was loaded under.
		FullName string
		// ShortName is the base name segment, the registry key.
		ShortName string
		// Name is the parsed identity used for conflict checks.
		Name modname.ModuleName
		// Root is the resolved module root ("" when none was required).
		Root string
		// RefCount counts direct loads plus loads as a dependency.
		RefCount int
		// Direct marks instances the user loaded explicitly. It stays set
		// while DirectRefs is positive.
		Direct bool
		// DirectRefs counts how many of the references are direct loads, so
		// repeated direct loads take matching direct unloads to give back.
		DirectRefs int
		// Abstract marks instances of abstract modules, which may only be
		// referenced as dependencies.
		Abstract bool
		// AppliedEdits are the reversal records, in application order.
		AppliedEdits []AppliedEdit
		// Aliases and Functions are the shell declarations this instance
		// pushed, recorded for stack removal on unmount.
		Aliases   []moddesc.AliasDecl
		Functions []moddesc.FunctionDecl
		// Dependencies are the full names of the direct dependencies whose
		// refcounts this instance holds.
		Dependencies []string
		// Category is carried from the descriptor for listing.
		Category string
	}

	// aliasEntry is one level of an alias stack.
	aliasEntry struct {
		Owner string
		Decl  moddesc.AliasDecl
	}

	// functionEntry is one level of a function stack.
	functionEntry struct {
		Owner string
		Decl  moddesc.FunctionDecl
	}

	// paramKey scopes a parameter to an optional virtual environment.
	paramKey struct {
		Name       string
		VirtualEnv string
	}

	// Parameter is one session parameter with its scope.
	Parameter struct {
		Name       string
		VirtualEnv string
		Value      string
	}

	// Session is the mount registry plus the reversible environment layer.
	// A single coarse mutex guards all state: load and unload touch the
	// registry, the stacks and the environment together, and partial
	// visibility between those would corrupt reversal.
	Session struct {
		mu       sync.Mutex
		env      Environ
		repo     *repository.Repository
		resolver *rootresolve.Resolver
		cfg      *config.Config
		logger   *log.Logger

		loaded     map[string]*LoadedModule
		mountOrder []string
		aliases    map[string][]aliasEntry
		functions  map[string][]functionEntry
		params     map[paramKey]string
	}
)

// Option configures a Session.
type Option func(*Session)

// WithEnviron replaces the process-backed environment table.
func WithEnviron(env Environ) Option {
	return func(s *Session) { s.env = env }
}

// WithLogger replaces the default session logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates an empty Session over the given collaborators. cfg supplies
// user-added search paths and may be nil.
func New(repo *repository.Repository, resolver *rootresolve.Resolver, cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		env:       ProcessEnviron{},
		repo:      repo,
		resolver:  resolver,
		cfg:       cfg,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "session"}),
		loaded:    map[string]*LoadedModule{},
		aliases:   map[string][]aliasEntry{},
		functions: map[string][]functionEntry{},
		params:    map[paramKey]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Environ exposes the session's environment table.
func (s *Session) Environ() Environ { return s.env }

// Get returns the loaded instance for a short or full module name.
func (s *Session) Get(name string) (*LoadedModule, bool) {
	parsed, err := modname.Parse(name)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mod, ok := s.loaded[parsed.Name]
	return mod, ok
}

// List returns the loaded modules sorted by short name.
func (s *Session) List() []*LoadedModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*LoadedModule, 0, len(s.loaded))
	for _, mod := range s.loaded {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out
}

// Graph builds the dependency graph over the loaded modules, keyed by full
// name, for tree listings and cascade ordering.
func (s *Session) Graph() *dag.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := dag.New()
	for _, mod := range s.loaded {
		g.AddModule(mod.FullName)
		for _, dep := range mod.Dependencies {
			g.AddDependency(mod.FullName, dep)
		}
	}
	return g
}

// Aliases returns the winning (top-of-stack) alias declarations by name.
func (s *Session) Aliases() map[string]moddesc.AliasDecl {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]moddesc.AliasDecl, len(s.aliases))
	for name, stack := range s.aliases {
		if len(stack) > 0 {
			out[name] = stack[len(stack)-1].Decl
		}
	}
	return out
}

// Functions returns the winning function declarations by name.
func (s *Session) Functions() map[string]moddesc.FunctionDecl {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]moddesc.FunctionDecl, len(s.functions))
	for name, stack := range s.functions {
		if len(stack) > 0 {
			out[name] = stack[len(stack)-1].Decl
		}
	}
	return out
}

// SetParam sets a session parameter, optionally scoped to a virtual
// environment.
func (s *Session) SetParam(name, virtualEnv, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[paramKey{Name: name, VirtualEnv: virtualEnv}] = value
}

// GetParam resolves a parameter: the virtual-environment-scoped value wins
// over the unscoped one.
func (s *Session) GetParam(name, virtualEnv string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if virtualEnv != "" {
		if v, ok := s.params[paramKey{Name: name, VirtualEnv: virtualEnv}]; ok {
			return v, true
		}
	}
	v, ok := s.params[paramKey{Name: name}]
	return v, ok
}

// Params returns all parameters sorted by name then virtual environment.
func (s *Session) Params() []Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Parameter, 0, len(s.params))
	for key, value := range s.params {
		out = append(out, Parameter{Name: key.Name, VirtualEnv: key.VirtualEnv, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].VirtualEnv < out[j].VirtualEnv
	})
	return out
}

// pushDecls installs a module's aliases and functions on their stacks.
func (s *Session) pushDecls(mod *LoadedModule) {
	for _, alias := range mod.Aliases {
		s.aliases[alias.Name] = append(s.aliases[alias.Name], aliasEntry{Owner: mod.ShortName, Decl: alias})
	}
	for _, fn := range mod.Functions {
		s.functions[fn.Name] = append(s.functions[fn.Name], functionEntry{Owner: mod.ShortName, Decl: fn})
	}
}

// popDecls removes a module's entries from the stacks, wherever they sit.
func (s *Session) popDecls(mod *LoadedModule) {
	for _, alias := range mod.Aliases {
		s.aliases[alias.Name] = removeOwner(s.aliases[alias.Name], mod.ShortName)
		if len(s.aliases[alias.Name]) == 0 {
			delete(s.aliases, alias.Name)
		}
	}
	for _, fn := range mod.Functions {
		s.functions[fn.Name] = removeFnOwner(s.functions[fn.Name], mod.ShortName)
		if len(s.functions[fn.Name]) == 0 {
			delete(s.functions, fn.Name)
		}
	}
}

func removeOwner(stack []aliasEntry, owner string) []aliasEntry {
	out := stack[:0]
	for _, e := range stack {
		if e.Owner != owner {
			out = append(out, e)
		}
	}
	return out
}

func removeFnOwner(stack []functionEntry, owner string) []functionEntry {
	out := stack[:0]
	for _, e := range stack {
		if e.Owner != owner {
			out = append(out, e)
		}
	}
	return out
}
