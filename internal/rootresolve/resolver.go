// SPDX-License-Identifier: MPL-2.0

package rootresolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"envmod-cli/pkg/moddesc"
)

// ErrNoRoot is the sentinel error wrapped by NoRootError.
var ErrNoRoot = errors.New("no module root found")

type (
	// SearchPathHandler resolves one search path into a candidate directory.
	// ok is false when the strategy yields no candidate at all (e.g. the
	// environment variable is unset); an existing-but-unsuitable candidate is
	// returned with ok=true and rejected later by the required-item checks.
	SearchPathHandler interface {
		Resolve(ctx context.Context, sp moddesc.SearchPath) (candidate string, ok bool)
	}

	// RequiredItemChecker decides whether a candidate directory satisfies one
	// required item.
	RequiredItemChecker interface {
		Satisfies(dir string, item moddesc.RequiredItem) bool
	}

	// Resolver locates module roots. Handlers are keyed by search-path type
	// and checkers by required-item type; both registries are extensible so
	// descriptors can use site-specific strategies.
	Resolver struct {
		handlers map[string]SearchPathHandler
		checkers map[string]RequiredItemChecker
		logger   *log.Logger
	}

	// NoRootError is returned when no search path candidate satisfies all
	// required items. It wraps ErrNoRoot for errors.Is compatibility.
	NoRootError struct {
		Module string
		// Tried lists the candidates that were produced and rejected.
		Tried []string
	}
)

// Error implements the error interface for NoRootError.
func (e *NoRootError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("no module root found for %s: no search path produced a candidate", e.Module)
	}
	return fmt.Sprintf("no module root found for %s: rejected candidates: %s",
		e.Module, strings.Join(e.Tried, ", "))
}

// Unwrap returns ErrNoRoot for errors.Is compatibility.
func (e *NoRootError) Unwrap() error { return ErrNoRoot }

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger replaces the default resolver logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithHandler registers (or replaces) the handler for a search-path type.
func WithHandler(pathType string, h SearchPathHandler) Option {
	return func(r *Resolver) { r.handlers[pathType] = h }
}

// WithChecker registers (or replaces) the checker for a required-item type.
func WithChecker(itemType string, c RequiredItemChecker) Option {
	return func(r *Resolver) { r.checkers[itemType] = c }
}

// New creates a Resolver with the built-in directory/env handlers and
// file/gitremote checkers. The registry handler needs the registry file
// path, so it is registered separately via WithHandler.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		handlers: map[string]SearchPathHandler{
			moddesc.SearchPathDirectory: DirectoryHandler{},
			moddesc.SearchPathEnv:       EnvHandler{LookupEnv: os.LookupEnv},
		},
		checkers: map[string]RequiredItemChecker{
			moddesc.RequiredItemFile:      FileChecker{},
			moddesc.RequiredItemGitRemote: GitRemoteChecker{},
		},
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "rootresolve"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRoot finds the module root for a descriptor. User-added search
// paths (extra) compete with the descriptor defaults purely on priority;
// among equal priorities user entries are tried first, then declaration
// order. The first candidate satisfying every required item wins.
//
// A descriptor with no required items and no search paths resolves to the
// empty root: such modules (meta, abstract, pure alias bundles) need no
// filesystem anchor.
func (r *Resolver) ResolveRoot(ctx context.Context, desc *moddesc.Descriptor, extra []moddesc.SearchPath) (string, error) {
	paths := make([]moddesc.SearchPath, 0, len(extra)+len(desc.SearchPaths))
	paths = append(paths, extra...)
	paths = append(paths, desc.SearchPaths...)
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Priority > paths[j].Priority
	})

	if len(paths) == 0 && len(desc.RequiredItems) == 0 {
		return "", nil
	}

	var tried []string
	for _, sp := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		handler, known := r.handlers[sp.Type]
		if !known {
			r.logger.Warn("unknown search path type, skipping",
				"module", desc.FullName, "type", sp.Type)
			continue
		}

		candidate, ok := handler.Resolve(ctx, sp)
		if !ok {
			continue
		}
		if sp.SubFolder != "" {
			candidate = filepath.Join(candidate, sp.SubFolder)
		}

		if !dirExists(candidate) {
			tried = append(tried, candidate)
			continue
		}
		if r.satisfiesAll(desc, candidate) {
			r.logger.Debug("resolved module root",
				"module", desc.FullName, "root", candidate)
			return candidate, nil
		}
		tried = append(tried, candidate)
	}

	if len(desc.RequiredItems) == 0 {
		// Nothing to anchor against, so a missing root is not fatal.
		r.logger.Debug("no root found but none required",
			"module", desc.FullName)
		return "", nil
	}

	return "", &NoRootError{Module: desc.FullName, Tried: tried}
}

// satisfiesAll runs every required-item check against the candidate.
// Unknown item types count as non-match so a typo never silently passes.
func (r *Resolver) satisfiesAll(desc *moddesc.Descriptor, dir string) bool {
	for _, item := range desc.RequiredItems {
		checker, known := r.checkers[item.Type]
		if !known {
			r.logger.Warn("unknown required item type, rejecting candidate",
				"module", desc.FullName, "type", item.Type)
			return false
		}
		if !checker.Satisfies(dir, item) {
			return false
		}
	}
	return true
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
