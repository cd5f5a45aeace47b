// SPDX-License-Identifier: MPL-2.0

// Package repository maintains the set of known module descriptors: it scans
// the configured module roots for descriptor files, keeps the ones that
// depend on the core runtime module, and synthesizes meta descriptors so
// users can load modules by partial names ("NotepadPlusPlus" instead of
// "NotepadPlusPlus-1_2_3-x64").
package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

// ErrModuleNotFound is the sentinel error wrapped by NotFoundError.
var ErrModuleNotFound = errors.New("module not found")

type (
	// Repository is the descriptor index. All reads go through the RWMutex;
	// Rescan swaps the index atomically so readers never see a half-built
	// scan.
	Repository struct {
		mu          sync.RWMutex
		roots       []string
		descriptors map[string]*moddesc.Descriptor
		scannedAt   time.Time

		store    *Store
		logger   *log.Logger
		hostArch string
	}

	// NotFoundError reports a full name with no authored or synthesized
	// descriptor. It wraps ErrModuleNotFound for errors.Is compatibility.
	NotFoundError struct {
		FullName string
	}
)

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module not found: %s", e.FullName)
}

// Unwrap returns ErrModuleNotFound for errors.Is compatibility.
func (e *NotFoundError) Unwrap() error { return ErrModuleNotFound }

// Option configures a Repository.
type Option func(*Repository)

// WithLogger replaces the default repository logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

// WithStore attaches a cache store so scans persist across invocations.
func WithStore(store *Store) Option {
	return func(r *Repository) { r.store = store }
}

// WithHostArch overrides the detected host architecture token.
func WithHostArch(arch string) Option {
	return func(r *Repository) { r.hostArch = arch }
}

// New creates a Repository over the given module roots. No scan happens
// until Rescan or LoadCache is called.
func New(roots []string, opts ...Option) *Repository {
	r := &Repository{
		roots:       roots,
		descriptors: map[string]*moddesc.Descriptor{},
		logger:      log.NewWithOptions(os.Stderr, log.Options{Prefix: "repository"}),
		hostArch:    hostArch(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// hostArch maps the Go architecture onto the module name arch tokens.
func hostArch() string {
	switch runtime.GOARCH {
	case "386", "arm":
		return modname.ArchX86
	default:
		return modname.ArchX64
	}
}

// Rescan walks every module root for descriptor files, decodes them, keeps
// the units that depend on the core runtime module, synthesizes meta
// descriptors for partial names, and swaps in the new index. Descriptors
// that fail to decode are logged and skipped so one broken file never hides
// the rest of a root.
func (r *Repository) Rescan() error {
	found := map[string]*moddesc.Descriptor{}

	for _, root := range r.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), moddesc.DescriptorSuffix) {
				return nil
			}

			desc, err := moddesc.Decode(path)
			if err != nil {
				r.logger.Warn("skipping broken descriptor", "path", path, "err", err)
				return nil
			}
			if !desc.DependsOnCore() {
				r.logger.Debug("skipping unit without core dependency", "path", path)
				return nil
			}
			if prev, dup := found[desc.FullName]; dup {
				// Earlier roots take precedence.
				r.logger.Warn("duplicate descriptor shadowed",
					"module", desc.FullName,
					"kept", prev.BaseDirectory,
					"shadowed", desc.BaseDirectory)
				return nil
			}
			found[desc.FullName] = desc
			return nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug("module root does not exist, skipping", "root", root)
				continue
			}
			return fmt.Errorf("failed to scan module root %s: %w", root, err)
		}
	}

	r.synthesizeMetas(found)

	r.mu.Lock()
	r.descriptors = found
	r.scannedAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("rescan complete", "modules", len(found))

	if r.store != nil {
		if err := r.store.Save(r.snapshot()); err != nil {
			r.logger.Warn("failed to persist descriptor cache", "err", err)
		}
	}
	return nil
}

// LoadCache restores the index from the attached store, re-decoding each
// cached descriptor path. Missing or broken entries are dropped; meta
// descriptors are re-synthesized rather than trusted from the cache. Falls
// back to a full Rescan when no usable cache exists.
func (r *Repository) LoadCache() error {
	if r.store == nil {
		return r.Rescan()
	}
	blob, err := r.store.Load()
	if err != nil {
		r.logger.Debug("no usable descriptor cache, rescanning", "err", err)
		return r.Rescan()
	}

	found := map[string]*moddesc.Descriptor{}
	for _, entry := range blob.Entries {
		desc, err := moddesc.Decode(entry.Path)
		if err != nil {
			r.logger.Warn("cached descriptor no longer decodes, dropping",
				"module", entry.FullName, "path", entry.Path, "err", err)
			continue
		}
		found[desc.FullName] = desc
	}
	r.synthesizeMetas(found)

	r.mu.Lock()
	r.descriptors = found
	r.scannedAt = blob.ScannedAt
	r.mu.Unlock()
	return nil
}

// Get returns the descriptor for a full name.
func (r *Repository) Get(fullName string) (*moddesc.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.descriptors[fullName]
	if !ok {
		return nil, &NotFoundError{FullName: fullName}
	}
	return desc, nil
}

// ListAvailable returns all descriptors whose full name contains the filter
// (case-insensitive; empty filter matches everything), sorted by full name.
func (r *Repository) ListAvailable(filter string) []*moddesc.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(filter)
	out := make([]*moddesc.Descriptor, 0, len(r.descriptors))
	for name, desc := range r.descriptors {
		if needle == "" || strings.Contains(strings.ToLower(name), needle) {
			out = append(out, desc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// ScannedAt reports when the current index was built.
func (r *Repository) ScannedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scannedAt
}

// snapshot builds the persistable cache blob from the current index.
// Synthesized descriptors are excluded; they are regenerated on load.
func (r *Repository) snapshot() *CacheBlob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blob := &CacheBlob{ScannedAt: r.scannedAt, Roots: r.roots}
	for name, desc := range r.descriptors {
		if desc.Synthesized {
			continue
		}
		blob.Entries = append(blob.Entries, CacheEntry{
			FullName: name,
			Path:     filepath.Join(desc.BaseDirectory, name+moddesc.DescriptorSuffix),
		})
	}
	sort.Slice(blob.Entries, func(i, j int) bool {
		return blob.Entries[i].FullName < blob.Entries[j].FullName
	})
	return blob
}
