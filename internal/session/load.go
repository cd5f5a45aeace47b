// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"

	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

// Load mounts a module and, recursively, its dependencies. directly marks
// the mount as user-requested: direct instances can be unloaded by name,
// dependency-only instances cannot (without force).
//
// Loading is transactional per call: when a mandatory dependency fails,
// every reference this call acquired is given back in reverse order, and
// the session is exactly as it was.
func (s *Session) Load(ctx context.Context, fullName string, directly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	visiting := map[string]bool{}
	var acquired []acquisition
	return s.load(ctx, fullName, directly, visiting, nil, &acquired)
}

// acquisition is one reference taken during a Load call: a fresh mount or a
// refcount increment, with the direct flag it carried.
type acquisition struct {
	short  string
	direct bool
}

// load is the recursive worker. visiting holds the short names on the
// current descent for cycle detection; chain is the path for error
// reporting; acquired records one entry per reference this call took
// (a fresh mount or a refcount increment), newest last, for LIFO rollback.
func (s *Session) load(ctx context.Context, fullName string, directly bool, visiting map[string]bool, chain []string, acquired *[]acquisition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	requested, err := modname.Parse(fullName)
	if err != nil {
		return err
	}
	short := requested.Name

	if visiting[short] {
		return &CircularDependencyError{Chain: append(append([]string{}, chain...), fullName)}
	}

	// Idempotent re-entry: an already-loaded compatible instance just gains
	// a reference (and direct status when the user asked by name).
	if existing, ok := s.loaded[short]; ok {
		if requested.ConflictsWith(existing.Name) {
			return &ConflictError{Requested: fullName, Loaded: existing.FullName}
		}
		if directly && existing.Abstract {
			return &AbstractModuleError{FullName: existing.FullName}
		}
		existing.RefCount++
		if directly {
			existing.DirectRefs++
			existing.Direct = true
		}
		*acquired = append(*acquired, acquisition{short: short, direct: directly})
		s.logger.Debug("module already loaded, reference added",
			"module", existing.FullName, "refcount", existing.RefCount)
		return nil
	}

	template, err := s.repo.Get(fullName)
	if err != nil {
		return err
	}
	desc := template.Clone()
	s.applyMergeRefs(desc)

	if directly && desc.IsAbstract() {
		return &AbstractModuleError{FullName: fullName}
	}

	visiting[short] = true
	defer delete(visiting, short)
	chain = append(chain, fullName)

	// Delegating modules mount nothing themselves. Their dependencies
	// inherit the directly flag, which is what makes a bare-name load
	// unloadable under the concrete name it delegated to.
	if desc.DirectUnload {
		checkpoint := len(*acquired)
		for _, dep := range desc.Dependencies {
			if isCoreDependency(dep.FullName) {
				continue
			}
			if err := s.load(ctx, dep.FullName, directly, visiting, chain, acquired); err != nil {
				if dep.Optional {
					s.logger.Warn("optional dependency skipped",
						"module", fullName, "dependency", dep.FullName, "err", err)
					continue
				}
				s.rollback((*acquired)[checkpoint:])
				*acquired = (*acquired)[:checkpoint]
				return &DependencyFailedError{Module: fullName, Dependency: dep.FullName, Cause: err}
			}
		}
		return nil
	}

	var extra []moddesc.SearchPath
	if s.cfg != nil {
		for _, entry := range s.cfg.SearchPathsFor(fullName) {
			extra = append(extra, moddesc.SearchPath{
				Type:      entry.Type,
				Key:       entry.Key,
				SubFolder: entry.SubFolder,
				Priority:  entry.Priority,
			})
		}
	}
	root, err := s.resolver.ResolveRoot(ctx, desc, extra)
	if err != nil {
		return err
	}

	mod := &LoadedModule{
		FullName:  fullName,
		ShortName: short,
		Name:      requested,
		Root:      root,
		RefCount:  1,
		Direct:    directly,
		Abstract:  desc.IsAbstract(),
		Aliases:   desc.Aliases,
		Functions: desc.Functions,
		Category:  desc.Category,
	}
	if directly {
		mod.DirectRefs = 1
	}

	checkpoint := len(*acquired)
	for _, dep := range desc.Dependencies {
		if isCoreDependency(dep.FullName) {
			continue
		}
		if err := s.load(ctx, dep.FullName, false, visiting, chain, acquired); err != nil {
			if dep.Optional {
				s.logger.Warn("optional dependency skipped",
					"module", fullName, "dependency", dep.FullName, "err", err)
				continue
			}
			s.rollback((*acquired)[checkpoint:])
			*acquired = (*acquired)[:checkpoint]
			return &DependencyFailedError{Module: fullName, Dependency: dep.FullName, Cause: err}
		}
		mod.Dependencies = append(mod.Dependencies, dep.FullName)
	}

	s.mount(mod, desc)
	*acquired = append(*acquired, acquisition{short: short, direct: directly})
	return nil
}

// isCoreDependency recognizes the declared dependency on the core runtime
// module, which exists for scan filtering and never mounts.
func isCoreDependency(fullName string) bool {
	parsed, err := modname.Parse(fullName)
	return err == nil && parsed.Name == moddesc.CoreModuleName
}

// applyMergeRefs folds the descriptor's patch modules into the clone. A
// missing patch descriptor is a warning, not a failure: the base module
// still works without its site extensions.
func (s *Session) applyMergeRefs(desc *moddesc.Descriptor) {
	for _, ref := range desc.MergeRefs {
		patch, err := s.repo.Get(ref)
		if err != nil {
			s.logger.Warn("merge module not found, skipping",
				"module", desc.FullName, "merge", ref)
			continue
		}
		desc.Merge(patch)
		s.logger.Debug("merged patch descriptor", "module", desc.FullName, "merge", ref)
	}
}

// mount applies the descriptor's edits and declarations and registers the
// instance.
func (s *Session) mount(mod *LoadedModule, desc *moddesc.Descriptor) {
	for _, edit := range desc.PathEdits {
		mod.AppliedEdits = append(mod.AppliedEdits, applyEdit(s.env, edit, mod.Root))
	}
	s.pushDecls(mod)
	for name, value := range desc.Parameters {
		key := paramKey{Name: name}
		if _, exists := s.params[key]; !exists {
			s.params[key] = value
		}
	}

	s.loaded[mod.ShortName] = mod
	s.mountOrder = append(s.mountOrder, mod.ShortName)
	s.logger.Info("module mounted", "module", mod.FullName, "root", mod.Root, "direct", mod.Direct)
}

// rollback gives back the listed references newest-first. Dependency
// references of a rolled-back mount are separate entries in the same list,
// so unmounting here must not cascade.
func (s *Session) rollback(acquired []acquisition) {
	for i := len(acquired) - 1; i >= 0; i-- {
		mod, ok := s.loaded[acquired[i].short]
		if !ok {
			continue
		}
		mod.RefCount--
		if acquired[i].direct {
			mod.DirectRefs--
			if mod.DirectRefs <= 0 {
				mod.DirectRefs = 0
				mod.Direct = false
			}
		}
		if mod.RefCount <= 0 {
			s.unmount(mod)
		}
	}
}
