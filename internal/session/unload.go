// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"

	"envmod-cli/pkg/modname"
)

// Unload dismounts a module. Only directly-loaded modules can be unloaded
// by name; force overrides that and also dismounts regardless of remaining
// references from dependents. Dependencies whose last reference goes away
// cascade out of the session.
func (s *Session) Unload(fullName string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requested, err := modname.Parse(fullName)
	if err != nil {
		return err
	}

	mod, ok := s.loaded[requested.Name]
	if !ok || requested.ConflictsWith(mod.Name) {
		return &NotLoadedError{FullName: fullName}
	}
	if !mod.Direct && !force {
		return &DependencyOnlyError{FullName: mod.FullName}
	}

	// One unload gives back one direct reference. Direct status survives
	// while other direct loads still hold the instance, so repeated direct
	// loads stay unloadable without force.
	mod.DirectRefs--
	if mod.DirectRefs <= 0 {
		mod.DirectRefs = 0
		mod.Direct = false
	}
	s.release(mod.ShortName, force)
	return nil
}

// Switch replaces one directly-loaded module with another in a single
// operation, e.g. moving between versions of the same tool.
func (s *Session) Switch(ctx context.Context, oldName, newName string) error {
	if err := s.Unload(oldName, false); err != nil {
		return err
	}
	return s.Load(ctx, newName, true)
}

// release gives back one reference on a loaded module. At zero references
// (or under force) the module is dismounted and its own dependency
// references are released recursively.
func (s *Session) release(short string, force bool) {
	mod, ok := s.loaded[short]
	if !ok {
		return
	}
	mod.RefCount--
	if mod.RefCount > 0 && !force {
		s.logger.Debug("module still referenced",
			"module", mod.FullName, "refcount", mod.RefCount)
		return
	}

	s.unmount(mod)
	for _, dep := range mod.Dependencies {
		parsed, err := modname.Parse(dep)
		if err != nil {
			continue
		}
		s.release(parsed.Name, false)
	}
}

// unmount reverses the module's environment edits newest-first, removes its
// alias and function declarations, and drops it from the registry.
func (s *Session) unmount(mod *LoadedModule) {
	for i := len(mod.AppliedEdits) - 1; i >= 0; i-- {
		revertEdit(s.env, mod.AppliedEdits[i])
	}
	s.popDecls(mod)

	delete(s.loaded, mod.ShortName)
	for i, short := range s.mountOrder {
		if short == mod.ShortName {
			s.mountOrder = append(s.mountOrder[:i], s.mountOrder[i+1:]...)
			break
		}
	}
	s.logger.Info("module dismounted", "module", mod.FullName)
}
