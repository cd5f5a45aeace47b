// SPDX-License-Identifier: MPL-2.0

package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"envmod-cli/pkg/moddesc"
	"envmod-cli/pkg/modname"
)

type (
	// persistedState is the TOML image of a session. Modules are stored in
	// mount order so restoring rebuilds the alias and function stacks with
	// the same winners.
	persistedState struct {
		Modules    []persistedModule `toml:"modules,omitempty"`
		Parameters []persistedParam  `toml:"parameters,omitempty"`
	}

	persistedModule struct {
		FullName     string              `toml:"full_name"`
		Root         string              `toml:"root,omitempty"`
		RefCount     int                 `toml:"ref_count"`
		Direct       bool                `toml:"direct,omitempty"`
		DirectRefs   int                 `toml:"direct_refs,omitempty"`
		Abstract     bool                `toml:"abstract,omitempty"`
		Category     string              `toml:"category,omitempty"`
		Dependencies []string            `toml:"dependencies,omitempty"`
		AppliedEdits []AppliedEdit       `toml:"applied_edits,omitempty"`
		Aliases      []persistedAlias    `toml:"aliases,omitempty"`
		Functions    []persistedFunction `toml:"functions,omitempty"`
	}

	persistedAlias struct {
		Name        string `toml:"name"`
		Definition  string `toml:"definition"`
		Description string `toml:"description,omitempty"`
	}

	persistedFunction struct {
		Name string `toml:"name"`
		Body string `toml:"body"`
	}

	persistedParam struct {
		Name       string `toml:"name"`
		VirtualEnv string `toml:"virtual_env,omitempty"`
		Value      string `toml:"value"`
	}
)

// Save writes the session state to path, atomically. A session with nothing
// loaded still writes a file, so a later Restore sees an empty registry
// rather than a stale one.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	state := persistedState{}
	for _, short := range s.mountOrder {
		mod, ok := s.loaded[short]
		if !ok {
			continue
		}
		pm := persistedModule{
			FullName:     mod.FullName,
			Root:         mod.Root,
			RefCount:     mod.RefCount,
			Direct:       mod.Direct,
			DirectRefs:   mod.DirectRefs,
			Abstract:     mod.Abstract,
			Category:     mod.Category,
			Dependencies: mod.Dependencies,
			AppliedEdits: mod.AppliedEdits,
		}
		for _, alias := range mod.Aliases {
			pm.Aliases = append(pm.Aliases, persistedAlias(alias))
		}
		for _, fn := range mod.Functions {
			pm.Functions = append(pm.Functions, persistedFunction(fn))
		}
		state.Modules = append(state.Modules, pm)
	}
	for key, value := range s.params {
		state.Parameters = append(state.Parameters, persistedParam{
			Name:       key.Name,
			VirtualEnv: key.VirtualEnv,
			Value:      value,
		})
	}
	sort.Slice(state.Parameters, func(i, j int) bool {
		if state.Parameters[i].Name != state.Parameters[j].Name {
			return state.Parameters[i].Name < state.Parameters[j].Name
		}
		return state.Parameters[i].VirtualEnv < state.Parameters[j].VirtualEnv
	})
	s.mu.Unlock()

	data, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session state: %w", err)
	}
	return nil
}

// Restore rebuilds the in-memory registry from a state file. The recorded
// mounts are trusted as-is: edits are not re-applied (the shell environment
// already carries them) and resolution is not re-run. A missing state file
// leaves the session empty.
func (s *Session) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read session state: %w", err)
	}
	var state persistedState
	if err := toml.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode session state %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = map[string]*LoadedModule{}
	s.mountOrder = nil
	s.aliases = map[string][]aliasEntry{}
	s.functions = map[string][]functionEntry{}
	s.params = map[paramKey]string{}

	for _, pm := range state.Modules {
		parsed, err := modname.Parse(pm.FullName)
		if err != nil {
			return fmt.Errorf("session state %s holds invalid module name %q: %w", path, pm.FullName, err)
		}
		mod := &LoadedModule{
			FullName:     pm.FullName,
			ShortName:    parsed.Name,
			Name:         parsed,
			Root:         pm.Root,
			RefCount:     pm.RefCount,
			Direct:       pm.Direct,
			DirectRefs:   pm.DirectRefs,
			Abstract:     pm.Abstract,
			Category:     pm.Category,
			Dependencies: pm.Dependencies,
			AppliedEdits: pm.AppliedEdits,
		}
		// States written before direct references were counted carry only
		// the flag; treat the flag as one reference.
		if mod.Direct && mod.DirectRefs == 0 {
			mod.DirectRefs = 1
		}
		for _, alias := range pm.Aliases {
			mod.Aliases = append(mod.Aliases, moddesc.AliasDecl(alias))
		}
		for _, fn := range pm.Functions {
			mod.Functions = append(mod.Functions, moddesc.FunctionDecl(fn))
		}
		s.loaded[mod.ShortName] = mod
		s.mountOrder = append(s.mountOrder, mod.ShortName)
		s.pushDecls(mod)
	}
	for _, param := range state.Parameters {
		s.params[paramKey{Name: param.Name, VirtualEnv: param.VirtualEnv}] = param.Value
	}
	return nil
}
