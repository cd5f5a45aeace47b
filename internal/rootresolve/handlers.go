// SPDX-License-Identifier: MPL-2.0

package rootresolve

import (
	"context"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"envmod-cli/pkg/moddesc"
)

type (
	// DirectoryHandler treats the search path key as a literal directory.
	DirectoryHandler struct{}

	// EnvHandler reads the candidate from an environment variable named by
	// the key. LookupEnv is injectable for tests.
	EnvHandler struct {
		LookupEnv func(string) (string, bool)
	}

	// RegistryHandler reads candidates from a TOML registry file mapping
	// keys to directories:
	//
	//	[paths]
	//	"HKLM/Software/NotepadPlusPlus" = "/opt/npp"
	//
	// The file is read once and cached for the resolver's lifetime.
	RegistryHandler struct {
		// Path is the registry file location.
		Path string

		once    sync.Once
		entries map[string]string
		loadErr error
	}

	registryFile struct {
		Paths map[string]string `toml:"paths"`
	}
)

// Resolve implements SearchPathHandler for literal directories.
func (DirectoryHandler) Resolve(_ context.Context, sp moddesc.SearchPath) (string, bool) {
	if sp.Key == "" {
		return "", false
	}
	return sp.Key, true
}

// Resolve implements SearchPathHandler for environment variables.
func (h EnvHandler) Resolve(_ context.Context, sp moddesc.SearchPath) (string, bool) {
	lookup := h.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(sp.Key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Resolve implements SearchPathHandler for registry keys. A missing or
// unreadable registry file yields no candidates rather than an error: the
// descriptor's other search paths still get their chance.
func (h *RegistryHandler) Resolve(_ context.Context, sp moddesc.SearchPath) (string, bool) {
	h.once.Do(h.load)
	if h.loadErr != nil {
		return "", false
	}
	value, ok := h.entries[sp.Key]
	return value, ok && value != ""
}

func (h *RegistryHandler) load() {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		h.loadErr = err
		return
	}
	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		h.loadErr = err
		return
	}
	h.entries = file.Paths
}
