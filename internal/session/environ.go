// SPDX-License-Identifier: MPL-2.0

package session

import (
	"os"
	"sort"
	"strings"
)

type (
	// Environ abstracts the environment variable table the session mutates.
	// The process-backed implementation drives real shells; the map-backed
	// one serves tests and dry runs.
	Environ interface {
		Get(name string) (string, bool)
		Set(name, value string)
		Unset(name string)
		// Names returns all variable names, sorted.
		Names() []string
	}

	// ProcessEnviron mutates the process environment via the os package.
	ProcessEnviron struct{}

	// MapEnviron is an in-memory environment table.
	MapEnviron struct {
		vars map[string]string
	}
)

// Get implements Environ.
func (ProcessEnviron) Get(name string) (string, bool) { return os.LookupEnv(name) }

// Set implements Environ.
func (ProcessEnviron) Set(name, value string) { os.Setenv(name, value) } //nolint:errcheck

// Unset implements Environ.
func (ProcessEnviron) Unset(name string) { os.Unsetenv(name) } //nolint:errcheck

// Names implements Environ.
func (ProcessEnviron) Names() []string {
	environ := os.Environ()
	names := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewMapEnviron creates a MapEnviron seeded with the given variables.
func NewMapEnviron(seed map[string]string) *MapEnviron {
	vars := make(map[string]string, len(seed))
	for k, v := range seed {
		vars[k] = v
	}
	return &MapEnviron{vars: vars}
}

// Get implements Environ.
func (m *MapEnviron) Get(name string) (string, bool) {
	v, ok := m.vars[name]
	return v, ok
}

// Set implements Environ.
func (m *MapEnviron) Set(name, value string) { m.vars[name] = value }

// Unset implements Environ.
func (m *MapEnviron) Unset(name string) { delete(m.vars, name) }

// Names implements Environ.
func (m *MapEnviron) Names() []string {
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
