// SPDX-License-Identifier: MPL-2.0

package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is the sentinel error wrapped by ConflictError.
	ErrConflict = errors.New("module conflict")
	// ErrCircularDependency is the sentinel error wrapped by CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrDependencyFailed is the sentinel error wrapped by DependencyFailedError.
	ErrDependencyFailed = errors.New("dependency failed to load")
	// ErrNotLoaded is the sentinel error wrapped by NotLoadedError.
	ErrNotLoaded = errors.New("module not loaded")
	// ErrDependencyOnly is the sentinel error wrapped by DependencyOnlyError.
	ErrDependencyOnly = errors.New("module loaded as dependency only")
	// ErrAbstractModule is the sentinel error wrapped by AbstractModuleError.
	ErrAbstractModule = errors.New("abstract module loaded directly")
)

type (
	// ConflictError reports an attempt to load a module whose version or
	// architecture contradicts an already-loaded instance of the same base
	// name. It wraps ErrConflict for errors.Is compatibility.
	ConflictError struct {
		Requested string
		Loaded    string
	}

	// CircularDependencyError reports a dependency chain that reaches a
	// module already being loaded. It wraps ErrCircularDependency.
	CircularDependencyError struct {
		// Chain lists the modules on the path to the repeated one, ending
		// with the module that closed the cycle.
		Chain []string
	}

	// DependencyFailedError reports a mandatory dependency that could not be
	// loaded; the failed parent's own loads have already been rolled back.
	// It wraps ErrDependencyFailed and chains to the underlying cause.
	DependencyFailedError struct {
		Module     string
		Dependency string
		Cause      error
	}

	// NotLoadedError reports an unload or switch of a module that is not in
	// the session. It wraps ErrNotLoaded.
	NotLoadedError struct {
		FullName string
	}

	// DependencyOnlyError reports a direct unload of a module that only
	// entered the session as a dependency. It wraps ErrDependencyOnly.
	DependencyOnlyError struct {
		FullName string
	}

	// AbstractModuleError reports a direct load of an abstract module, which
	// may only enter the session as a dependency. It wraps ErrAbstractModule.
	AbstractModuleError struct {
		FullName string
	}
)

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot load %s: conflicts with loaded module %s", e.Requested, e.Loaded)
}

// Unwrap returns ErrConflict for errors.Is compatibility.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface for CircularDependencyError.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Chain, " -> "))
}

// Unwrap returns ErrCircularDependency for errors.Is compatibility.
func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// Error implements the error interface for DependencyFailedError.
func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("cannot load %s: dependency %s failed: %v", e.Module, e.Dependency, e.Cause)
}

// Unwrap returns the underlying cause so errors.Is reaches both
// ErrDependencyFailed and the root failure.
func (e *DependencyFailedError) Unwrap() []error {
	return []error{ErrDependencyFailed, e.Cause}
}

// Error implements the error interface for NotLoadedError.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("module not loaded: %s", e.FullName)
}

// Unwrap returns ErrNotLoaded for errors.Is compatibility.
func (e *NotLoadedError) Unwrap() error { return ErrNotLoaded }

// Error implements the error interface for DependencyOnlyError.
func (e *DependencyOnlyError) Error() string {
	return fmt.Sprintf("%s is loaded as a dependency; unload the modules that need it or use --force", e.FullName)
}

// Unwrap returns ErrDependencyOnly for errors.Is compatibility.
func (e *DependencyOnlyError) Unwrap() error { return ErrDependencyOnly }

// Error implements the error interface for AbstractModuleError.
func (e *AbstractModuleError) Error() string {
	return fmt.Sprintf("%s is abstract and can only be loaded as a dependency", e.FullName)
}

// Unwrap returns ErrAbstractModule for errors.Is compatibility.
func (e *AbstractModuleError) Unwrap() error { return ErrAbstractModule }
