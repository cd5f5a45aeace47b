// SPDX-License-Identifier: MPL-2.0

// Package modname implements the environment module name grammar.
//
// A full module name is a dash-separated sequence of segments:
//
//	Name[-Version][-Architecture][-AdditionalOptions]
//
// The name segment is mandatory; the remaining segments are optional but
// strictly ordered. Parsing uses a sliding window over the optional
// patterns: each segment is tried against the current pattern and, on a
// miss, retried against the next one. Patterns are never revisited, so a
// version-looking token can never follow an architecture token.
package modname

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// ArchX64 is the 64-bit architecture token.
	ArchX64 = "x64"
	// ArchX86 is the 32-bit architecture token.
	ArchX86 = "x86"
)

// ErrInvalidName is the sentinel error wrapped by ParseError.
var ErrInvalidName = errors.New("invalid module name")

var (
	namePattern    = regexp.MustCompile(`^[0-9A-Za-z_]+$`)
	versionPattern = regexp.MustCompile(`^[0-9]+(?:_[0-9]+)*$`)
	archPattern    = regexp.MustCompile(`^(?:x64|x86)$`)
	optionsPattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)
)

type (
	// ModuleName is the parsed identity of an environment module. Equality
	// and conflict checks across the session operate on these fields, never
	// on raw name strings.
	ModuleName struct {
		// Name is the base module name (e.g. "NotepadPlusPlus").
		Name string
		// Version is the optional version token with underscore separators
		// (e.g. "2_1"). Empty when the name carries no version.
		Version string
		// Architecture is "x64" or "x86", or empty.
		Architecture string
		// AdditionalOptions is a free-form trailing qualifier, or empty.
		AdditionalOptions string
	}

	// ParseError reports a full name that does not match the grammar.
	// It wraps ErrInvalidName for errors.Is compatibility.
	ParseError struct {
		FullName string
		Reason   string
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.FullName, e.Reason)
}

// Unwrap returns ErrInvalidName for errors.Is compatibility.
func (e *ParseError) Unwrap() error { return ErrInvalidName }

// Parse splits a full module name into its ModuleName fields.
//
// The first segment must match the name pattern. Each remaining segment is
// matched against the version, architecture and additional-options patterns
// in that order; a segment that misses the current pattern is retried
// against the next one. Segments left over after all patterns are exhausted
// make the whole name invalid.
func Parse(fullName string) (ModuleName, error) {
	if strings.TrimSpace(fullName) == "" {
		return ModuleName{}, &ParseError{FullName: fullName, Reason: "empty name"}
	}

	segments := strings.Split(fullName, "-")
	if !namePattern.MatchString(segments[0]) {
		return ModuleName{}, &ParseError{
			FullName: fullName,
			Reason:   fmt.Sprintf("name segment %q must match [0-9A-Za-z_]+", segments[0]),
		}
	}

	parsed := ModuleName{Name: segments[0]}

	// The optional patterns form a one-way window: consuming a segment
	// advances to the next pattern, and skipping a pattern is permanent.
	fields := []struct {
		pattern *regexp.Regexp
		assign  func(string)
	}{
		{versionPattern, func(s string) { parsed.Version = s }},
		{archPattern, func(s string) { parsed.Architecture = s }},
		{optionsPattern, func(s string) { parsed.AdditionalOptions = s }},
	}

	fieldIdx := 0
	for _, segment := range segments[1:] {
		matched := false
		for fieldIdx < len(fields) {
			if fields[fieldIdx].pattern.MatchString(segment) {
				fields[fieldIdx].assign(segment)
				fieldIdx++
				matched = true
				break
			}
			fieldIdx++
		}
		if !matched {
			return ModuleName{}, &ParseError{
				FullName: fullName,
				Reason:   fmt.Sprintf("segment %q matches no remaining name field", segment),
			}
		}
	}

	return parsed, nil
}

// String formats the ModuleName back into its full-name form. For every
// valid full name N, Parse(Parse(N).String()) equals Parse(N).
func (m ModuleName) String() string {
	parts := []string{m.Name}
	if m.Version != "" {
		parts = append(parts, m.Version)
	}
	if m.Architecture != "" {
		parts = append(parts, m.Architecture)
	}
	if m.AdditionalOptions != "" {
		parts = append(parts, m.AdditionalOptions)
	}
	return strings.Join(parts, "-")
}

// Major returns the leading version component as an integer, or -1 when the
// name carries no version.
func (m ModuleName) Major() int {
	if m.Version == "" {
		return -1
	}
	head, _, _ := strings.Cut(m.Version, "_")
	major, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return major
}

// SemVer converts the underscore-separated version token into a semantic
// version usable for ordering (e.g. "2_1" becomes "2.1.0"). Returns nil
// when no version is present or the token cannot be interpreted.
func (m ModuleName) SemVer() *semver.Version {
	if m.Version == "" {
		return nil
	}
	v, err := semver.NewVersion(strings.ReplaceAll(m.Version, "_", "."))
	if err != nil {
		return nil
	}
	return v
}

// ConflictsWith reports whether two names of the same base module describe
// incompatible instances. A field only conflicts when both sides declare it
// and the declarations differ; an empty field matches anything, which is
// what lets a bare "Foo" request coexist with a loaded "Foo-2_1-x64".
func (m ModuleName) ConflictsWith(other ModuleName) bool {
	if m.Name != other.Name {
		return false
	}
	if m.Version != "" && other.Version != "" && m.Version != other.Version {
		return true
	}
	if m.Architecture != "" && other.Architecture != "" && m.Architecture != other.Architecture {
		return true
	}
	return false
}
