// SPDX-License-Identifier: MPL-2.0

// Package moddesc defines the environment module descriptor model and its
// CUE-backed decoding.
//
// A descriptor file (<FullName>.envmod.cue) is the immutable template for a
// module: its type, dependencies, search paths, required items, environment
// edits, aliases, functions and parameters. Descriptors are decoded once
// per scan, validated against an embedded schema with closed structs, and
// cached for the process lifetime. Shell snippets embedded in a descriptor
// are syntax-checked at decode time.
package moddesc
