// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"mvdan.cc/sh/v3/syntax"

	"envmod-cli/pkg/modname"
)

//go:embed moddesc_schema.cue
var descriptorSchema string

// maxDescriptorSize bounds descriptor files so a stray file cannot make the
// scan allocate unbounded memory.
const maxDescriptorSize = 1 << 20

// Decode reads and decodes a module descriptor from the given path. The
// module's full name is taken from the file name, with DescriptorSuffix
// stripped, and must satisfy the name grammar.
func Decode(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor at %s: %w", path, err)
	}
	return DecodeBytes(data, path)
}

// DecodeBytes decodes descriptor content from bytes. It performs the
// 3-step CUE flow: compile the embedded schema, compile the user file,
// then unify, validate and decode into a Descriptor.
func DecodeBytes(data []byte, path string) (*Descriptor, error) {
	base := filepath.Base(path)
	fullName, ok := strings.CutSuffix(base, DescriptorSuffix)
	if !ok {
		return nil, fmt.Errorf("descriptor file %s does not end in %s", base, DescriptorSuffix)
	}
	if _, err := modname.Parse(fullName); err != nil {
		return nil, fmt.Errorf("descriptor file name: %w", err)
	}

	if len(data) > maxDescriptorSize {
		return nil, fmt.Errorf("descriptor %s exceeds %d bytes", path, maxDescriptorSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(descriptorSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile descriptor schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Descriptor"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, fmt.Errorf("descriptor %s does not match schema: %w", path, err)
	}

	var desc Descriptor
	if err := unified.Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor %s: %w", path, err)
	}

	desc.FullName = fullName
	desc.BaseDirectory = filepath.Dir(path)
	if desc.ModuleType == "" {
		desc.ModuleType = TypeDefault
	}
	if valid, errs := desc.ModuleType.IsValid(); !valid {
		return nil, fmt.Errorf("descriptor %s: %w", path, errs[0])
	}

	sortSearchPaths(desc.SearchPaths)

	if err := checkShellDecls(&desc); err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}

	return &desc, nil
}

// checkShellDecls parses every alias definition and function body so a
// broken shell snippet is rejected at decode time instead of corrupting the
// session when the module mounts.
func checkShellDecls(desc *Descriptor) error {
	parser := syntax.NewParser()

	for _, alias := range desc.Aliases {
		if _, err := parser.Parse(strings.NewReader(alias.Definition), alias.Name); err != nil {
			return fmt.Errorf("alias %q has invalid shell syntax: %w", alias.Name, err)
		}
	}
	for _, fn := range desc.Functions {
		if _, err := parser.Parse(strings.NewReader(fn.Body), fn.Name); err != nil {
			return fmt.Errorf("function %q has invalid shell syntax: %w", fn.Name, err)
		}
	}
	return nil
}
