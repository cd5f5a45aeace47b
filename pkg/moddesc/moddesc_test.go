// SPDX-License-Identifier: MPL-2.0

package moddesc

import (
	"errors"
	"strings"
	"testing"
)

const sampleDescriptor = `
module_type: "default"
dependencies: [
	{name: "EnvironmentModuleCore"},
	{name: "Aspell-2_1-x86", optional: true},
]
default_search_paths: [
	{type: "directory", key: "/opt/npp", priority: 10},
	{type: "env", key: "NOTEPAD_ROOT", priority: 20},
	{type: "directory", key: "/usr/local/npp", priority: 10},
]
required_items: [
	{type: "file", value: "notepad++"},
]
path_edits: [
	{variable: "PATH", mode: "prepend", values: ["bin"], key: "root"},
]
aliases: [
	{name: "npp", definition: "notepad++", description: "launch editor"},
]
functions: [
	{name: "npp_here", body: "notepad++ \"$PWD\""},
]
parameters: {editor: "notepad++"}
category: "Editors"
style_version: 3.0
`

func TestDecodeBytes_Valid(t *testing.T) {
	t.Parallel()
	desc, err := DecodeBytes([]byte(sampleDescriptor), "/mods/NotepadPlusPlus-x64.envmod.cue")
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	if desc.FullName != "NotepadPlusPlus-x64" {
		t.Errorf("FullName = %q, want NotepadPlusPlus-x64", desc.FullName)
	}
	if desc.BaseDirectory != "/mods" {
		t.Errorf("BaseDirectory = %q, want /mods", desc.BaseDirectory)
	}
	if desc.ModuleType != TypeDefault {
		t.Errorf("ModuleType = %q, want default", desc.ModuleType)
	}
	if !desc.DependsOnCore() {
		t.Error("expected DependsOnCore to be true")
	}
	if len(desc.Dependencies) != 2 || !desc.Dependencies[1].Optional {
		t.Errorf("unexpected dependencies: %+v", desc.Dependencies)
	}
	if desc.Parameters["editor"] != "notepad++" {
		t.Errorf("parameters = %+v", desc.Parameters)
	}
}

func TestDecodeBytes_SearchPathOrdering(t *testing.T) {
	t.Parallel()
	desc, err := DecodeBytes([]byte(sampleDescriptor), "/mods/NotepadPlusPlus-x64.envmod.cue")
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	// Descending priority, declaration order among equals.
	wantKeys := []string{"NOTEPAD_ROOT", "/opt/npp", "/usr/local/npp"}
	if len(desc.SearchPaths) != len(wantKeys) {
		t.Fatalf("got %d search paths, want %d", len(desc.SearchPaths), len(wantKeys))
	}
	for i, key := range wantKeys {
		if desc.SearchPaths[i].Key != key {
			t.Errorf("search path %d key = %q, want %q", i, desc.SearchPaths[i].Key, key)
		}
	}
}

func TestDecodeBytes_DefaultsToDefaultType(t *testing.T) {
	t.Parallel()
	desc, err := DecodeBytes([]byte(`category: "Tools"`), "/mods/Foo.envmod.cue")
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if desc.ModuleType != TypeDefault {
		t.Errorf("ModuleType = %q, want default", desc.ModuleType)
	}
}

func TestDecodeBytes_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	_, err := DecodeBytes([]byte(`totally_unknown: true`), "/mods/Foo.envmod.cue")
	if err == nil {
		t.Fatal("expected schema violation for unknown key, got nil")
	}
}

func TestDecodeBytes_RejectsBadFileName(t *testing.T) {
	t.Parallel()
	if _, err := DecodeBytes([]byte(``), "/mods/Foo.cue"); err == nil {
		t.Error("expected error for missing descriptor suffix")
	}
	if _, err := DecodeBytes([]byte(``), "/mods/bad name.envmod.cue"); err == nil {
		t.Error("expected error for invalid module name")
	}
}

func TestDecodeBytes_RejectsBrokenShellSyntax(t *testing.T) {
	t.Parallel()
	broken := `
functions: [
	{name: "oops", body: "if true; then"},
]
`
	_, err := DecodeBytes([]byte(broken), "/mods/Foo.envmod.cue")
	if err == nil {
		t.Fatal("expected shell syntax error, got nil")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("error should name the function: %v", err)
	}
}

func TestDecodeBytes_RejectsBadEnums(t *testing.T) {
	t.Parallel()
	cases := []string{
		`module_type: "virtual"`,
		`path_edits: [{variable: "PATH", mode: "insert", values: ["x"]}]`,
		`default_search_paths: [{type: "url", key: "x"}]`,
	}
	for _, src := range cases {
		if _, err := DecodeBytes([]byte(src), "/mods/Foo.envmod.cue"); err == nil {
			t.Errorf("expected schema rejection for %q", src)
		}
	}
}

func TestModuleType_IsValid(t *testing.T) {
	t.Parallel()
	for _, valid := range []ModuleType{TypeDefault, TypeMeta, TypeAbstract} {
		if ok, _ := valid.IsValid(); !ok {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	ok, errs := ModuleType("bogus").IsValid()
	if ok {
		t.Fatal("expected bogus type to be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidModuleType) {
		t.Errorf("expected ErrInvalidModuleType, got %v", errs[0])
	}
}

func TestDescriptor_CloneAndMerge(t *testing.T) {
	t.Parallel()
	base, err := DecodeBytes([]byte(sampleDescriptor), "/mods/NotepadPlusPlus-x64.envmod.cue")
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	patch := &Descriptor{
		PathEdits:  []PathEdit{{Variable: "MANPATH", Mode: EditAppend, Values: []string{"man"}}},
		Parameters: map[string]string{"editor": "patched", "theme": "dark"},
	}

	clone := base.Clone()
	clone.Merge(patch)

	if len(base.PathEdits) != 1 {
		t.Errorf("merge mutated the cached template: %+v", base.PathEdits)
	}
	if base.Parameters["editor"] != "notepad++" {
		t.Errorf("merge mutated cached parameters: %+v", base.Parameters)
	}
	if len(clone.PathEdits) != 2 {
		t.Errorf("clone should carry merged edits, got %+v", clone.PathEdits)
	}
	if clone.Parameters["editor"] != "patched" || clone.Parameters["theme"] != "dark" {
		t.Errorf("patch parameters should win: %+v", clone.Parameters)
	}
}
