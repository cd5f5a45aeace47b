// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"envmod-cli/internal/repository"
	"envmod-cli/internal/rootresolve"
	"envmod-cli/pkg/moddesc"
)

// fixture bundles a session over a temp module root and a map environment.
type fixture struct {
	root string
	repo *repository.Repository
	env  *MapEnviron
	sess *Session
}

func newFixture(t *testing.T, env map[string]string) *fixture {
	t.Helper()
	return &fixture{
		root: t.TempDir(),
		env:  NewMapEnviron(env),
	}
}

// descriptor writes one descriptor file into the fixture's module root.
// The core dependency is added automatically.
func (f *fixture) descriptor(t *testing.T, fullName, body string) {
	t.Helper()
	content := withCoreDependency(body)
	path := filepath.Join(f.root, fullName+moddesc.DescriptorSuffix)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// withCoreDependency ensures the descriptor body declares the core
// dependency exactly once. A body with its own dependencies list gets the
// core entry spliced in, since duplicate CUE fields with different list
// literals conflict.
func withCoreDependency(body string) string {
	const listOpen = "dependencies: ["
	if i := strings.Index(body, listOpen); i >= 0 {
		if strings.Contains(body, moddesc.CoreModuleName) {
			return body
		}
		at := i + len(listOpen)
		return body[:at] + `{name: "EnvironmentModuleCore"}, ` + body[at:]
	}
	return `dependencies: [{name: "EnvironmentModuleCore"}]
` + body
}

// start scans the root and builds the session.
func (f *fixture) start(t *testing.T) *Session {
	t.Helper()
	quiet := log.New(io.Discard)
	f.repo = repository.New([]string{f.root},
		repository.WithLogger(quiet), repository.WithHostArch("x64"))
	if err := f.repo.Rescan(); err != nil {
		t.Fatal(err)
	}
	resolver := rootresolve.New(rootresolve.WithLogger(quiet))
	f.sess = New(f.repo, resolver, nil, WithEnviron(f.env), WithLogger(quiet))
	return f.sess
}

func sep() string { return string(os.PathListSeparator) }

func TestLoad_AppliesEditsAndRegisters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Aspell-2_1-x64", `path_edits: [
	{variable: "PATH", mode: "prepend", values: ["/opt/aspell/bin"]},
	{variable: "ASPELL_HOME", mode: "set", values: ["/opt/aspell"]},
]
aliases: [{name: "spell", definition: "aspell check"}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "Aspell-2_1-x64", true); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	path, _ := f.env.Get("PATH")
	if want := "/opt/aspell/bin" + sep() + "/usr/bin"; path != want {
		t.Errorf("PATH = %q, want %q", path, want)
	}
	if home, _ := f.env.Get("ASPELL_HOME"); home != "/opt/aspell" {
		t.Errorf("ASPELL_HOME = %q", home)
	}

	mod, ok := sess.Get("Aspell")
	if !ok {
		t.Fatal("module not registered under short name")
	}
	if mod.RefCount != 1 || !mod.Direct {
		t.Errorf("RefCount=%d Direct=%v, want 1/true", mod.RefCount, mod.Direct)
	}
	if _, ok := sess.Aliases()["spell"]; !ok {
		t.Error("alias not installed")
	}
}

func TestUnload_ReversesEditsExactly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "A", `path_edits: [{variable: "PATH", mode: "append", values: ["/a/bin"]}]`)
	f.descriptor(t, "B", `path_edits: [{variable: "PATH", mode: "append", values: ["/b/bin"]}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "A", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "B", true); err != nil {
		t.Fatal(err)
	}

	// Removing A must excise exactly A's contribution, leaving B's intact.
	if err := sess.Unload("A", false); err != nil {
		t.Fatalf("Unload(A) error: %v", err)
	}
	path, _ := f.env.Get("PATH")
	if want := "/usr/bin" + sep() + "/b/bin"; path != want {
		t.Errorf("PATH = %q, want %q", path, want)
	}

	if err := sess.Unload("B", false); err != nil {
		t.Fatal(err)
	}
	path, _ = f.env.Get("PATH")
	if path != "/usr/bin" {
		t.Errorf("PATH = %q, want /usr/bin", path)
	}
}

func TestUnload_SetEditRestoresPrevious(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"EDITOR": "vi"})
	f.descriptor(t, "Editor", `path_edits: [
	{variable: "EDITOR", mode: "set", values: ["nano"]},
	{variable: "EDITOR_FLAGS", mode: "set", values: ["--fast"]},
]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "Editor", true); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.env.Get("EDITOR"); v != "nano" {
		t.Errorf("EDITOR = %q", v)
	}

	if err := sess.Unload("Editor", false); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.env.Get("EDITOR"); v != "vi" {
		t.Errorf("EDITOR = %q, want restored vi", v)
	}
	if _, ok := f.env.Get("EDITOR_FLAGS"); ok {
		t.Error("EDITOR_FLAGS should be unset after reversal")
	}
}

func TestLoad_DependencyChainAndCascade(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Lib", `path_edits: [{variable: "LIB_HOME", mode: "set", values: ["/opt/lib"]}]`)
	f.descriptor(t, "App", `dependencies: [{name: "Lib"}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "App", true); err != nil {
		t.Fatal(err)
	}

	lib, ok := sess.Get("Lib")
	if !ok {
		t.Fatal("dependency not loaded")
	}
	if lib.Direct {
		t.Error("dependency must not be marked direct")
	}

	// A dependency-only module refuses direct unload.
	if err := sess.Unload("Lib", false); !errors.Is(err, ErrDependencyOnly) {
		t.Fatalf("expected ErrDependencyOnly, got %v", err)
	}

	// Unloading the dependent cascades the dependency out.
	if err := sess.Unload("App", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := sess.Get("Lib"); ok {
		t.Error("dependency survived the cascade")
	}
	if _, ok := f.env.Get("LIB_HOME"); ok {
		t.Error("dependency edits not reverted")
	}
}

func TestLoad_SharedDependencyRefCounted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Shared", "")
	f.descriptor(t, "One", `dependencies: [{name: "Shared"}]`)
	f.descriptor(t, "Two", `dependencies: [{name: "Shared"}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "One", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "Two", true); err != nil {
		t.Fatal(err)
	}

	shared, _ := sess.Get("Shared")
	if shared.RefCount != 2 {
		t.Errorf("RefCount = %d, want 2", shared.RefCount)
	}

	if err := sess.Unload("One", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := sess.Get("Shared"); !ok {
		t.Fatal("shared dependency dropped while still referenced")
	}
	if err := sess.Unload("Two", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := sess.Get("Shared"); ok {
		t.Error("shared dependency survived its last reference")
	}
}

func TestLoad_ConflictOnVersionMismatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Tool-2-x64", "")
	f.descriptor(t, "Tool-3-x64", "")
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "Tool-2-x64", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "Tool-3-x64", true); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// A bare-name request is compatible with any loaded instance.
	if err := sess.Load(ctx, "Tool", true); err != nil {
		t.Fatalf("bare-name re-entry should not conflict: %v", err)
	}
	mod, _ := sess.Get("Tool")
	if mod.RefCount != 2 {
		t.Errorf("RefCount = %d after re-entry, want 2", mod.RefCount)
	}
}

func TestLoad_RepeatedDirectLoadMutatesOnceAndUnloadsSymmetrically(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Tool", `path_edits: [{variable: "PATH", mode: "append", values: ["/tool/bin"]}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "Tool", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "Tool", true); err != nil {
		t.Fatal(err)
	}

	// The second direct load is a reference, not a second mutation.
	want := "/usr/bin" + sep() + "/tool/bin"
	if path, _ := f.env.Get("PATH"); path != want {
		t.Errorf("PATH = %q after double load, want %q", path, want)
	}
	mod, _ := sess.Get("Tool")
	if mod.RefCount != 2 || !mod.Direct {
		t.Fatalf("RefCount=%d Direct=%v, want 2/true", mod.RefCount, mod.Direct)
	}

	// Two direct loads take two unforced unloads.
	if err := sess.Unload("Tool", false); err != nil {
		t.Fatalf("first Unload() error: %v", err)
	}
	mod, ok := sess.Get("Tool")
	if !ok {
		t.Fatal("module dropped while still directly referenced")
	}
	if !mod.Direct {
		t.Error("direct status lost while a direct reference remains")
	}
	if path, _ := f.env.Get("PATH"); path != want {
		t.Errorf("PATH = %q after first unload, want %q", path, want)
	}

	if err := sess.Unload("Tool", false); err != nil {
		t.Fatalf("second Unload() error: %v", err)
	}
	if _, ok := sess.Get("Tool"); ok {
		t.Error("module survived its last direct reference")
	}
	if path, _ := f.env.Get("PATH"); path != "/usr/bin" {
		t.Errorf("PATH = %q, want restored /usr/bin", path)
	}
}

func TestUnload_DependentReferenceOutlivesDirectOne(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Lib", "")
	f.descriptor(t, "App", `dependencies: [{name: "Lib"}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "App", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "Lib", true); err != nil {
		t.Fatal(err)
	}

	// Giving back the direct reference leaves the dependent's reference,
	// which blocks further unforced unloads.
	if err := sess.Unload("Lib", false); err != nil {
		t.Fatalf("Unload() of directly re-loaded dependency: %v", err)
	}
	if _, ok := sess.Get("Lib"); !ok {
		t.Fatal("dependency dropped while App still needs it")
	}
	if err := sess.Unload("Lib", false); !errors.Is(err, ErrDependencyOnly) {
		t.Fatalf("expected ErrDependencyOnly, got %v", err)
	}
}

func TestLoad_AbstractOnlyAsDependency(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Toolchain", `module_type: "abstract"
path_edits: [{variable: "PATH", mode: "append", values: ["/tc/bin"]}]`)
	f.descriptor(t, "Compiler", `dependencies: [{name: "Toolchain"}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "Toolchain", true); !errors.Is(err, ErrAbstractModule) {
		t.Fatalf("expected ErrAbstractModule, got %v", err)
	}
	if len(sess.List()) != 0 {
		t.Error("rejected abstract load left modules mounted")
	}
	if path, _ := f.env.Get("PATH"); path != "/usr/bin" {
		t.Errorf("PATH = %q, want untouched /usr/bin", path)
	}

	// As a dependency the abstract module loads normally.
	if err := sess.Load(ctx, "Compiler", true); err != nil {
		t.Fatal(err)
	}
	tc, ok := sess.Get("Toolchain")
	if !ok {
		t.Fatal("abstract dependency not loaded")
	}
	if tc.Direct {
		t.Error("abstract dependency must not be direct")
	}

	// A later direct request cannot promote the loaded instance either.
	if err := sess.Load(ctx, "Toolchain", true); !errors.Is(err, ErrAbstractModule) {
		t.Fatalf("expected ErrAbstractModule on re-entry, got %v", err)
	}
	if tc.RefCount != 1 {
		t.Errorf("RefCount = %d after rejected re-entry, want 1", tc.RefCount)
	}
}

func TestUnload_AppendToEmptyValueRestoresEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"CLASSPATH": ""})
	f.descriptor(t, "Java", `path_edits: [{variable: "CLASSPATH", mode: "append", values: ["/java/lib"]}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "Java", true); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.env.Get("CLASSPATH"); v != "/java/lib" {
		t.Errorf("CLASSPATH = %q", v)
	}

	// The variable was set (empty) before the edit; reversal must not unset it.
	if err := sess.Unload("Java", false); err != nil {
		t.Fatal(err)
	}
	v, ok := f.env.Get("CLASSPATH")
	if !ok {
		t.Fatal("CLASSPATH unset, want restored empty value")
	}
	if v != "" {
		t.Errorf("CLASSPATH = %q, want empty", v)
	}
}

func TestLoad_CycleDetected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "A", `dependencies: [{name: "B"}]`)
	f.descriptor(t, "B", `dependencies: [{name: "A"}]`)
	sess := f.start(t)

	err := sess.Load(context.Background(), "A", true)
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	var cde *CircularDependencyError
	if errors.As(err, &cde) {
		// DependencyFailedError may wrap it; the chain must name the cycle.
		if len(cde.Chain) == 0 || cde.Chain[len(cde.Chain)-1] != "A" {
			t.Errorf("Chain = %v, want to end at A", cde.Chain)
		}
	}
	if len(sess.List()) != 0 {
		t.Error("failed load left modules mounted")
	}
}

func TestLoad_MandatoryDependencyFailureRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Good", `path_edits: [{variable: "PATH", mode: "append", values: ["/good/bin"]}]`)
	f.descriptor(t, "App", `dependencies: [{name: "Good"}, {name: "Missing"}]
path_edits: [{variable: "PATH", mode: "append", values: ["/app/bin"]}]`)
	sess := f.start(t)

	err := sess.Load(context.Background(), "App", true)
	if !errors.Is(err, ErrDependencyFailed) {
		t.Fatalf("expected ErrDependencyFailed, got %v", err)
	}
	if !errors.Is(err, repository.ErrModuleNotFound) {
		t.Errorf("expected the cause to surface through the chain, got %v", err)
	}

	if len(sess.List()) != 0 {
		t.Error("rollback left modules mounted")
	}
	if path, _ := f.env.Get("PATH"); path != "/usr/bin" {
		t.Errorf("PATH = %q, want untouched /usr/bin", path)
	}
}

func TestLoad_OptionalDependencyFailureTolerated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "App", `dependencies: [{name: "Missing", optional: true}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "App", true); err != nil {
		t.Fatalf("optional failure must not fail the load: %v", err)
	}
	if _, ok := sess.Get("App"); !ok {
		t.Error("module missing after tolerated optional failure")
	}
}

func TestLoad_DirectUnloadDelegates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Notepad-1_2-x64", `path_edits: [{variable: "PATH", mode: "append", values: ["/npp/bin"]}]`)
	f.descriptor(t, "NotepadDefault", `module_type: "meta"
direct_unload: true
dependencies: [{name: "EnvironmentModuleCore"}, {name: "Notepad-1_2-x64"}]
path_edits: [{variable: "NEVER_SET", mode: "set", values: ["x"]}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "NotepadDefault", true); err != nil {
		t.Fatal(err)
	}

	// The delegating module itself never mounts and its edits never apply.
	if _, ok := sess.Get("NotepadDefault"); ok {
		t.Error("delegating module must not persist in the registry")
	}
	if _, ok := f.env.Get("NEVER_SET"); ok {
		t.Error("delegating module's own edits must never apply")
	}

	// The concrete target inherited the direct flag.
	concrete, ok := sess.Get("Notepad")
	if !ok {
		t.Fatal("delegation target not loaded")
	}
	if !concrete.Direct {
		t.Error("delegation target must inherit the direct flag")
	}
	if err := sess.Unload("Notepad-1_2-x64", false); err != nil {
		t.Fatalf("direct unload of delegation target failed: %v", err)
	}
}

func TestLoad_SynthesizedMetaRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Notepad-1_2-x64", "")
	sess := f.start(t)

	// Loading by bare name goes through the synthesized meta.
	if err := sess.Load(context.Background(), "Notepad", true); err != nil {
		t.Fatal(err)
	}
	mod, ok := sess.Get("Notepad")
	if !ok {
		t.Fatal("concrete module not loaded via synthesized meta")
	}
	if mod.FullName != "Notepad-1_2-x64" || !mod.Direct {
		t.Errorf("loaded %q Direct=%v", mod.FullName, mod.Direct)
	}
	if err := sess.Unload("Notepad-1_2-x64", false); err != nil {
		t.Fatalf("unload by concrete name after bare-name load failed: %v", err)
	}
}

func TestAliasStacks_TopWinsAndUnwinds(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "VimLite", `aliases: [{name: "edit", definition: "vim -u NONE"}]`)
	f.descriptor(t, "VimFull", `aliases: [{name: "edit", definition: "vim"}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "VimLite", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Load(ctx, "VimFull", true); err != nil {
		t.Fatal(err)
	}
	if def := sess.Aliases()["edit"].Definition; def != "vim" {
		t.Errorf("top of stack = %q, want later module's definition", def)
	}

	if err := sess.Unload("VimFull", false); err != nil {
		t.Fatal(err)
	}
	if def := sess.Aliases()["edit"].Definition; def != "vim -u NONE" {
		t.Errorf("after pop = %q, want earlier module's definition", def)
	}

	if err := sess.Unload("VimLite", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := sess.Aliases()["edit"]; ok {
		t.Error("alias survived its last owner")
	}
}

func TestParameters_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Java-17", `parameters: {"java.heap": "512m"}`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "Java-17", true); err != nil {
		t.Fatal(err)
	}
	if v, _ := sess.GetParam("java.heap", ""); v != "512m" {
		t.Errorf("default param = %q", v)
	}

	sess.SetParam("java.heap", "", "1g")
	sess.SetParam("java.heap", "prod", "4g")
	if v, _ := sess.GetParam("java.heap", ""); v != "1g" {
		t.Errorf("override = %q", v)
	}
	if v, _ := sess.GetParam("java.heap", "prod"); v != "4g" {
		t.Errorf("scoped override = %q", v)
	}
	if v, _ := sess.GetParam("java.heap", "staging"); v != "1g" {
		t.Errorf("unknown scope must fall back, got %q", v)
	}
}

func TestSwitch_ReplacesDirectModule(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Go-1_21", `path_edits: [{variable: "GOROOT", mode: "set", values: ["/opt/go1.21"]}]`)
	f.descriptor(t, "Go-1_22", `path_edits: [{variable: "GOROOT", mode: "set", values: ["/opt/go1.22"]}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "Go-1_21", true); err != nil {
		t.Fatal(err)
	}
	if err := sess.Switch(ctx, "Go-1_21", "Go-1_22"); err != nil {
		t.Fatalf("Switch() error: %v", err)
	}
	mod, _ := sess.Get("Go")
	if mod == nil || mod.FullName != "Go-1_22" {
		t.Fatalf("loaded = %+v, want Go-1_22", mod)
	}
	if v, _ := f.env.Get("GOROOT"); v != "/opt/go1.22" {
		t.Errorf("GOROOT = %q", v)
	}

	if err := sess.Switch(ctx, "Rust", "Go-1_21"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("switch of unloaded module: %v", err)
	}
}

func TestUnload_UnknownModule(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	sess := f.start(t)
	if err := sess.Unload("Ghost", false); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestMergeRefs_PatchAppliedAtLoad(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "BasePatch", `path_edits: [{variable: "PATH", mode: "append", values: ["/patch/bin"]}]`)
	f.descriptor(t, "Base", `merge_modules: ["BasePatch"]
path_edits: [{variable: "PATH", mode: "append", values: ["/base/bin"]}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "Base", true); err != nil {
		t.Fatal(err)
	}
	path, _ := f.env.Get("PATH")
	if !strings.Contains(path, "/base/bin") || !strings.Contains(path, "/patch/bin") {
		t.Errorf("PATH = %q, want base and patch contributions", path)
	}

	// The cached template must stay pristine.
	template, err := f.repo.Get("Base")
	if err != nil {
		t.Fatal(err)
	}
	if len(template.PathEdits) != 1 {
		t.Errorf("template mutated: %d edits", len(template.PathEdits))
	}
}

func TestPersist_SaveRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]string{"PATH": "/usr/bin"})
	f.descriptor(t, "Lib", "")
	f.descriptor(t, "App-2_1-x64", `dependencies: [{name: "Lib"}]
path_edits: [{variable: "PATH", mode: "append", values: ["/app/bin"]}]
aliases: [{name: "app", definition: "app --color"}]`)
	sess := f.start(t)

	ctx := context.Background()
	if err := sess.Load(ctx, "App-2_1-x64", true); err != nil {
		t.Fatal(err)
	}
	sess.SetParam("app.mode", "", "fast")

	statePath := filepath.Join(t.TempDir(), "session.toml")
	if err := sess.Save(statePath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// A fresh session over the same environment restores the registry
	// without re-running resolution.
	restored := New(f.repo, rootresolve.New(rootresolve.WithLogger(log.New(io.Discard))), nil,
		WithEnviron(f.env), WithLogger(log.New(io.Discard)))
	if err := restored.Restore(statePath); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	mod, ok := restored.Get("App")
	if !ok {
		t.Fatal("module missing after restore")
	}
	if !mod.Direct || mod.FullName != "App-2_1-x64" {
		t.Errorf("restored %+v", mod)
	}
	if _, ok := restored.Get("Lib"); !ok {
		t.Error("dependency missing after restore")
	}
	if _, ok := restored.Aliases()["app"]; !ok {
		t.Error("alias stack not rebuilt")
	}
	if v, _ := restored.GetParam("app.mode", ""); v != "fast" {
		t.Errorf("param = %q after restore", v)
	}

	// Reversal uses the restored records, not live resolution.
	if err := restored.Unload("App", false); err != nil {
		t.Fatal(err)
	}
	if path, _ := f.env.Get("PATH"); path != "/usr/bin" {
		t.Errorf("PATH = %q after restored unload", path)
	}
}

func TestPersist_MissingFileLeavesSessionEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	sess := f.start(t)
	if err := sess.Restore(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Fatalf("Restore() of missing file: %v", err)
	}
	if len(sess.List()) != 0 {
		t.Error("expected empty session")
	}
}

func TestGraph_ReflectsDependencies(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.descriptor(t, "Lib", "")
	f.descriptor(t, "App", `dependencies: [{name: "Lib"}]`)
	sess := f.start(t)

	if err := sess.Load(context.Background(), "App", true); err != nil {
		t.Fatal(err)
	}
	g := sess.Graph()
	order, err := g.DismountOrder()
	if err != nil {
		t.Fatalf("DismountOrder() error: %v", err)
	}
	// Dependents dismount before their dependencies.
	if len(order) != 2 || order[0] != "App" || order[1] != "Lib" {
		t.Errorf("order = %v, want [App Lib]", order)
	}
}
