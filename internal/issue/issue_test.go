// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()
	cause := errors.New("descriptor missing")
	err := NewErrorContext().
		WithOperation("load module").
		WithResource("NotepadPlusPlus-x64").
		Wrap(cause).
		BuildError()

	want := "failed to load module: NotepadPlusPlus-x64: descriptor missing"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestActionableError_FormatSuggestionsAndChain(t *testing.T) {
	t.Parallel()
	inner := errors.New("no such file")
	mid := NewErrorContext().WithOperation("read descriptor").Wrap(inner).Build()
	outer := NewErrorContext().
		WithOperation("load module").
		WithSuggestion("Run 'envmod rescan'").
		Wrap(mid).
		Build()

	short := outer.Format(false)
	if !strings.Contains(short, "• Run 'envmod rescan'") {
		t.Errorf("expected suggestion bullet, got:\n%s", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Error("non-verbose format should omit the error chain")
	}

	long := outer.Format(true)
	if !strings.Contains(long, "Error chain") || !strings.Contains(long, "no such file") {
		t.Errorf("verbose format should include the full chain, got:\n%s", long)
	}
}

func TestBuild_RequiresOperation(t *testing.T) {
	t.Parallel()
	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("expected nil for missing operation, got %v", err)
	}
}

func TestWrapWithOperation_NilPassthrough(t *testing.T) {
	t.Parallel()
	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestCatalog_LookupAndNames(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		i := Lookup(name)
		if i == nil {
			t.Fatalf("Lookup(%q) returned nil", name)
		}
		if Get(i.Id()) != i {
			t.Errorf("Get(%v) does not round-trip for %q", i.Id(), name)
		}
		if strings.TrimSpace(string(i.MarkdownMsg())) == "" {
			t.Errorf("issue %q has empty help text", name)
		}
	}
	if Lookup("no-such-issue") != nil {
		t.Error("expected nil for unknown issue name")
	}
}
