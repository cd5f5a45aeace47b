// SPDX-License-Identifier: MPL-2.0

package session

import (
	"os"
	"path/filepath"
	"strings"

	"envmod-cli/pkg/moddesc"
)

// AppliedEdit is the reversal record for one environment mutation. For
// append/prepend edits Inserted holds the exact substring (values plus
// separator) that entered the variable, so unmount removes precisely that
// text and leaves every other contribution intact. For set edits the prior
// value is remembered instead.
type AppliedEdit struct {
	Variable string          `toml:"variable"`
	Mode     moddesc.EditMode `toml:"mode"`
	Inserted string          `toml:"inserted,omitempty"`
	Previous string          `toml:"previous,omitempty"`
	// HadPrevious distinguishes a variable that was empty from one that was
	// unset before the edit, for every mode: reverting an append or prepend
	// onto an empty-but-set variable must restore it empty, not unset it.
	HadPrevious bool `toml:"had_previous,omitempty"`
}

// applyEdit mutates env according to one descriptor path edit and returns
// the reversal record. Relative values are resolved against the module root
// when the edit's key is "root".
func applyEdit(env Environ, edit moddesc.PathEdit, root string) AppliedEdit {
	sep := string(os.PathListSeparator)

	values := make([]string, len(edit.Values))
	for i, v := range edit.Values {
		if edit.Key == "root" && root != "" && !filepath.IsAbs(v) {
			values[i] = filepath.Join(root, v)
		} else {
			values[i] = v
		}
	}
	joined := strings.Join(values, sep)

	old, had := env.Get(edit.Variable)

	switch edit.Mode {
	case moddesc.EditPrepend:
		inserted := joined
		if had && old != "" {
			inserted = joined + sep
			env.Set(edit.Variable, inserted+old)
		} else {
			env.Set(edit.Variable, joined)
		}
		return AppliedEdit{Variable: edit.Variable, Mode: edit.Mode, Inserted: inserted, HadPrevious: had}

	case moddesc.EditSet:
		env.Set(edit.Variable, joined)
		return AppliedEdit{
			Variable:    edit.Variable,
			Mode:        edit.Mode,
			Previous:    old,
			HadPrevious: had,
		}

	default: // append
		inserted := joined
		if had && old != "" {
			inserted = sep + joined
			env.Set(edit.Variable, old+inserted)
		} else {
			env.Set(edit.Variable, joined)
		}
		return AppliedEdit{Variable: edit.Variable, Mode: moddesc.EditAppend, Inserted: inserted, HadPrevious: had}
	}
}

// revertEdit undoes one applied edit. Append/prepend removal excises the
// first occurrence of the recorded substring; an empty result unsets the
// variable unless it was set before the edit. Set restores the prior value,
// or unsets when there was none.
func revertEdit(env Environ, applied AppliedEdit) {
	switch applied.Mode {
	case moddesc.EditSet:
		if applied.HadPrevious {
			env.Set(applied.Variable, applied.Previous)
		} else {
			env.Unset(applied.Variable)
		}

	default:
		current, ok := env.Get(applied.Variable)
		if !ok {
			return
		}
		next := strings.Replace(current, applied.Inserted, "", 1)
		if next == "" && !applied.HadPrevious {
			env.Unset(applied.Variable)
		} else {
			env.Set(applied.Variable, next)
		}
	}
}
