// SPDX-License-Identifier: MPL-2.0

package rootresolve

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"envmod-cli/pkg/moddesc"
)

type (
	// FileChecker requires a relative file to exist under the candidate.
	FileChecker struct{}

	// GitRemoteChecker requires the candidate to be a git checkout whose
	// configured remote URL contains the item value. It reads .git/config
	// directly instead of shelling out to git.
	GitRemoteChecker struct{}
)

// Satisfies implements RequiredItemChecker for relative files.
func (FileChecker) Satisfies(dir string, item moddesc.RequiredItem) bool {
	info, err := os.Stat(filepath.Join(dir, item.Value))
	return err == nil && !info.IsDir()
}

// Satisfies implements RequiredItemChecker for git remotes.
func (GitRemoteChecker) Satisfies(dir string, item moddesc.RequiredItem) bool {
	f, err := os.Open(filepath.Join(dir, ".git", "config"))
	if err != nil {
		return false
	}
	defer f.Close()

	// Match "url = <...>" lines inside [remote "..."] sections.
	inRemote := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "["):
			inRemote = strings.HasPrefix(line, `[remote `)
		case inRemote && strings.HasPrefix(line, "url"):
			_, url, found := strings.Cut(line, "=")
			if found && strings.Contains(strings.TrimSpace(url), item.Value) {
				return true
			}
		}
	}
	return false
}
