// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Store persists the descriptor index between invocations as a TOML
	// cache file. Only authored descriptor locations are stored; descriptor
	// content and synthesized metas are rebuilt on load.
	Store struct {
		// Path is the cache file location, typically <configdir>/cache.toml.
		Path string
	}

	// CacheBlob is the persisted form of one scan.
	CacheBlob struct {
		ScannedAt time.Time    `toml:"scanned_at"`
		Roots     []string     `toml:"roots"`
		Entries   []CacheEntry `toml:"entries,omitempty"`
	}

	// CacheEntry locates one authored descriptor.
	CacheEntry struct {
		FullName string `toml:"full_name"`
		Path     string `toml:"path"`
	}
)

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store { return &Store{Path: path} }

// Load reads and decodes the cache blob.
func (s *Store) Load() (*CacheBlob, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor cache: %w", err)
	}
	var blob CacheBlob
	if err := toml.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor cache %s: %w", s.Path, err)
	}
	return &blob, nil
}

// Save writes the cache blob atomically: encode to a temp file in the same
// directory, then rename over the target.
func (s *Store) Save(blob *CacheBlob) error {
	data, err := toml.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode descriptor cache: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write descriptor cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close descriptor cache: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace descriptor cache: %w", err)
	}
	return nil
}
