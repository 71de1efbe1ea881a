// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// Cache stores extracted text, one file per paper id. A zero Dir disables
// caching.
type Cache struct {
	Dir string
}

// path maps an id to its cache file. The id is path-escaped, so the mapping
// is reversible and distinct ids never share a file: old-style arXiv ids
// ("hep-th/9901001") become "hep-th%2F9901001.txt".
func (c Cache) path(id string) string {
	return filepath.Join(c.Dir, url.PathEscape(id)+".txt")
}

// Get returns the cached text for id. ok is false on a miss.
func (c Cache) Get(id string) (text string, ok bool, err error) {
	if c.Dir == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(c.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache for %s: %w", id, err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// Put writes text for id through a temp file so readers never see a
// partial entry.
func (c Cache) Put(id, text string) error {
	if c.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", c.Dir, err)
	}

	tmp, err := os.CreateTemp(c.Dir, ".fulltext-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.WriteString(text)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache for %s: %w", id, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, c.path(id)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
