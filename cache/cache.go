// Package cache manages the on-disk, per-node cache directory of vehicle
// listing files. A file's fingerprint is its key; its mtime is the only
// freshness signal the rest of the system trusts.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FreshFor is how long a cache file is considered fresh from its mtime
// before it must be re-fetched from upstream (spec.md section 3).
const FreshFor = 24 * time.Hour

// Fingerprint builds the lowercased "<make>_<model>_<city>" cache key.
func Fingerprint(make_, model, city string) string {
	parts := []string{make_, model, city}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "_")
}

// Filename is the on-disk file name for a fingerprint.
func Filename(fingerprint string) string {
	return fingerprint + ".csv"
}

// Dir wraps a single node's cache directory.
type Dir struct {
	path string
}

// NewDir ensures the directory exists and returns a handle to it.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", path, err)
	}
	return &Dir{path: path}, nil
}

// Path returns the absolute path of a file within the cache directory.
func (d *Dir) Path(filename string) string {
	return filepath.Join(d.path, filename)
}

// Read returns a file's bytes, or (nil, false, nil) if it doesn't exist.
func (d *Dir) Read(filename string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.Path(filename))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache file %s: %w", filename, err)
	}
	return data, true, nil
}

// Mtime returns a file's modification time, or the zero time if absent.
func (d *Dir) Mtime(filename string) (time.Time, bool, error) {
	info, err := os.Stat(d.Path(filename))
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stat cache file %s: %w", filename, err)
	}
	return info.ModTime(), true, nil
}

// IsFresh reports whether filename exists and was modified within
// FreshFor of now.
func (d *Dir) IsFresh(filename string, now time.Time) (bool, error) {
	mtime, ok, err := d.Mtime(filename)
	if err != nil || !ok {
		return false, err
	}
	return now.Sub(mtime) < FreshFor, nil
}

// WriteAtomic writes data to filename via a temp-file-then-rename so
// concurrent readers never observe a partially written cache file. It is
// idempotent: writing identical bytes twice leaves the same content
// (though it does bump mtime, which only ever moves freshness forward).
func (d *Dir) WriteAtomic(filename string, data []byte) error {
	tmp := d.Path(filename) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp cache file %s: %w", filename, err)
	}
	if err := os.Rename(tmp, d.Path(filename)); err != nil {
		return fmt.Errorf("rename cache file %s: %w", filename, err)
	}
	return nil
}

// List returns every filename currently in the cache directory.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("list cache directory %s: %w", d.path, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
