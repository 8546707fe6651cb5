// Package storage holds the file helpers shared by the JSON-file stores.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrCorrupt marks a file that exists but does not hold a JSON object
var ErrCorrupt = errors.New("corrupt json document")

// WriteFileAtomic writes data to a temporary file next to path and renames it into
// place, creating the parent directory when needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON without HTML escaping and writes it atomically
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// ReadJSON decodes the JSON object stored at path into v.
// A missing file yields an error matching fs.ErrNotExist; anything that is not
// a JSON object yields ErrCorrupt.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if t := bytes.TrimSpace(data); len(t) == 0 || t[0] != '{' {
		return fmt.Errorf("%w: %s", ErrCorrupt, filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}

// IsNotExist reports whether err means the file is missing
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// JSONFiles lists the regular "*.json" files of dir, skipping hidden temp files.
// A missing directory yields an empty list.
func JSONFiles(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, d := range dirents {
		name := d.Name()
		if !d.Type().IsRegular() || filepath.Ext(name) != ".json" || name[0] == '.' {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

var unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SafeName trims raw and collapses every run of characters outside [A-Za-z0-9_-]
// into a single underscore. The result is "" when raw is blank.
func SafeName(raw string) string {
	return unsafeRun.ReplaceAllString(strings.TrimSpace(raw), "_")
}

// NormalizeMillis converts second-scale timestamps (below 1e12) to milliseconds
func NormalizeMillis(v int64) int64 {
	if v > 0 && v < 1e12 {
		return v * 1000
	}
	return v
}
