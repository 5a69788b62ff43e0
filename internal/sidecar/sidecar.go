// Package sidecar reads and writes the per-root selection state file and derives
// the lookup structures a scan needs from it: the selection index keyed by
// absolute path and the list of ignore patterns.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/treedump/internal/models"
)

// DefaultName is the sidecar file name used when no other is configured
const DefaultName = "treedump.json"

// ErrMalformed is returned when sidecar content cannot be parsed.
// Callers treat it as "no prior selection, no ignore patterns".
var ErrMalformed = errors.New("malformed sidecar")

// Index maps absolute node ids to their persisted records
type Index map[string]models.FileRecord

// Path returns the sidecar location for root. An empty name means DefaultName.
func Path(root, name string) string {
	if name == "" {
		name = DefaultName
	}
	return filepath.Join(root, name)
}

// Parse decodes sidecar content.
//
// Two layouts are accepted: the object form {"ignore_patterns": ..., "files": [...]}
// and a bare array of file records, as written by older versions, which carries no
// ignore patterns. Anything else yields an error wrapping ErrMalformed together
// with a zero Sidecar, so callers can continue with empty state.
func Parse(data []byte) (models.Sidecar, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.Sidecar{}, fmt.Errorf("%w: empty content", ErrMalformed)
	}

	if trimmed[0] == '[' {
		var files []models.FileRecord
		if err := json.Unmarshal(trimmed, &files); err != nil {
			return models.Sidecar{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return models.Sidecar{Files: files}, nil
	}

	var sc models.Sidecar
	if err := json.Unmarshal(trimmed, &sc); err != nil {
		return models.Sidecar{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return sc, nil
}

// Load reads and parses the sidecar at path.
//
// A missing file is not an error and yields an empty Sidecar. A read failure is
// returned as is. Unparseable content yields an empty Sidecar and an error
// wrapping ErrMalformed.
func Load(path string) (models.Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Sidecar{}, nil
		}
		return models.Sidecar{}, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return models.Sidecar{}, fmt.Errorf("sidecar %s: %w", path, err)
	}
	return sc, nil
}

// Encode serializes a sidecar as indented JSON with a trailing newline.
// A nil file list is written as [].
func Encode(sc models.Sidecar) ([]byte, error) {
	if sc.Files == nil {
		sc.Files = []models.FileRecord{}
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sidecar: %w", err)
	}
	return append(data, '\n'), nil
}

// BuildIndex qualifies each record's relative id against root.
// Records with an empty id are dropped. Ids that are already absolute are kept
// as they are, which is how older sidecars stored them. When two records resolve
// to the same path the later one wins.
func BuildIndex(root string, files []models.FileRecord) Index {
	index := make(Index, len(files))
	for _, rec := range files {
		key := ResolveID(root, rec.ID)
		if key == "" {
			continue
		}
		index[key] = rec
	}
	return index
}

// ResolveID turns a persisted id into the absolute node id it refers to
func ResolveID(root, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	native := filepath.FromSlash(id)
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	return filepath.Join(root, native)
}

// RelativeID converts a node id to the root-relative, slash-separated form the
// sidecar stores. Ids that are not absolute are only slash-normalized. Absolute
// ids outside root and blank ids are returned unchanged.
func RelativeID(root, id string) string {
	if strings.TrimSpace(id) == "" {
		return id
	}
	native := filepath.FromSlash(id)
	if !filepath.IsAbs(native) {
		return filepath.ToSlash(filepath.Clean(native))
	}
	rel, err := filepath.Rel(root, native)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return id
	}
	return filepath.ToSlash(rel)
}

// Keys returns the index keys sorted lexically
func (idx Index) Keys() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitPatterns splits ignore-pattern text into patterns: one per line, trimmed,
// skipping blank lines and lines starting with "#".
func SplitPatterns(text string) []string {
	patterns := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
