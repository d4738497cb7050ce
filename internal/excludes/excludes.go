// Package excludes decides which files are left out of a backup run based
// on their extension.
package excludes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is a set of lower-cased file extensions, each with a leading dot.
// A nil or empty Set excludes nothing.
type Set map[string]struct{}

// New builds a Set from the given extensions. Entries are normalized to
// lower case and a leading dot; blank entries are dropped.
func New(exts ...string) Set {
	s := make(Set, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s[ext] = struct{}{}
	}
	return s
}

// Excluded reports whether the file at path should be excluded from the
// backup. Only the extension is considered, case-insensitively.
func (s Set) Excluded(path string) bool {
	if len(s) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := s[ext]
	return ok
}

// Extensions returns the members of the set in sorted order.
func (s Set) Extensions() []string {
	exts := make([]string, 0, len(s))
	for ext := range s {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LoadFile reads a newline-separated exclusion file. A missing file yields
// an empty set, matching an absent exclusion list.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read exclusion file: %w", err)
	}
	return New(strings.Split(string(data), "\n")...), nil
}

// SaveFile writes the set as a newline-separated file. An empty set removes
// the file so the next run sees no exclusions at all.
func (s Set) SaveFile(path string) error {
	if len(s) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove exclusion file: %w", err)
		}
		return nil
	}

	data := strings.Join(s.Extensions(), "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return fmt.Errorf("write exclusion file: %w", err)
	}
	return nil
}
