package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch indicates a pattern that matched no files.
var ErrNoMatch = errors.New("no files match")

// Expand resolves glob patterns to regular files. Relative patterns are
// taken from dir. Patterns support ** for recursive matching; a pattern
// without wildcards names a file directly. The result is sorted and free of
// duplicates.
func Expand(dir string, patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var matches []string
	var errs []error
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			matches = append(matches, p)
		}
	}
	for _, pattern := range patterns {
		found, err := expand(dir, pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range found {
			add(p)
		}
	}
	slices.Sort(matches)
	return matches, errors.Join(errs...)
}

func expand(dir, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, errors.New("pattern is required")
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	slashed := filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(slashed) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	base, rel := doublestar.SplitPattern(slashed)
	if rel == "" || rel == "." || !hasMeta(rel) {
		if _, err := os.Stat(pattern); err != nil {
			return nil, fmt.Errorf("%s: %w", pattern, err)
		}
		return []string{pattern}, nil
	}

	var matches []string
	err := doublestar.GlobWalk(os.DirFS(filepath.FromSlash(base)), rel, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		matches = append(matches, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(path)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error matching pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: %w", pattern, ErrNoMatch)
	}
	return matches, nil
}

func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}
