// Package fs resolves local documents for upload to the backend's store.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxBytes is the largest document the backend accepts.
const DefaultMaxBytes int64 = 25 << 20

// Extensions lists the accepted document types.
var Extensions = []string{".pdf", ".ppt", ".pptx"}

var (
	// ErrUnsupported indicates a file whose extension is not accepted.
	ErrUnsupported = errors.New("unsupported document type")

	// ErrTooLarge indicates a file over the size limit.
	ErrTooLarge = errors.New("document too large")
)

// Document is a local file that passed validation.
type Document struct {
	Path string
	Size int64
}

// Name returns the file name sent to the backend.
func (d Document) Name() string { return filepath.Base(d.Path) }

// Check validates the file at path against the accepted types and
// maxBytes. A maxBytes of zero or less means DefaultMaxBytes.
func Check(path string, maxBytes int64) (Document, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(Extensions, ext) {
		return Document{}, fmt.Errorf("%s: %w (allowed: %s)", path, ErrUnsupported, strings.Join(Extensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Document{}, fmt.Errorf("%s: not a regular file", path)
	}
	if info.Size() > maxBytes {
		return Document{}, fmt.Errorf("%s: %w (%s, limit %s)", path, ErrTooLarge, HumanSize(info.Size()), HumanSize(maxBytes))
	}
	return Document{Path: path, Size: info.Size()}, nil
}

// Collect expands patterns relative to dir and validates every match.
// Matches that fail validation are reported in the joined error; the valid
// documents are returned regardless.
func Collect(dir string, maxBytes int64, patterns ...string) ([]Document, error) {
	paths, err := Expand(dir, patterns...)
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	var docs []Document
	for _, p := range paths {
		doc, err := Check(p, maxBytes)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}

// HumanSize formats a byte count the way the file listing shows it.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
