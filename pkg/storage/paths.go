// Package storage guards filesystem access for user-supplied file names.
// Every path that originates from a request must be resolved through a Root
// before anything touches the disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a requested name would escape the root.
var ErrPathTraversal = errors.New("path escapes storage root")

// Root is a directory that all resolved paths must stay inside of.
type Root struct {
	dir string
}

// NewRoot creates the directory if needed and returns a Root for it.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Root{dir: abs}, nil
}

// Dir returns the absolute root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve validates name and returns its absolute path under the root.
// Names containing separators, parent references or absolute prefixes are
// rejected with ErrPathTraversal before any filesystem call happens.
func (r *Root) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrPathTraversal)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	full := filepath.Join(r.dir, filepath.Clean(name))
	// Join cleans the path, but verify the result is still inside the root.
	rel, err := filepath.Rel(r.dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return full, nil
}

// Contains reports whether an already-absolute path lies inside the root.
// Used by components that receive full paths rather than bare names.
func (r *Root) Contains(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}
	return nil
}
