package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathUtils provides path manipulation utilities used across packages
type PathUtils struct{}

// NewPathUtils creates a new PathUtils instance
func NewPathUtils() *PathUtils {
	return &PathUtils{}
}

// NormalizePath returns an absolute, cleaned path with symlinks resolved when
// the path exists. Missing paths are only made absolute.
func (pu *PathUtils) NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}

// Contains reports whether target lies inside root or is root itself.
// Both paths must already be normalized.
func (pu *PathUtils) Contains(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// RelativeSlash returns target relative to root using forward slashes,
// failing with ErrOutsideRepository when target escapes root.
func (pu *PathUtils) RelativeSlash(root, target string) (string, error) {
	if !pu.Contains(root, target) {
		return "", fmt.Errorf("%s: %w", target, ErrOutsideRepository)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/"), nil
}

// ValidatePath validates that a path is usable as a scan root
func (pu *PathUtils) ValidatePath(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("path contains null character")
	}
	if len(path) > 4096 {
		return fmt.Errorf("path too long (max 4096 characters)")
	}
	return nil
}
