package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Common error types used across the scan, build and history packages
var (
	ErrPathEmpty         = errors.New("path cannot be empty")
	ErrNotRepository     = errors.New("not inside a git working tree")
	ErrOutsideRepository = errors.New("path is outside the repository working tree")
)

// InputPathError reports a history lookup path that cannot be expressed
// relative to the repository root. It points at a scanner/resolver root mismatch.
type InputPathError struct {
	Path     string
	RepoRoot string
	Err      error
}

func (e *InputPathError) Error() string {
	return fmt.Sprintf("cannot express %q relative to repository root %q: %v", e.Path, e.RepoRoot, e.Err)
}

func (e *InputPathError) Unwrap() error { return e.Err }

// IgnoreResolutionError reports a failure to evaluate ignore rules for the
// entries of a directory. Entries are never treated as not-ignored on failure.
type IgnoreResolutionError struct {
	Dir  string
	Path string
	Err  error
}

func (e *IgnoreResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ignore resolution failed in %s for %s: %v", e.Dir, e.Path, e.Err)
	}
	return fmt.Sprintf("ignore resolution failed in %s: %v", e.Dir, e.Err)
}

func (e *IgnoreResolutionError) Unwrap() error { return e.Err }

// ClassificationError reports an extractor failure on a single file.
// It is recovered locally: the file is demoted to a plain file resource.
type ClassificationError struct {
	Path       string
	Classifier string
	Err        error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classifier %q failed on %s: %v", e.Classifier, e.Path, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// HistoryQueryError reports a failed history query for one chunk of paths.
type HistoryQueryError struct {
	Chunk int
	Paths []string
	Err   error
}

func (e *HistoryQueryError) Error() string {
	first := ""
	if len(e.Paths) > 0 {
		first = e.Paths[0]
	}
	return fmt.Sprintf("history query failed for chunk %d (%d paths, first %q): %v", e.Chunk, len(e.Paths), first, e.Err)
}

func (e *HistoryQueryError) Unwrap() error { return e.Err }

// ErrorUtils provides common error handling utilities
type ErrorUtils struct{}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils() *ErrorUtils {
	return &ErrorUtils{}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// LogAndWrapError logs an error and wraps it with context
func (eu *ErrorUtils) LogAndWrapError(err error, level slog.Level, message string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(message, args...)
	slog.Log(context.Background(), level, msg, "error", err)

	return fmt.Errorf("%s: %w", msg, err)
}
