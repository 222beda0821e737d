package interfaces

import (
	"context"
)

// IgnoreChecker answers bulk ignore queries for paths relative to the repository root.
// It returns the subset of relPaths that version-control rules exclude.
type IgnoreChecker interface {
	CheckIgnore(ctx context.Context, repoRoot string, relPaths []string) ([]string, error)
}

// HistoryLogger runs a history query restricted to relPaths and returns the raw
// line-oriented reply: a unix timestamp line per commit followed by the touched paths.
type HistoryLogger interface {
	LogNameOnly(ctx context.Context, repoRoot string, relPaths []string) (string, error)
}

// GitService defines the version-control backend operations the pipeline consumes
type GitService interface {
	IgnoreChecker
	HistoryLogger

	// RepoRoot resolves the working-tree root containing dir
	RepoRoot(ctx context.Context, dir string) (string, error)
	IsRepository(dir string) bool
}
