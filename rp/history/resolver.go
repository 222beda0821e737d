// Package history resolves last-modified timestamps for scanned files from
// version-control history.
//
// Paths are queried in fixed-size chunks, one sequential query per chunk.
// A file with no history resolves to the time of resolution.
package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	internal "github.com/ZanzyTHEbar/repo-parser/rp"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/interfaces"
	"github.com/ZanzyTHEbar/repo-parser/rp/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/ZanzyTHEbar/repo-parser/history"

// Resolver maps file paths to their most recent commit time.
type Resolver struct {
	backend   interfaces.HistoryLogger
	repoRoot  string
	chunkSize int
	now       func() time.Time
	pathUtils *common.PathUtils

	queries metric.Int64Counter
	missing metric.Int64Counter
}

// Option configures a Resolver
type Option func(*Resolver)

// WithChunkSize sets the number of paths per history query. Values below 1
// are ignored.
func WithChunkSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithClock replaces the wall clock used for paths without history.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a resolver for the repository rooted at repoRoot.
func NewResolver(backend interfaces.HistoryLogger, repoRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		backend:   backend,
		repoRoot:  filepath.Clean(repoRoot),
		chunkSize: internal.DefaultHistoryChunkSize,
		now:       time.Now,
		pathUtils: common.NewPathUtils(),
	}
	for _, opt := range opts {
		opt(r)
	}

	m := telemetry.Meter(scopeName)
	r.queries, _ = m.Int64Counter("rp.history.queries",
		metric.WithDescription("History queries issued, one per chunk"),
	)
	r.missing, _ = m.Int64Counter("rp.history.untracked",
		metric.WithDescription("Paths without history that resolved to now"),
	)
	return r
}

// Resolve returns a timestamp for every entry of filePaths, keyed by the path
// as given. Relative paths are tried against scanRoot first, then the
// repository root.
func (r *Resolver) Resolve(ctx context.Context, filePaths []string, scanRoot string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(filePaths))
	if len(filePaths) == 0 {
		return result, nil
	}

	ctx, span := telemetry.Tracer(scopeName).Start(ctx, "history.resolve")
	defer span.End()

	// inputs sharing a repository-relative path are queried once
	byRel := make(map[string][]string, len(filePaths))
	var rels []string
	for _, p := range filePaths {
		rel, err := r.normalize(p, scanRoot)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if _, seen := byRel[rel]; !seen {
			rels = append(rels, rel)
		}
		byRel[rel] = append(byRel[rel], p)
	}

	latest := make(map[string]int64, len(rels))
	for i, chunk := range Chunk(rels, r.chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, &common.HistoryQueryError{Chunk: i, Paths: chunk, Err: err}
		}

		out, err := r.backend.LogNameOnly(ctx, r.repoRoot, chunk)
		r.queries.Add(ctx, 1)
		if err != nil {
			qerr := &common.HistoryQueryError{Chunk: i, Paths: chunk, Err: err}
			span.RecordError(qerr)
			span.SetStatus(codes.Error, qerr.Error())
			slog.Error("History query failed", "chunk", i, "paths", len(chunk), "error", err)
			return nil, qerr
		}

		if err := ParseLog(out, toSet(chunk), latest); err != nil {
			qerr := &common.HistoryQueryError{Chunk: i, Paths: chunk, Err: err}
			span.RecordError(qerr)
			span.SetStatus(codes.Error, qerr.Error())
			return nil, qerr
		}
		slog.Debug("History chunk resolved", "chunk", i, "paths", len(chunk))
	}

	now := r.now()
	var untracked int64
	for _, rel := range rels {
		ts := now
		if unix, ok := latest[rel]; ok {
			ts = time.Unix(unix, 0)
		} else {
			untracked++
		}
		for _, p := range byRel[rel] {
			result[p] = ts
		}
	}
	r.missing.Add(ctx, untracked)

	span.SetAttributes(
		attribute.Int("rp.history.paths", len(rels)),
		attribute.Int64("rp.history.untracked", untracked),
	)
	slog.Debug("History resolved",
		"paths", len(rels),
		"untracked", untracked,
		"chunk_size", r.chunkSize)

	return result, nil
}

// normalize expresses p relative to the repository root with forward slashes.
func (r *Resolver) normalize(p, scanRoot string) (string, error) {
	if p == "" {
		return "", &common.InputPathError{Path: p, RepoRoot: r.repoRoot, Err: common.ErrPathEmpty}
	}

	var candidates []string
	if filepath.IsAbs(p) {
		candidates = []string{filepath.Clean(p)}
	} else {
		if scanRoot != "" {
			candidates = append(candidates, filepath.Join(r.absolute(scanRoot), p))
		}
		candidates = append(candidates, filepath.Join(r.repoRoot, p))
	}

	var lastErr error
	for _, c := range candidates {
		rel, err := r.pathUtils.RelativeSlash(r.repoRoot, c)
		if err == nil && rel != "." {
			return rel, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = common.ErrOutsideRepository
	}
	return "", &common.InputPathError{Path: p, RepoRoot: r.repoRoot, Err: lastErr}
}

func (r *Resolver) absolute(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(r.repoRoot, dir)
}

// Chunk partitions paths into consecutive slices of at most size entries.
func Chunk(paths []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(paths)+size-1)/size)
	for start := 0; start < len(paths); start += size {
		end := min(start+size, len(paths))
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}

func toSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
