package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/interfaces"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/options"
	"github.com/ZanzyTHEbar/repo-parser/rp/telemetry"
	"github.com/ZanzyTHEbar/repo-parser/rp/trees"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scanScope = "github.com/ZanzyTHEbar/repo-parser/filesystem"

// ScanResult is the raw tree plus the roots it was resolved against
type ScanResult struct {
	Root     *trees.Dir
	ScanRoot string
	RepoRoot string
	Files    int
	Dirs     int
}

// Scanner walks a repository working tree and keeps files matched by a classifier
type Scanner struct {
	git       interfaces.GitService
	pathUtils *common.PathUtils
}

// NewScanner creates a scanner backed by git
func NewScanner(git interfaces.GitService) *Scanner {
	return &Scanner{
		git:       git,
		pathUtils: common.NewPathUtils(),
	}
}

// scanRun holds the state of a single Scan call
type scanRun struct {
	ctx         context.Context
	classifiers classifier.List
	ignore      IgnoreResolver
	maxDepth    int
	files       int
	dirs        int
}

// Scan builds the raw tree for root. With opts.Subdirs set only the named
// subdirectories are scanned and the root's own entries are never listed.
func (s *Scanner) Scan(ctx context.Context, root string, classifiers classifier.List, opts options.ScanOptions) (*ScanResult, error) {
	if err := s.pathUtils.ValidatePath(root); err != nil {
		return nil, fmt.Errorf("invalid scan root: %w", err)
	}
	scanRoot := s.pathUtils.NormalizePath(root)

	info, err := os.Stat(scanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", scanRoot)
	}

	if !s.git.IsRepository(scanRoot) {
		return nil, fmt.Errorf("failed to resolve repository for %s: %w", scanRoot, common.ErrNotRepository)
	}

	repoRoot, err := s.git.RepoRoot(ctx, scanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository for %s: %w", scanRoot, err)
	}

	resolver, err := NewGitIgnoreResolver(s.git, repoRoot, scanRoot, opts.IgnorePatterns, opts.IgnoreFile)
	if err != nil {
		return nil, err
	}

	return s.scanWith(ctx, scanRoot, repoRoot, classifiers, resolver, opts)
}

func (s *Scanner) scanWith(ctx context.Context, scanRoot, repoRoot string, classifiers classifier.List, resolver IgnoreResolver, opts options.ScanOptions) (*ScanResult, error) {
	ctx, span := telemetry.Tracer(scanScope).Start(ctx, "filesystem.scan")
	defer span.End()

	run := &scanRun{
		ctx:         ctx,
		classifiers: classifiers,
		ignore:      resolver,
		maxDepth:    opts.MaxDepth,
	}

	var (
		dir *trees.Dir
		err error
	)
	if len(opts.Subdirs) > 0 {
		dir, err = run.scanSubdirs(scanRoot, opts.Subdirs)
	} else {
		dir, err = run.scanDir(scanRoot, 0)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("rp.scan.root", scanRoot),
		attribute.Int("rp.scan.files", run.files),
		attribute.Int("rp.scan.dirs", run.dirs),
	)
	slog.Info("Scan completed",
		"root", scanRoot,
		"repo", repoRoot,
		"files", run.files,
		"dirs", run.dirs)

	return &ScanResult{
		Root:     dir,
		ScanRoot: scanRoot,
		RepoRoot: repoRoot,
		Files:    run.files,
		Dirs:     run.dirs,
	}, nil
}

// scanSubdirs scans each named subdirectory as a child of a synthetic root
// whose file list stays empty.
func (r *scanRun) scanSubdirs(scanRoot string, subdirs []string) (*trees.Dir, error) {
	root := &trees.Dir{Path: scanRoot}
	if r.maxDepth == 0 {
		return root, nil
	}

	pathUtils := common.NewPathUtils()
	candidates := make([]Candidate, 0, len(subdirs))
	for _, sub := range subdirs {
		full := filepath.Join(scanRoot, filepath.FromSlash(sub))
		if !pathUtils.Contains(scanRoot, full) || full == scanRoot {
			return nil, fmt.Errorf("subdirectory %q: %w", sub, common.ErrOutsideRepository)
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, fmt.Errorf("failed to stat subdirectory %q: %w", sub, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("subdirectory %q is not a directory", sub)
		}
		if isWorkingTree(full) {
			slog.Debug("Skipping nested working tree", "path", full)
			continue
		}
		candidates = append(candidates, Candidate{Path: full, IsDir: true})
	}

	ignored, err := r.ignore.Ignored(r.ctx, scanRoot, candidates)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if ignored[c.Path] {
			slog.Debug("Skipping ignored subdirectory", "path", c.Path)
			continue
		}
		child, err := r.scanDir(c.Path, 1)
		if err != nil {
			return nil, err
		}
		root.Dirs = append(root.Dirs, child)
	}
	return root, nil
}

// scanDir lists dir at the given depth. Subdirectories are entered only
// while depth is below the limit.
func (r *scanRun) scanDir(dir string, depth int) (*trees.Dir, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	node := &trees.Dir{Path: dir}
	r.dirs++

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return node, nil
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		isDir, ok := entryKind(full, entry)
		if !ok {
			continue
		}
		if isDir && isWorkingTree(full) {
			slog.Debug("Skipping nested working tree", "path", full)
			continue
		}
		candidates = append(candidates, Candidate{Path: full, IsDir: isDir})
	}

	ignored, err := r.ignore.Ignored(r.ctx, dir, candidates)
	if err != nil {
		return nil, err
	}

	descend := r.maxDepth < 0 || depth < r.maxDepth
	for _, c := range candidates {
		if ignored[c.Path] {
			continue
		}

		if c.IsDir {
			if !descend {
				continue
			}
			child, err := r.scanDir(c.Path, depth+1)
			if err != nil {
				return nil, err
			}
			node.Dirs = append(node.Dirs, child)
			continue
		}

		file, err := r.scanFile(c.Path)
		if err != nil {
			return nil, err
		}
		if file != nil {
			node.Files = append(node.Files, file)
		}
	}

	slog.Debug("Scanned directory",
		"dir", dir,
		"depth", depth,
		"files", len(node.Files),
		"dirs", len(node.Dirs),
		"ignored", len(ignored))

	return node, nil
}

// scanFile applies the first matching classifier. Content is read only when
// that classifier wants it; unmatched files yield nil.
func (r *scanRun) scanFile(full string) (*trees.File, error) {
	name := filepath.Base(full)
	c, ok := r.classifiers.Match(name)
	if !ok {
		return nil, nil
	}

	file := &trees.File{Name: name, SourcePath: full}
	if c.WantsContent {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", full, err)
		}
		content := string(data)
		file.Content = &content
	}

	r.files++
	return file, nil
}

// entryKind classifies a directory entry. Symlinks to files count as files;
// symlinked directories and special files are skipped.
func entryKind(full string, entry fs.DirEntry) (isDir bool, ok bool) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return true, true
	case mode.IsRegular():
		return false, true
	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(full)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Skipping unreadable symlink", "path", full, "error", err)
			}
			return false, false
		}
		if info.Mode().IsRegular() {
			return false, true
		}
		slog.Debug("Skipping symlinked directory", "path", full)
		return false, false
	default:
		return false, false
	}
}

// isWorkingTree reports whether dir holds its own .git entry, a directory for
// a nested repository or a file for a submodule or linked worktree. Its
// contents belong to another repository and are never listed.
func isWorkingTree(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, vcsDir))
	return err == nil
}
