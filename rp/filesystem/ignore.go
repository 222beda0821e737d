package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/interfaces"

	ignore "github.com/sabhiram/go-gitignore"
)

// vcsDir is the version-control metadata directory excluded at the scan root
const vcsDir = ".git"

// Candidate is a directory entry submitted for an ignore check
type Candidate struct {
	Path  string
	IsDir bool
}

// IgnoreResolver answers which entries of a directory are excluded
type IgnoreResolver interface {
	Ignored(ctx context.Context, dir string, candidates []Candidate) (map[string]bool, error)
}

// GitIgnoreResolver combines git's ignore rules, an optional gitignore-syntax
// file at the scan root and user regular expressions matched against the full
// path. Every candidate must lie inside the repository working tree.
type GitIgnoreResolver struct {
	git       interfaces.IgnoreChecker
	repoRoot  string
	scanRoot  string
	patterns  []*regexp.Regexp
	local     *ignore.GitIgnore
	pathUtils *common.PathUtils
}

// NewGitIgnoreResolver compiles patterns and loads ignoreFile (relative to
// scanRoot) when it exists.
func NewGitIgnoreResolver(git interfaces.IgnoreChecker, repoRoot, scanRoot string, patterns []string, ignoreFile string) (*GitIgnoreResolver, error) {
	r := &GitIgnoreResolver{
		git:       git,
		repoRoot:  repoRoot,
		scanRoot:  scanRoot,
		pathUtils: common.NewPathUtils(),
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}

	local, err := loadIgnoreFile(scanRoot, ignoreFile)
	if err != nil {
		return nil, &common.IgnoreResolutionError{Dir: scanRoot, Path: ignoreFile, Err: err}
	}
	r.local = local

	return r, nil
}

// loadIgnoreFile compiles name from dir; a missing file yields nil.
func loadIgnoreFile(dir, name string) (*ignore.GitIgnore, error) {
	if name == "" {
		return nil, nil
	}
	ignorePath := name
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(dir, name)
	}

	if _, err := os.Stat(ignorePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking for %s: %w", name, err)
	}

	compiled, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return compiled, nil
}

// Ignored returns the candidates that are excluded. Candidates are the direct
// entries of dir and are resolved with a single git query.
func (r *GitIgnoreResolver) Ignored(ctx context.Context, dir string, candidates []Candidate) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(candidates) == 0 {
		return ignored, nil
	}

	relToAbs := make(map[string]string, len(candidates))
	var query []string
	for _, c := range candidates {
		rel, err := r.pathUtils.RelativeSlash(r.repoRoot, c.Path)
		if err != nil {
			return nil, &common.IgnoreResolutionError{Dir: dir, Path: c.Path, Err: err}
		}

		if r.staticallyIgnored(c) {
			ignored[c.Path] = true
			continue
		}

		relToAbs[rel] = c.Path
		query = append(query, rel)
	}

	if len(query) == 0 {
		return ignored, nil
	}

	excluded, err := r.git.CheckIgnore(ctx, r.repoRoot, query)
	if err != nil {
		return nil, &common.IgnoreResolutionError{Dir: dir, Err: err}
	}
	for _, rel := range excluded {
		abs, ok := relToAbs[filepath.ToSlash(rel)]
		if !ok {
			return nil, &common.IgnoreResolutionError{
				Dir:  dir,
				Path: rel,
				Err:  fmt.Errorf("git reported a path that was not requested"),
			}
		}
		ignored[abs] = true
	}

	return ignored, nil
}

// staticallyIgnored applies the rules that need no git invocation.
func (r *GitIgnoreResolver) staticallyIgnored(c Candidate) bool {
	if filepath.Dir(c.Path) == r.scanRoot && filepath.Base(c.Path) == vcsDir {
		return true
	}

	full := filepath.ToSlash(c.Path)
	for _, re := range r.patterns {
		if re.MatchString(full) {
			return true
		}
	}

	if r.local != nil {
		if rel, err := r.pathUtils.RelativeSlash(r.scanRoot, c.Path); err == nil {
			if r.local.MatchesPath(rel) || (c.IsDir && r.local.MatchesPath(rel+"/")) {
				return true
			}
		}
	}
	return false
}

// Ensure GitIgnoreResolver implements IgnoreResolver
var _ IgnoreResolver = (*GitIgnoreResolver)(nil)
