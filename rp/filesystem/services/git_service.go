package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/interfaces"
)

const (
	// git log on a branch without commits fails with this message
	noCommitsMsg      = "does not have any commits yet"
	defaultGitTimeout = 30 * time.Second
)

// GitServiceImpl drives the git binary for ignore checks, history queries
// and working-tree discovery
type GitServiceImpl struct {
	timeout time.Duration
	binary  string
	errs    *common.ErrorUtils
}

// GitOption customizes a GitServiceImpl
type GitOption func(*GitServiceImpl)

// WithTimeout bounds every git invocation
func WithTimeout(timeout time.Duration) GitOption {
	return func(gs *GitServiceImpl) {
		if timeout > 0 {
			gs.timeout = timeout
		}
	}
}

// WithBinary overrides the git executable; "" keeps the default
func WithBinary(binary string) GitOption {
	return func(gs *GitServiceImpl) {
		if binary != "" {
			gs.binary = binary
		}
	}
}

// NewGitService creates a new git service instance
func NewGitService(opts ...GitOption) *GitServiceImpl {
	gs := &GitServiceImpl{
		timeout: defaultGitTimeout,
		binary:  "git",
		errs:    common.NewErrorUtils(),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// gitError carries the exit status and stderr of a failed git invocation
type gitError struct {
	args     []string
	exitCode int
	stderr   string
	err      error
}

func (e *gitError) Error() string {
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.args, " "), e.exitCode, strings.TrimSpace(e.stderr))
}

func (e *gitError) Unwrap() error { return e.err }

// runGitCommand is a helper to execute git commands with context, logging, and timeouts.
// stdout and stderr are kept apart so that stdout can be parsed.
func (gs *GitServiceImpl) runGitCommand(ctx context.Context, repoDir string, stdin []byte, args ...string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	cmdArgs := append([]string{"-C", repoDir}, args...)
	cmd := exec.CommandContext(ctxWithTimeout, gs.binary, cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	slog.Debug("Executing git command",
		"dir", repoDir,
		"args", truncateArgs(args),
		"timeout", gs.timeout)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.String(), &gitError{args: truncateArgs(args), exitCode: exitCode, stderr: stderr.String(), err: err}
	}

	return stdout.String(), nil
}

// truncateArgs keeps log lines and error messages readable for chunked path lists
func truncateArgs(args []string) []string {
	const keep = 8
	if len(args) <= keep {
		return args
	}
	out := append([]string{}, args[:keep]...)
	return append(out, fmt.Sprintf("...(+%d)", len(args)-keep))
}

// IsRepository checks if the specified directory is inside a git working tree
func (gs *GitServiceImpl) IsRepository(dir string) bool {
	out, err := gs.runGitCommand(context.Background(), dir, nil, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

// RepoRoot resolves the top-level directory of the working tree containing dir
func (gs *GitServiceImpl) RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := gs.runGitCommand(ctx, dir, nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository root for %s: %w: %w", dir, common.ErrNotRepository, err)
	}

	root := strings.TrimSpace(out)
	if root == "" {
		return "", gs.errs.WrapError(common.ErrNotRepository, "failed to resolve repository root for %s", dir)
	}

	root = filepath.FromSlash(root)
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	slog.Debug("Resolved repository root", "dir", dir, "root", root)
	return root, nil
}

// CheckIgnore runs a single bulk `git check-ignore` over relPaths.
// Exit status 1 means no path is ignored and is not an error.
func (gs *GitServiceImpl) CheckIgnore(ctx context.Context, repoRoot string, relPaths []string) ([]string, error) {
	if len(relPaths) == 0 {
		return nil, nil
	}

	var input bytes.Buffer
	for _, p := range relPaths {
		input.WriteString(p)
		input.WriteByte(0)
	}

	out, err := gs.runGitCommand(ctx, repoRoot, input.Bytes(), "check-ignore", "--stdin", "-z")
	if err != nil {
		var gerr *gitError
		if errors.As(err, &gerr) && gerr.exitCode == 1 {
			return nil, nil
		}
		return nil, gs.errs.LogAndWrapError(err, slog.LevelError, "failed to check ignore rules in %s", repoRoot)
	}

	var ignored []string
	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			ignored = append(ignored, p)
		}
	}

	slog.Debug("Checked ignore rules", "repo", repoRoot, "candidates", len(relPaths), "ignored", len(ignored))
	return ignored, nil
}

// LogNameOnly returns `git log --format=%ct --name-only` restricted to relPaths.
// Pathspecs are literal so file names containing glob characters match exactly,
// and names are printed unquoted.
// A repository without commits yields an empty log.
func (gs *GitServiceImpl) LogNameOnly(ctx context.Context, repoRoot string, relPaths []string) (string, error) {
	args := append([]string{"-c", "core.quotePath=false", "--literal-pathspecs", "log", "--format=%ct", "--name-only", "--"}, relPaths...)

	out, err := gs.runGitCommand(ctx, repoRoot, nil, args...)
	if err != nil {
		var gerr *gitError
		if errors.As(err, &gerr) && strings.Contains(gerr.stderr, noCommitsMsg) {
			slog.Debug("Repository has no commits, history is empty", "repo", repoRoot)
			return "", nil
		}
		return "", gs.errs.LogAndWrapError(err, slog.LevelError, "failed to query history for %d paths in %s", len(relPaths), repoRoot)
	}

	return out, nil
}

// Ensure GitServiceImpl implements the GitService interface
var _ interfaces.GitService = (*GitServiceImpl)(nil)
