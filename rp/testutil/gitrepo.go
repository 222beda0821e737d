// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test when no git binary is available
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// NewRepo initializes an empty repository in a temp directory and returns its
// symlink-resolved path
func NewRepo(t testing.TB) string {
	t.Helper()
	RequireGit(t)

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	Git(t, dir, time.Time{}, "init", "-q")
	return dir
}

// WriteFiles creates files (and parent directories) below root
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

// CommitAll stages everything and commits with author and committer dates set to when
func CommitAll(t testing.TB, root string, when time.Time, message string) {
	t.Helper()
	Git(t, root, when, "add", "-A")
	Git(t, root, when, "commit", "-q", "--allow-empty", "-m", message)
}

// CommitPaths stages and commits only the given paths
func CommitPaths(t testing.TB, root string, when time.Time, message string, paths ...string) {
	t.Helper()
	Git(t, root, when, append([]string{"add", "--"}, paths...)...)
	Git(t, root, when, "commit", "-q", "-m", message)
}

// Git runs a git command in dir with a fixed identity; a non-zero when pins commit dates
func Git(t testing.TB, dir string, when time.Time, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=rp-test",
		"GIT_AUTHOR_EMAIL=rp-test@example.com",
		"GIT_COMMITTER_NAME=rp-test",
		"GIT_COMMITTER_EMAIL=rp-test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	if !when.IsZero() {
		stamp := fmt.Sprintf("%d +0000", when.Unix())
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+stamp, "GIT_COMMITTER_DATE="+stamp)
	}

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}
