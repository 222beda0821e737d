package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitService(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{"RepoRoot", testGitRepoRoot},
		{"RepoRootOutsideRepository", testGitRepoRootOutside},
		{"CheckIgnore", testGitCheckIgnore},
		{"CheckIgnoreNothingIgnored", testGitCheckIgnoreNone},
		{"LogNameOnly", testGitLogNameOnly},
		{"LogNameOnlyWithoutCommits", testGitLogNoCommits},
		{"LogNameOnlyLiteralPathspec", testGitLogLiteralPathspec},
		{"MissingBinary", testGitMissingBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func testGitRepoRoot(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"a/b/c.md": "x"})

	gs := NewGitService()
	root, err := gs.RepoRoot(context.Background(), filepath.Join(repo, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, repo, root)
	assert.True(t, gs.IsRepository(repo))
}

func testGitRepoRootOutside(t *testing.T) {
	testutil.RequireGit(t)

	gs := NewGitService()
	dir := t.TempDir()
	_, err := gs.RepoRoot(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotRepository))
	assert.False(t, gs.IsRepository(dir))
}

func testGitCheckIgnore(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{
		".gitignore":         "ignored_dir\n*.log\n",
		"ignored_dir/a.md":   "x",
		"kept/a.md":          "x",
		"debug.log":          "x",
		"name with space.md": "x",
	})

	gs := NewGitService()
	ignored, err := gs.CheckIgnore(context.Background(), repo,
		[]string{"ignored_dir", "kept", "debug.log", "name with space.md"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ignored_dir", "debug.log"}, ignored)
}

func testGitCheckIgnoreNone(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"a.md": "x"})

	gs := NewGitService()
	ignored, err := gs.CheckIgnore(context.Background(), repo, []string{"a.md"})
	require.NoError(t, err)
	assert.Empty(t, ignored)

	ignored, err = gs.CheckIgnore(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Empty(t, ignored)
}

func testGitLogNameOnly(t *testing.T) {
	repo := testutil.NewRepo(t)
	first := time.Unix(1_600_000_000, 0)
	second := time.Unix(1_700_000_000, 0)

	testutil.WriteFiles(t, repo, map[string]string{"a.md": "1", "b.md": "1"})
	testutil.CommitAll(t, repo, first, "first")
	testutil.WriteFiles(t, repo, map[string]string{"b.md": "2"})
	testutil.CommitAll(t, repo, second, "second")

	gs := NewGitService()
	out, err := gs.LogNameOnly(context.Background(), repo, []string{"a.md", "b.md"})
	require.NoError(t, err)
	assert.Contains(t, out, "1700000000\n")
	assert.Contains(t, out, "1600000000\n")
	assert.Contains(t, out, "a.md")
	assert.Contains(t, out, "b.md")
}

func testGitLogNoCommits(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"a.md": "1"})

	gs := NewGitService()
	out, err := gs.LogNameOnly(context.Background(), repo, []string{"a.md"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func testGitLogLiteralPathspec(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"star*.md": "1", "starlight.md": "1"})
	testutil.CommitPaths(t, repo, time.Unix(1_600_000_000, 0), "starlight", "starlight.md")
	testutil.CommitPaths(t, repo, time.Unix(1_650_000_000, 0), "star", "star*.md")

	gs := NewGitService()
	out, err := gs.LogNameOnly(context.Background(), repo, []string{"star*.md"})
	require.NoError(t, err)
	assert.Contains(t, out, "1650000000")
	assert.NotContains(t, out, "starlight.md")
}

func testGitMissingBinary(t *testing.T) {
	repo := testutil.NewRepo(t)

	gs := NewGitService(WithBinary(filepath.Join(t.TempDir(), "no-such-git")))
	assert.False(t, gs.IsRepository(repo))
	_, err := gs.RepoRoot(context.Background(), repo)
	assert.ErrorIs(t, err, common.ErrNotRepository)

	assert.True(t, NewGitService(WithBinary("")).IsRepository(repo))
}
