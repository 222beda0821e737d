package filesystem

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/options"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/services"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/watcher"
	"github.com/ZanzyTHEbar/repo-parser/rp/testutil"
	"github.com/ZanzyTHEbar/repo-parser/rp/trees"

	assertlib "github.com/ZanzyTHEbar/assert-lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseNow = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return parseNow }

// serviceRepo commits a root readme and a python service with nested docs.
func serviceRepo(t *testing.T) (string, time.Time, time.Time) {
	t.Helper()
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{
		"README.md":                       "This is a test",
		"service-example/README.md":       "---\ntype: service\nlanguage: python\n---\nThis is a service",
		"service-example/docs/testing.md": "Something about testing",
		"service-example/main.py":         "print('hi')",
	})

	older := time.Unix(1600000000, 0)
	newer := time.Unix(1700000000, 0)
	testutil.CommitPaths(t, repo, older, "root", "README.md", "service-example/README.md", "service-example/main.py")
	testutil.CommitPaths(t, repo, newer, "docs", "service-example/docs/testing.md")
	return repo, older, newer
}

func TestParse(t *testing.T) {
	repo, older, newer := serviceRepo(t)

	p := New(classifier.Defaults(), options.DefaultParseOptions(), WithClock(fixedClock))
	res, err := p.Parse(context.Background(), repo)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, repo, res.RepoRoot)

	root := res.Root
	assert.Equal(t, trees.KindRepo, root.Kind)
	require.Len(t, root.Children, 2)

	readme := root.Children[0]
	assert.Equal(t, "README.md", readme.Path)
	assert.True(t, older.Equal(readme.LastModified))

	svc := root.Children[1]
	assert.Equal(t, "service", svc.Kind)
	assert.Equal(t, "service-example", svc.Name)
	assert.Equal(t, "python", svc.Metadata["language"])
	require.Len(t, svc.Children, 2)
	assert.Equal(t, "README.md", svc.Children[0].Path)
	assert.Equal(t, "docs/testing.md", svc.Children[1].Path)
	assert.True(t, newer.Equal(svc.Children[1].LastModified))

	assert.True(t, newer.Equal(svc.LastModified), "service rolls up to its newest file")
	assert.True(t, newer.Equal(root.LastModified))

	owner, err := res.Owner(filepath.Join(repo, "service-example", "docs", "testing.md"))
	require.NoError(t, err)
	assert.Same(t, svc, owner)

	assert.Equal(t, 3, res.Metrics.Files)
	assert.Equal(t, 1, res.Metrics.Resources())
}

func TestParseUncommittedFileResolvesToNow(t *testing.T) {
	repo, _, _ := serviceRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"service-example/new.md": "draft"})

	res, err := New(classifier.Defaults(), options.DefaultParseOptions(), WithClock(fixedClock)).
		Parse(context.Background(), repo)
	require.NoError(t, err)

	draft, ok := res.Index.Lookup(filepath.Join(repo, "service-example", "new.md"))
	require.True(t, ok)
	assert.Equal(t, parseNow, draft.LastModified)
	assert.Equal(t, parseNow, res.Root.LastModified)
}

func TestParseWithoutHistory(t *testing.T) {
	repo, _, _ := serviceRepo(t)

	opts := options.DefaultParseOptions()
	opts.History.Enabled = false
	res, err := New(classifier.Defaults(), opts, WithClock(fixedClock)).Parse(context.Background(), repo)
	require.NoError(t, err)

	trees.Walk(res.Root, func(r *trees.Resource, _ int) bool {
		assert.Equal(t, parseNow, r.LastModified)
		return true
	})
}

func TestParseIsIdempotent(t *testing.T) {
	repo, _, _ := serviceRepo(t)
	p := New(classifier.Defaults(), options.DefaultParseOptions(), WithClock(fixedClock))

	first, err := p.Parse(context.Background(), repo)
	require.NoError(t, err)
	second, err := p.Parse(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, first.Root, second.Root)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestParseEmptyRepository(t *testing.T) {
	repo := testutil.NewRepo(t)
	testutil.WriteFiles(t, repo, map[string]string{"README.md": "x"})

	res, err := New(classifier.Defaults(), options.DefaultParseOptions(), WithClock(fixedClock)).
		Parse(context.Background(), repo)
	require.NoError(t, err)
	require.Len(t, res.Root.Children, 1)
	assert.Equal(t, parseNow, res.Root.Children[0].LastModified)
}

// recordingAssertions returns a handler that records failures instead of exiting
func recordingAssertions(out *bytes.Buffer, failures *int) *assertlib.AssertHandler {
	h := assertlib.NewAssertHandler()
	h.ToWriter(out)
	h.SetExitFunc(func(int) { *failures++ })
	return h
}

func TestParseTreeInvariants(t *testing.T) {
	t.Run("finished tree passes", func(t *testing.T) {
		repo, _, _ := serviceRepo(t)
		var out bytes.Buffer
		failures := 0

		_, err := New(classifier.Defaults(), options.DefaultParseOptions(),
			WithClock(fixedClock), WithAssertHandler(recordingAssertions(&out, &failures))).
			Parse(context.Background(), repo)
		require.NoError(t, err)
		assert.Zero(t, failures, out.String())
	})

	t.Run("broken tree is reported", func(t *testing.T) {
		var out bytes.Buffer
		failures := 0
		p := New(classifier.Defaults(), options.DefaultParseOptions(),
			WithAssertHandler(recordingAssertions(&out, &failures)))

		older := time.Unix(1600000000, 0)
		newer := time.Unix(1700000000, 0)
		root := &trees.Resource{
			Kind:         trees.KindRepo,
			LastModified: older,
			Children: []*trees.Resource{
				{
					Kind:         trees.KindFile,
					SourcePath:   "/repo/README.md",
					LastModified: newer,
					Children:     []*trees.Resource{{Kind: trees.KindFile, LastModified: newer}},
				},
			},
		}

		p.assertTree(context.Background(), root)
		assert.Equal(t, 2, failures)
		assert.Contains(t, out.String(), "file resource has children")
		assert.Contains(t, out.String(), "resource is not stamped with its newest child")
	})
}

// failingHistory is a git service whose history queries always fail
type failingHistory struct {
	*services.GitServiceImpl
}

func (failingHistory) LogNameOnly(context.Context, string, []string) (string, error) {
	return "", errors.New("history backend unavailable")
}

func TestParseHistoryFailureIsFatal(t *testing.T) {
	repo, _, _ := serviceRepo(t)

	p := New(classifier.Defaults(), options.DefaultParseOptions(),
		WithGitService(failingHistory{services.NewGitService()}))
	_, err := p.Parse(context.Background(), repo)

	var qerr *common.HistoryQueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 0, qerr.Chunk)
}

func TestWatchRebuildsOnChange(t *testing.T) {
	repo, _, _ := serviceRepo(t)
	p := New(classifier.Defaults(), options.DefaultParseOptions(), WithClock(fixedClock))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type build struct {
		result *Result
		events []watcher.Event
	}
	builds := make(chan build, 4)
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, repo, 50*time.Millisecond, func(r *Result, ev []watcher.Event) {
			builds <- build{r, ev}
		})
	}()

	initial := <-builds
	assert.Nil(t, initial.events)
	assert.Len(t, trees.Collect(initial.result.Root, "library"), 0)

	testutil.WriteFiles(t, repo, map[string]string{"lib/README.md": "---\ntype: library\n---\n"})

	select {
	case next := <-builds:
		assert.NotEmpty(t, next.events)
		assert.Len(t, trees.Collect(next.result.Root, "library"), 1)
	case <-ctx.Done():
		t.Fatal("no rebuild after change")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSkipVCS(t *testing.T) {
	assert.True(t, skipVCS("/repo/.git", true))
	assert.True(t, skipVCS("/repo/.git/objects/ab", true))
	assert.False(t, skipVCS("/repo/.github/workflows", true))
}
