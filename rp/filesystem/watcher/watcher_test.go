package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, ch <-chan []Event, timeout time.Duration) []Event {
	t.Helper()
	select {
	case batch, ok := <-ch:
		require.True(t, ok, "batch channel closed")
		return batch
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for batch")
		return nil
	}
}

func paths(batch []Event) []string {
	out := make([]string, len(batch))
	for i, ev := range batch {
		out[i] = ev.Path
	}
	return out
}

func TestDebouncer_CoalescesByPath(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, time.Second, 4)
	var _ Debouncer = d
	defer d.Close()

	d.Add(Event{Type: EventCreate, Path: "/r/b.md"})
	d.Add(Event{Type: EventWrite, Path: "/r/a.md"})
	d.Add(Event{Type: EventWrite, Path: "/r/b.md"})

	batch := receiveBatch(t, d.Events(), 2*time.Second)
	assert.Equal(t, []string{"/r/a.md", "/r/b.md"}, paths(batch))
	assert.Equal(t, EventWrite, batch[1].Type, "latest event per path wins")

	select {
	case extra := <-d.Events():
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayBoundsSteadyStream(t *testing.T) {
	d := NewDebouncer(80*time.Millisecond, 150*time.Millisecond, 4)
	defer d.Close()

	stop := time.After(400 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	start := time.Now()
	d.Add(Event{Path: "/r/x"})
	var got []Event
loop:
	for {
		select {
		case <-tick.C:
			d.Add(Event{Path: "/r/x"})
		case got = <-d.Events():
			break loop
		case <-stop:
			break loop
		}
	}

	require.NotEmpty(t, got, "batch held back past the max delay")
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDebouncer_CloseDropsPendingAndClosesChannel(t *testing.T) {
	d := NewDebouncer(time.Second, time.Second, 1)
	d.Add(Event{Path: "/r/a"})
	d.Close()
	d.Close()

	_, ok := <-d.Events()
	assert.False(t, ok)

	d.Add(Event{Path: "/r/b"})
}

func TestFSNotifyWatcher_ReportsChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skipme"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	w, err := NewFSNotifyWatcher(WatcherConfig{
		DebounceDelay: 50 * time.Millisecond,
		QueueCapacity: 4,
		Skip: func(path string, _ bool) bool {
			return filepath.Base(path) == "skipme"
		},
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx, root))
	assert.Error(t, w.Start(ctx, root), "second start is rejected")

	target := filepath.Join(root, "docs", "README.md")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skipme", "x.md"), []byte("x"), 0o644))

	batch := receiveBatch(t, w.Batches(), 3*time.Second)
	assert.Contains(t, paths(batch), target)
	for _, p := range paths(batch) {
		assert.NotContains(t, p, "skipme")
	}
}

func TestFSNotifyWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()

	w, err := NewFSNotifyWatcher(WatcherConfig{DebounceDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Start(context.Background(), root))

	sub := filepath.Join(root, "new")
	require.NoError(t, os.Mkdir(sub, 0o755))
	receiveBatch(t, w.Batches(), 3*time.Second)

	target := filepath.Join(sub, "file.md")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	batch := receiveBatch(t, w.Batches(), 3*time.Second)
	assert.Contains(t, paths(batch), target)
}

func TestFSNotifyWatcher_StartMissingRoot(t *testing.T) {
	w, err := NewFSNotifyWatcher(WatcherConfig{})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Start(context.Background(), filepath.Join(t.TempDir(), "missing")))
}
