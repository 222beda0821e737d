package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/watcher"
)

// BuildFunc receives every successful rebuild with the batch that triggered
// it. The initial build has no events.
type BuildFunc func(result *Result, events []watcher.Event)

// Watch parses root, then reparses after every debounced batch of changes
// until ctx is done. A failed rebuild is logged and the previous result stays
// current.
func (p *Parser) Watch(ctx context.Context, root string, debounce time.Duration, onBuild BuildFunc) error {
	result, err := p.Parse(ctx, root)
	if err != nil {
		return err
	}
	onBuild(result, nil)

	w, err := watcher.NewFSNotifyWatcher(watcher.WatcherConfig{
		DebounceDelay: debounce,
		Skip:          skipVCS,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx, result.ScanRoot); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)

		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			slog.Info("Changes detected, rebuilding", "paths", len(batch))

			next, err := p.Parse(ctx, root)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Rebuild failed, keeping previous tree", "error", err)
				continue
			}
			onBuild(next, batch)
		}
	}
}

// skipVCS drops the version-control metadata directory and everything in it
func skipVCS(path string, _ bool) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == vcsDir {
			return true
		}
	}
	return false
}
