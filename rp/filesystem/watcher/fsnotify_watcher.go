package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher implements the Watcher interface using fsnotify
type FSNotifyWatcher struct {
	watcher   *fsnotify.Watcher
	errorChan chan error
	debouncer *DebouncerImpl
	config    WatcherConfig
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	watched   map[string]bool
	closeOnce sync.Once
}

// NewFSNotifyWatcher creates a new fsnotify-based watcher
func NewFSNotifyWatcher(config WatcherConfig) (*FSNotifyWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 500 * time.Millisecond
	}
	if config.MaxDebounceDelay <= 0 {
		config.MaxDebounceDelay = 10 * config.DebounceDelay
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = 16
	}

	return &FSNotifyWatcher{
		watcher:   fsWatcher,
		errorChan: make(chan error, 10),
		debouncer: NewDebouncer(config.DebounceDelay, config.MaxDebounceDelay, config.QueueCapacity),
		config:    config,
		watched:   make(map[string]bool),
	}, nil
}

// Start begins watching root and every directory below it
func (w *FSNotifyWatcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("watcher already started")
	}

	if err := w.addRecursive(root); err != nil {
		return err
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.watchLoop()

	slog.Info("FSNotify watcher started", "root", root, "directories", len(w.watched))
	return nil
}

// Batches returns debounced event batches
func (w *FSNotifyWatcher) Batches() <-chan []Event {
	return w.debouncer.Events()
}

// Errors returns the error channel
func (w *FSNotifyWatcher) Errors() <-chan error {
	return w.errorChan
}

// Close stops watching and cleans up resources
func (w *FSNotifyWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		if w.cancel != nil {
			w.cancel()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
		w.wg.Wait()

		w.debouncer.Close()
		close(w.errorChan)

		slog.Info("FSNotify watcher closed")
	})
	return err
}

// addRecursive adds dir and all its subdirectories that are not skipped.
// Called with mu held.
func (w *FSNotifyWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to walk %s: %w", dir, err)
			}
			slog.Warn("Skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skip(path, true) {
			return filepath.SkipDir
		}
		if w.watched[path] {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to add root path %s: %w", dir, err)
			}
			slog.Warn("Failed to add subdirectory to watcher", "path", path, "error", err)
			return nil
		}
		w.watched[path] = true
		return nil
	})
}

func (w *FSNotifyWatcher) skip(path string, isDir bool) bool {
	return w.config.Skip != nil && w.config.Skip(path, isDir)
}

// watchLoop is the main event processing loop
func (w *FSNotifyWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			ev, isDir := w.convertEvent(event)
			if ev == nil || w.skip(ev.Path, isDir) {
				continue
			}

			// new directories are watched so their files report too
			if ev.Type == EventCreate && isDir {
				w.mu.Lock()
				if err := w.addRecursive(ev.Path); err != nil {
					slog.Warn("Failed to watch new directory", "path", ev.Path, "error", err)
				}
				w.mu.Unlock()
			}
			if ev.Type == EventRemove || ev.Type == EventRename {
				w.mu.Lock()
				delete(w.watched, ev.Path)
				w.mu.Unlock()
			}

			w.debouncer.Add(*ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errorChan <- err:
			case <-w.ctx.Done():
				return
			default:
				slog.Warn("Error channel full, dropping error", "error", err)
			}
		}
	}
}

// convertEvent converts fsnotify.Event to watcher.Event
func (w *FSNotifyWatcher) convertEvent(event fsnotify.Event) (*Event, bool) {
	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventWrite
	case event.Has(fsnotify.Remove):
		eventType = EventRemove
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	case event.Has(fsnotify.Chmod):
		// permission changes never alter the resource tree
		return nil, false
	default:
		return nil, false
	}

	isDir := false
	if eventType == EventCreate || eventType == EventWrite {
		if info, err := os.Stat(event.Name); err == nil {
			isDir = info.IsDir()
		}
	}

	return &Event{
		Type:      eventType,
		Path:      event.Name,
		Timestamp: time.Now(),
	}, isDir
}

// Ensure FSNotifyWatcher implements the Watcher interface
var _ Watcher = (*FSNotifyWatcher)(nil)
