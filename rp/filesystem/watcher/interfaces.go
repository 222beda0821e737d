package watcher

import (
	"context"
	"time"
)

// EventType represents the type of file system event
type EventType int

const (
	// EventCreate represents file/directory creation
	EventCreate EventType = iota
	// EventWrite represents file modification
	EventWrite
	// EventRemove represents file/directory removal
	EventRemove
	// EventRename represents file/directory rename
	EventRename
	// EventChmod represents permission changes
	EventChmod
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	case EventChmod:
		return "chmod"
	default:
		return "unknown"
	}
}

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// SkipFunc reports whether a path should not be watched or reported.
type SkipFunc func(path string, isDir bool) bool

// Watcher delivers debounced batches of file system events for a tree
type Watcher interface {
	// Start begins watching root and every directory below it
	Start(ctx context.Context, root string) error

	// Batches returns debounced event batches, one entry per path
	Batches() <-chan []Event

	// Errors returns a channel of errors encountered during watching
	Errors() <-chan error

	// Close stops watching and cleans up resources
	Close() error
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	// DebounceDelay is the quiet period before a batch is delivered
	DebounceDelay time.Duration

	// MaxDebounceDelay caps how long a batch can be held back by a steady stream of events
	MaxDebounceDelay time.Duration

	// QueueCapacity is the capacity of the batch channel
	QueueCapacity int

	// Skip filters paths; nil watches everything
	Skip SkipFunc
}

// Debouncer handles event debouncing
type Debouncer interface {
	// Add adds an event to be debounced
	Add(event Event)

	// Events returns debounced events
	Events() <-chan []Event

	// Close stops the debouncer
	Close()
}
