package watcher

import (
	"sort"
	"sync"
	"time"
)

// DebouncerImpl collects events until no new event has arrived for delay,
// or maxDelay has passed since the first pending event, then delivers them
// as one batch holding the latest event per path.
type DebouncerImpl struct {
	delay     time.Duration
	maxDelay  time.Duration
	eventChan chan []Event

	mu      sync.Mutex
	pending map[string]Event
	first   time.Time
	timer   *time.Timer
	closed  bool
	done    chan struct{}

	inflight sync.WaitGroup
}

// NewDebouncer creates a new debouncer
func NewDebouncer(delay, maxDelay time.Duration, queueCapacity int) *DebouncerImpl {
	if maxDelay < delay {
		maxDelay = delay
	}
	return &DebouncerImpl{
		delay:     delay,
		maxDelay:  maxDelay,
		eventChan: make(chan []Event, queueCapacity),
		pending:   make(map[string]Event),
		done:      make(chan struct{}),
	}
}

// Add adds an event to be debounced
func (d *DebouncerImpl) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	now := time.Now()
	if len(d.pending) == 0 {
		d.first = now
	}
	d.pending[event.Path] = event

	wait := d.delay
	if remaining := d.maxDelay - now.Sub(d.first); remaining < wait {
		wait = max(remaining, 0)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(wait, d.flush)
}

// Events returns the debounced events channel
func (d *DebouncerImpl) Events() <-chan []Event {
	return d.eventChan
}

func (d *DebouncerImpl) flush() {
	d.mu.Lock()
	if d.closed || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	d.pending = make(map[string]Event)
	d.timer = nil
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.eventChan <- batch:
	case <-d.done:
	}
}

// Close stops the debouncer, drops pending events and closes the batch channel
func (d *DebouncerImpl) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	close(d.done)
	d.mu.Unlock()

	d.inflight.Wait()
	close(d.eventChan)
}
