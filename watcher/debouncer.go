package watcher

import (
	"sort"
	"sync"
	"time"
)

// Change is one path that changed during a debounce window.
type Change struct {
	Path string
	Op   Op
}

// Op is the kind of file system operation seen last for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects changes and emits them as one batch after a quiet period.
// Multiple changes to the same path within the window collapse into one.
type Debouncer struct {
	interval time.Duration
	pending  map[string]Op
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	output   chan []Change
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]Op),
		output:   make(chan []Change, 1),
	}
}

// Output returns the channel that receives batches sorted by path.
func (d *Debouncer) Output() <-chan []Change {
	return d.output
}

// Add records a change. A later change to the same path replaces the earlier op.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[path] = op

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop discards pending changes; later calls to Add are dropped.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]Op)
}

// flush emits the pending changes. While the consumer is still busy with
// the previous batch, the changes stay pending and merge into the next one.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 || d.stopped {
		return
	}

	batch := make([]Change, 0, len(d.pending))
	for path, op := range d.pending {
		batch = append(batch, Change{Path: path, Op: op})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.output <- batch:
		d.pending = make(map[string]Op)
	default:
		d.timer = time.AfterFunc(d.interval, d.flush)
	}
}
