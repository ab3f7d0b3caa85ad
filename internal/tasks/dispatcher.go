package tasks

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subwatch/internal/shared"
)

// TaskFunc is the deferred unit of work. The context is the dispatcher's
// lifetime context; it is cancelled when the dispatcher closes.
type TaskFunc func(ctx context.Context) error

// Task is one queued unit of background work.
type Task struct {
	ID          string // process-unique handle id
	Group       string // queue partition; FIFO holds within a group only
	Description string // diagnostics label, never interpreted
	fn          TaskFunc
}

// Decision is the unload guard's answer to "may the process exit now".
type Decision int

const (
	Allow Decision = iota
	Block
)

func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "allow"
}

// Dispatcher runs enqueued tasks group by group with a single drain cycle.
type Dispatcher struct {
	mu        sync.Mutex
	groups    map[string][]Task
	pending   int // queued plus currently running tasks
	draining  bool
	drainDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

// NewDispatcher creates an idle Dispatcher.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		groups: make(map[string][]Task),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Enqueue appends a task to the named group's queue and returns its handle
// id immediately. If no drain cycle is active, one is started.
func (d *Dispatcher) Enqueue(group, description string, fn TaskFunc) string {
	task := Task{
		ID:          shared.GenerateID(),
		Group:       group,
		Description: description,
		fn:          fn,
	}

	d.mu.Lock()
	d.groups[group] = append(d.groups[group], task)
	d.pending++
	start := !d.draining
	if start {
		d.draining = true
		d.drainDone = make(chan struct{})
	}
	done := d.drainDone
	d.mu.Unlock()

	d.logger.Debug("task enqueued", "id", task.ID, "group", group, "description", description)

	if start {
		go d.drain(done)
	}
	return task.ID
}

// Guard returns a callback answering whether shutdown may proceed.
func (d *Dispatcher) Guard() func() Decision {
	return func() Decision {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.pending > 0 {
			return Block
		}
		return Allow
	}
}

// Wait blocks until the queue is fully drained or the context expires.
func (d *Dispatcher) Wait(ctx context.Context) error {
	for {
		d.mu.Lock()
		if !d.draining && d.pending == 0 {
			d.mu.Unlock()
			return nil
		}
		done := d.drainDone
		d.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels the dispatcher's context. Queued tasks still run, but their
// callables observe the cancellation.
func (d *Dispatcher) Close() {
	d.cancel()
}

// drain is the single active drain cycle. It repeats full passes over the
// group set until one pass finds zero groups.
func (d *Dispatcher) drain(done chan struct{}) {
	defer close(done)

	for {
		d.mu.Lock()
		if len(d.groups) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		names := make([]string, 0, len(d.groups))
		for name := range d.groups {
			names = append(names, name)
		}
		d.mu.Unlock()
		sort.Strings(names)

		for _, name := range names {
			d.drainGroup(name)
		}
	}
}

// drainGroup runs the named group's tasks in FIFO order until its queue is
// empty, then removes the group entry.
func (d *Dispatcher) drainGroup(name string) {
	for {
		d.mu.Lock()
		queue := d.groups[name]
		if len(queue) == 0 {
			delete(d.groups, name)
			d.mu.Unlock()
			return
		}
		task := queue[0]
		d.groups[name] = queue[1:]
		d.mu.Unlock()

		d.run(task)

		d.mu.Lock()
		d.pending--
		d.mu.Unlock()
	}
}

// run executes one task, absorbing errors and panics so the drain never
// halts.
func (d *Dispatcher) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", "id", task.ID, "group", task.Group,
				"description", task.Description, "panic", r)
		}
	}()

	if err := task.fn(d.ctx); err != nil {
		d.logger.Warn("task failed", "id", task.ID, "group", task.Group,
			"description", task.Description, "error", err)
		return
	}

	d.logger.Debug("task completed", "id", task.ID, "group", task.Group)
}
