// Package dispatch runs library store operations in the background and
// delivers their completions on a single channel for the UI loop.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const resultBuffer = 16

// Op is a unit of background work. Value is passed through to the Result.
type Op func(ctx context.Context) (any, error)

// Result is the completion of one dispatched operation
type Result struct {
	Name    string
	Value   any
	Err     error
	Elapsed time.Duration
}

// Dispatcher starts operations without waiting for them.
// Completions that arrive after Close are dropped.
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	results chan Result
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher. A zero timeout leaves operations unbounded.
func New(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		results: make(chan Result, resultBuffer),
		done:    make(chan struct{}),
	}
}

// Go starts op in the background and returns immediately.
// Returns false if the dispatcher is closed.
func (d *Dispatcher) Go(name string, op Op) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("dropping operation after close", "op", name)
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(name, op)
	return true
}

// Results delivers completions in the order they finish.
// The channel is closed once Close has returned.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Close cancels in-flight operations and waits for them to return.
// Their results are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	close(d.results)
}

func (d *Dispatcher) run(name string, op Op) {
	defer d.wg.Done()

	ctx := d.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := op(ctx)
	res := Result{Name: name, Value: value, Err: err, Elapsed: time.Since(start)}

	if err != nil {
		d.logger.Debug("operation failed", "op", name, "error", err, "elapsed", res.Elapsed)
	} else {
		d.logger.Debug("operation completed", "op", name, "elapsed", res.Elapsed)
	}

	// Drop once closed, even if the buffer has room
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.results <- res:
	case <-d.done:
		d.logger.Debug("discarding late result", "op", name)
	}
}
