package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Do after Stop or once Run has returned.
var ErrStopped = errors.New("engine stopped")

// op is one submitted operation and the channel its result goes to.
type op struct {
	fn   func(*Engine) error
	done chan error
}

// opQueue is a thread-safe FIFO of submitted operations.
//
// The queue is unbounded so Do never blocks on a slow writer. A buffered
// signal channel of size 1 coalesces wake-ups for the Run loop.
type opQueue struct {
	mu     sync.Mutex
	ops    []op
	closed bool
	signal chan struct{}
}

func newOpQueue() *opQueue {
	return &opQueue{
		ops:    make([]op, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an operation to the back of the queue.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(o op) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.ops = append(q.ops, o)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front operation without blocking.
func (q *opQueue) TryDequeue() (op, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return op{}, false
	}
	o := q.ops[0]
	// Clear the slot so the closure can be collected.
	q.ops[0] = op{}
	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}
	return o, true
}

// Wait returns a channel that signals when operations may be available.
// It is closed by Close.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close stops new submissions and wakes the Run loop.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// drain fails every pending operation with err.
func (q *opQueue) drain(err error) {
	for {
		o, ok := q.TryDequeue()
		if !ok {
			return
		}
		o.done <- err
	}
}

// Run executes submitted operations one at a time, in submission order,
// until ctx is cancelled or Stop is called. It must be called from exactly
// one goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine writer starting")
	for {
		if o, ok := e.queue.TryDequeue(); ok {
			o.done <- o.fn(e)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine writer stopping", zap.String("reason", "context cancelled"))
			e.queue.Close()
			e.queue.drain(ErrStopped)
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 && e.closed() {
				e.logger.Info("engine writer stopping", zap.String("reason", "stopped"))
				return nil
			}
		}
	}
}

// Do submits fn to the Run loop and waits for its result. It is safe to
// call from any goroutine. Cancelling ctx abandons the wait, not the
// operation: once dequeued it still runs.
func (e *Engine) Do(ctx context.Context, fn func(*Engine) error) error {
	o := op{fn: fn, done: make(chan error, 1)}
	if !e.queue.Enqueue(o) {
		return ErrStopped
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue. Run finishes the pending operations and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of operations waiting for the Run loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}
