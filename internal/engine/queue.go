package engine

import (
	"sync"

	"github.com/roach88/treasury/internal/dao"
)

// eventQueue is a thread-safe FIFO of committed events awaiting delivery
// to the sink.
//
// The queue is unbounded so a slow sink never blocks a governance
// operation. Operations enqueue after commit; RunDispatcher drains.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the dispatcher (prevents goroutine hangs on context cancellation).
type eventQueue struct {
	mu     sync.Mutex
	events []dao.Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]dao.Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds events to the back of the queue in order.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(events ...dao.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if len(events) == 0 {
		return true
	}

	q.events = append(q.events, events...)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (dao.Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (dao.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return dao.Event{}, false
	}

	e := q.events[0]

	// Clear the slot so the payload map can be collected.
	q.events[0] = dao.Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
