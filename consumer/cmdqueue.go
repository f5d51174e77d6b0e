package consumer

import (
	"sync"

	"github.com/magnusoverli/ember-plus-sub000/nlog"
)

// queuedCmd pairs a host command with its priority class.
type queuedCmd struct {
	fn       hostCommand
	critical bool // write/invoke: never dropped to make room
}

// cmdQueue is the bounded host-command queue the engine goroutine drains.
// Expand/Subscribe/Unsubscribe/matrix-navigation requests are droppable
// prefetch-class intents: on overflow the oldest droppable entry is evicted
// to admit a new one. Write and Invoke are critical and are never dropped;
// admitting one over capacity evicts the oldest droppable entry instead, and
// only blocks the caller if the queue is saturated with critical commands
// (itself a genuine backlog of outstanding writes/invokes, not prefetch
// noise).
type cmdQueue struct {
	mu       sync.Mutex
	items    []queuedCmd
	capacity int

	notify chan struct{} // signaled (non-blocking) whenever an item is enqueued
	space  chan struct{} // signaled (non-blocking) whenever an item is dequeued

	onDrop func()
}

func newCmdQueue(capacity int) *cmdQueue {
	return &cmdQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// oldestDroppableLocked returns the index of the oldest non-critical entry,
// or -1 if every queued entry is critical.
func (q *cmdQueue) oldestDroppableLocked() int {
	for i, it := range q.items {
		if !it.critical {
			return i
		}
	}
	return -1
}

func (q *cmdQueue) dropped() {
	if q.onDrop != nil {
		q.onDrop()
	}
}

// pushCritical enqueues a write/invoke command, blocking only while the
// queue is full of other critical commands. stop aborts the wait early
// (e.g. the connection is tearing down).
func (q *cmdQueue) pushCritical(fn hostCommand, stop <-chan struct{}) {
	for {
		q.mu.Lock()
		if len(q.items) < q.capacity {
			q.items = append(q.items, queuedCmd{fn: fn, critical: true})
			q.mu.Unlock()
			wake(q.notify)
			return
		}
		if idx := q.oldestDroppableLocked(); idx >= 0 {
			q.items = append(q.items[:idx], q.items[idx+1:]...)
			q.items = append(q.items, queuedCmd{fn: fn, critical: true})
			q.mu.Unlock()
			nlog.Warnf("consumer: host command queue full, dropped a queued prefetch/subscribe to admit a write/invoke")
			q.dropped()
			wake(q.notify)
			return
		}
		q.mu.Unlock()
		select {
		case <-q.space:
		case <-stop:
			return
		}
	}
}

// pushDroppable enqueues a prefetch/subscribe-class command, never blocking:
// on overflow it evicts the oldest droppable entry, or drops itself if the
// queue is saturated with critical commands. Returns false when the command
// was dropped rather than enqueued.
func (q *cmdQueue) pushDroppable(fn hostCommand) bool {
	q.mu.Lock()
	if len(q.items) < q.capacity {
		q.items = append(q.items, queuedCmd{fn: fn})
		q.mu.Unlock()
		wake(q.notify)
		return true
	}
	if idx := q.oldestDroppableLocked(); idx >= 0 {
		q.items = append(q.items[:idx], q.items[idx+1:]...)
		q.items = append(q.items, queuedCmd{fn: fn})
		q.mu.Unlock()
		nlog.Warnf("consumer: host command queue full, dropped oldest queued prefetch/subscribe")
		q.dropped()
		wake(q.notify)
		return true
	}
	q.mu.Unlock()
	nlog.Warnf("consumer: host command queue full of pending writes/invokes, dropped a new prefetch/subscribe request")
	q.dropped()
	return false
}

// pop removes and returns the oldest queued command, if any.
func (q *cmdQueue) pop() (hostCommand, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	it := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	wake(q.space)
	return it.fn, true
}
