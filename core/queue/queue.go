// Package queue implements the scheduler's bounded work queue: a FIFO of
// pending work units, safe for one producer (the refill job) and one
// consumer (the offer handler) operating concurrently.
//
// Both operations are non-blocking, following the same select/default idiom
// bluepeppers-etcd-mesos uses for its launchChan/pauseChan signaling channels
// (bluepeppers-etcd-mesos/scheduler/scheduler.go: QueueLaunchAttempt,
// PumpTheBrakes).
package queue

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by PutNoWait when the queue is at capacity.
var ErrFull = errors.New("queue: full")

// ErrEmpty is returned by GetNoWait when the queue has nothing pending.
var ErrEmpty = errors.New("queue: empty")

// Unit is the minimal shape the queue cares about: anything that can be
// carried through a channel. The scheduler stores *orderapi.WorkUnit here.
type Unit interface{}

// Queue is a bounded, non-blocking FIFO. The approximate size counter is
// racy by design (spec: "qsize() on the work queue is approximate under
// concurrency") — callers must treat ApproxLen as a soft guardrail, not a
// strict cap.
type Queue struct {
	items chan Unit
	size  int64
}

// New creates a Queue with the given capacity (Q_max); PutNoWait refuses
// any unit beyond it.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{items: make(chan Unit, capacity)}
}

// PutNoWait enqueues a unit, returning ErrFull without blocking and without
// dropping any existing entry if the queue is already at capacity.
func (q *Queue) PutNoWait(u Unit) error {
	select {
	case q.items <- u:
		atomic.AddInt64(&q.size, 1)
		return nil
	default:
		return ErrFull
	}
}

// GetNoWait dequeues the oldest unit, returning ErrEmpty without blocking if
// the queue has nothing pending.
func (q *Queue) GetNoWait() (Unit, error) {
	select {
	case u := <-q.items:
		atomic.AddInt64(&q.size, -1)
		return u, nil
	default:
		return nil, ErrEmpty
	}
}

// ApproxLen returns an approximate current size. Under concurrent
// producer/consumer access this can be stale by the time the caller acts on
// it; the product_scheduled_max check against it is a soft guardrail only.
func (q *Queue) ApproxLen() int {
	n := atomic.LoadInt64(&q.size)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Cap returns the queue's configured capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}
