// Package rotation implements the weighted round-robin schedule over product
// categories used when the work queue needs refilling. It is the Go
// realization of original_source/scheduler/config.py's product_frequency()
// plus the list.pop(0)/list.append() rotation performed inline in
// original_source/scheduler/main.py's resourceOffers.
package rotation

import "sync"

// Weight pairs a product category with its positive integer weight.
type Weight struct {
	Category string
	Weight   int
}

// Rotation is a thread-safe weighted round-robin ring over product
// categories. Per spec, thread-safety is only strictly required when the
// opportunistic offer-handler refill is kept alongside the periodic refill;
// this implementation always serializes access with a mutex so either
// calling convention is safe.
type Rotation struct {
	mu   sync.Mutex
	ring []string
}

// New builds the initial rotation sequence: each category repeated once per
// unit of its weight, in the order the weights were given. The multiset of
// elements is invariant over the rotation's lifetime.
func New(weights []Weight) *Rotation {
	ring := make([]string, 0)
	for _, w := range weights {
		for i := 0; i < w.Weight; i++ {
			ring = append(ring, w.Category)
		}
	}
	return &Rotation{ring: ring}
}

// Next returns the head of the rotation and moves it to the tail, giving
// weighted round-robin indefinitely. Next panics if the rotation was built
// from zero total weight — callers should not construct a Rotation from an
// all-zero weight set.
func (r *Rotation) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := r.ring[0]
	r.ring = append(r.ring[1:], head)
	return head
}

// Len reports the total number of elements in the rotation (sum of weights).
func (r *Rotation) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ring)
}

// Snapshot returns a copy of the current rotation order, for tests and
// diagnostics.
func (r *Rotation) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ring))
	copy(out, r.ring)
	return out
}
