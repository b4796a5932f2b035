package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	q := New(2)

	require.NoError(t, q.PutNoWait("a"))
	require.NoError(t, q.PutNoWait("b"))
	assert.Equal(t, ErrFull, q.PutNoWait("c"))

	v, err := q.GetNoWait()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = q.GetNoWait()
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = q.GetNoWait()
	assert.Equal(t, ErrEmpty, err)
}

func TestGetNoWaitOnEmptyQueueDoesNotBlock(t *testing.T) {
	q := New(4)
	_, err := q.GetNoWait()
	assert.Equal(t, ErrEmpty, err)
}

func TestApproxLenTracksPutsAndGets(t *testing.T) {
	q := New(4)
	assert.Equal(t, 0, q.ApproxLen())

	_ = q.PutNoWait(1)
	_ = q.PutNoWait(2)
	assert.Equal(t, 2, q.ApproxLen())

	_, _ = q.GetNoWait()
	assert.Equal(t, 1, q.ApproxLen())
}

// TestConcurrentProducerConsumer exercises the single-producer/single-consumer
// contract the work queue must hold under the framework's actual usage
// pattern: the periodic worker enqueues while the offer handler dequeues.
func TestConcurrentProducerConsumer(t *testing.T) {
	q := New(100)
	const n = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for q.PutNoWait(i) == ErrFull {
			}
		}
	}()

	received := 0
	for received < n {
		if _, err := q.GetNoWait(); err == nil {
			received++
		}
	}
	wg.Wait()
	assert.Equal(t, n, received)
}
