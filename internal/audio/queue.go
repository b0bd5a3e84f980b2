package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DropPolicy chooses which chunk is discarded when the queue is full.
type DropPolicy string

const (
	// DropOldest evicts the oldest queued chunk to make room for the new one.
	DropOldest DropPolicy = "drop_oldest"
	// DropNewest discards the incoming chunk.
	DropNewest DropPolicy = "drop_newest"
)

// ParseDropPolicy maps a config value to a DropPolicy.
func ParseDropPolicy(raw string) (DropPolicy, error) {
	switch DropPolicy(raw) {
	case DropOldest, DropNewest:
		return DropPolicy(raw), nil
	default:
		return "", fmt.Errorf("unknown drop policy %q", raw)
	}
}

// Queue is the bounded hand-off between the capture callback and the listener.
// Push never blocks.
type Queue struct {
	ch      chan []int16
	policy  DropPolicy
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewQueue returns a queue holding up to capacity chunks.
func NewQueue(capacity int, policy DropPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if policy != DropNewest {
		policy = DropOldest
	}
	return &Queue{ch: make(chan []int16, capacity), policy: policy}
}

// Push enqueues chunk and reports whether it was accepted.
func (q *Queue) Push(chunk []int16) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	select {
	case q.ch <- chunk:
		return true
	default:
	}

	if q.policy == DropNewest {
		q.dropped.Add(1)
		return false
	}

	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- chunk:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// C returns the receive side. It is closed by Close.
func (q *Queue) C() <-chan []int16 {
	return q.ch
}

// Close closes the channel once. Later pushes are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Dropped reports how many chunks were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len reports the number of queued chunks.
func (q *Queue) Len() int {
	return len(q.ch)
}
