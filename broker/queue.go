package broker

import (
	"sync"

	"github.com/ostepan8/agentbus/message"
)

// boundedQueue is a capacity-bounded FIFO. Queue mutation is always
// serialized under a single mutex.
type boundedQueue struct {
	mu       sync.Mutex
	items    []*message.Message
	capacity int
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{capacity: capacity}
}

func (q *boundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// tryPush appends msg if the queue has room, returning false if full.
func (q *boundedQueue) tryPush(msg *message.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, msg)
	return true
}

// popFront removes and returns the oldest message, if any.
func (q *boundedQueue) popFront() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// dropOldest removes up to n of the oldest messages to free space under
// backpressure, returning how many were actually dropped.
func (q *boundedQueue) dropOldest(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	q.items = q.items[n:]
	return n
}
