package session

import (
	"sync"

	"github.com/agromesh/realtime-gateway/internal/topic"
)

// Frame is one encoded outbound frame. The Data slice is shared between
// every recipient of the same event and must not be mutated.
type Frame struct {
	Data     []byte
	Priority topic.Priority
	Topic    string
}

// EnqueueResult reports what the backpressure policy did with a frame.
type EnqueueResult int

const (
	// Enqueued: the frame was accepted without dropping anything.
	Enqueued EnqueueResult = iota
	// EvictedOlder: the queue was full; the oldest lower-priority frame
	// was dropped to make room.
	EvictedOlder
	// DroppedIncoming: the queue was full of frames at or above the
	// incoming priority; the incoming frame was dropped.
	DroppedIncoming
	// QueueClosed: the session is past Closing; nothing was enqueued.
	QueueClosed
)

// Queue is the bounded per-session outbound FIFO. Producer is the
// dispatcher, consumer is the session's single writer goroutine, so
// FIFO order here is delivery order.
type Queue struct {
	mu       sync.Mutex
	items    []Frame
	capacity int
	closed   bool
	notify   chan struct{}
}

// NewQueue creates a queue with a hard frame capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue applies the drop policy and wakes the consumer.
func (q *Queue) Enqueue(f Frame) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return QueueClosed
	}

	result := Enqueued
	if len(q.items) >= q.capacity {
		victim := -1
		for i, buffered := range q.items {
			if buffered.Priority < f.Priority {
				victim = i
				break
			}
		}
		if victim < 0 {
			return DroppedIncoming
		}
		q.items = append(q.items[:victim], q.items[victim+1:]...)
		result = EvictedOlder
	}

	q.items = append(q.items, f)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return result
}

// Pop removes the oldest frame. Non-blocking; consumers wait on Wake
// when it reports empty.
func (q *Queue) Pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Frame{}, false
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f, true
}

// Wake is signalled whenever a frame arrives.
func (q *Queue) Wake() <-chan struct{} {
	return q.notify
}

// Len returns the current depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues. Buffered frames remain poppable so the
// drain window can flush them.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
