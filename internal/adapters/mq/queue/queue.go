// Package queue provides the bounded buffer between the ingest endpoint and
// the workers that resolve and persist punches.
package queue

import (
	"context"
	"sync"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/pkg/metrics"
)

// Record is the payload type flowing through the queue.
type Record = model.PunchRecord

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record. Returns false when the queue is full or
	// closed; the caller owns retry.
	Enqueue(ctx context.Context, rec Record) bool

	// Dequeue returns the channel workers receive records on. It is
	// closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the current number of queued records.
	Len(ctx context.Context) int

	// Close stops the queue; no new records are accepted afterwards.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with the configured capacity.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)
	metrics.UpdateIngestQueueSize(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, rec Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.records <- rec:
		metrics.UpdateIngestQueueSize(len(q.records))
		return true
	case <-ctx.Done():
		return false
	default:
		metrics.RecordIngestBackpressure()
		return false
	}
}

// Dequeue returns the record channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Record {
	return q.records
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.records)
}

// Close shuts the queue down. Records still buffered remain readable until
// drained; the dequeue channel then reports closed.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.closed = true
	close(q.records)
	return nil
}
