package queue

const defaultCapacity = 10000

// Option applies a configuration option to the queue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of buffered records.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}
