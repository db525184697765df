package worker

import "github.com/mihrab-labs/salahstreak/pkg/logger"

// Option applies a configuration option to a worker.
type Option func(*Worker)

// WithName names the worker for log attribution.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.logger = w.logger.Named(name)
		}
	}
}

// WithLogger overrides the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
