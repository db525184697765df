// Package scheduler runs recurring background jobs on a fixed delay.
package scheduler

import (
	"context"
	"time"

	"github.com/mihrab-labs/salahstreak/pkg/logger"
)

const defaultBackoff = 30 * time.Second

// Job is one iteration of a recurring task.
type Job func(ctx context.Context) error

// Runner executes a Job on a fixed delay until its context is cancelled.
// The delay is measured from the end of one run to the start of the next,
// so slow runs never overlap.
type Runner struct {
	name     string
	interval time.Duration
	backoff  time.Duration
	job      Job
	logger   logger.Logger
	done     chan struct{}
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithBackoff sets the delay after a failed run. Defaults to 30s.
func WithBackoff(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner for the named job.
func NewRunner(name string, interval time.Duration, job Job, opts ...Option) *Runner {
	r := &Runner{
		name:     name,
		interval: interval,
		backoff:  defaultBackoff,
		job:      job,
		logger:   logger.Named("scheduler"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the run loop. The first run happens immediately.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Done is closed once the run loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	r.logger.Info(ctx, "scheduler started",
		logger.String("job", r.name),
		logger.Any("interval", r.interval.String()),
	)

	for {
		delay := r.interval
		if err := r.job(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			r.logger.Error(ctx, "scheduled job failed",
				logger.String("job", r.name),
				logger.Error(err),
			)
			delay = r.backoff
		}

		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "scheduler stopped", logger.String("job", r.name))
			return
		case <-time.After(delay):
		}
	}
	r.logger.Info(ctx, "scheduler stopped", logger.String("job", r.name))
}
