// Package worker drains the ingest queue: each record is resolved against
// the participant directory and persisted as a check-in.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/adapters/mq/queue"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/pkg/logger"
	"github.com/mihrab-labs/salahstreak/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Resolver maps a raw device identifier onto a participant. The boolean is
// false for identifiers matching nobody; such records are still stored.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (model.Participant, bool, error)
}

// Store persists resolved check-ins.
type Store interface {
	InsertCheckIn(ctx context.Context, c *model.CheckIn) error
}

// Queue defines how workers receive punch records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// Worker consumes punch records until stopped.
type Worker struct {
	queue    Queue
	resolver Resolver
	store    Store
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a single ingest worker.
func NewWorker(q Queue, r Resolver, st Store, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		resolver: r,
		store:    st,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes records until the context is cancelled, the worker is shut
// down, or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			if err := w.processRecord(ctx, rec); err != nil {
				w.logger.Error(ctx, "punch ingest failed",
					logger.String("recordID", rec.RecordID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight record.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) processRecord(ctx context.Context, rec queue.Record) error {
	checkIn := model.CheckIn{
		ParticipantRef: rec.ParticipantRef,
		Timestamp:      rec.Timestamp,
		DeviceID:       rec.DeviceID,
	}

	participant, matched, err := w.resolver.Resolve(ctx, rec.ParticipantRef)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", rec.ParticipantRef, err)
	}
	if matched {
		checkIn.ParticipantID = participant.ID
	} else {
		// Kept with ParticipantID 0 so the record is visible for manual
		// reconciliation instead of vanishing.
		metrics.RecordPunchUnmatched()
		w.logger.Warn(ctx, "punch did not match any participant",
			logger.String("recordID", rec.RecordID),
			logger.String("participantRef", rec.ParticipantRef),
			logger.String("deviceID", rec.DeviceID),
		)
	}

	if err := w.store.InsertCheckIn(ctx, &checkIn); err != nil {
		return fmt.Errorf("store check-in %q: %w", rec.RecordID, err)
	}
	metrics.RecordPunchStored()
	return nil
}

// Pool runs a fixed set of ingest workers over one queue.
type Pool struct {
	workers []*Worker
}

// NewPool creates count workers sharing the queue, resolver, and store.
func NewPool(count int, q Queue, r Resolver, st Store) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{workers: make([]*Worker, count)}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, r, st, WithName(fmt.Sprintf("worker-%d", i)))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts all workers down, bounded by the pool shutdown timeout.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
}
