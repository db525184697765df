// Package service wires the attendance scorer, round manager, and ingest
// pipeline behind one facade used by the HTTP API and the schedulers.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/adapters/mq/queue"
	"github.com/mihrab-labs/salahstreak/internal/adapters/mq/worker"
	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/dedupe"
	"github.com/mihrab-labs/salahstreak/internal/domain/identity"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/pkg/logger"
	"github.com/mihrab-labs/salahstreak/pkg/metrics"
)

// Service implements the scoring and round operations over a Store.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	deduper  dedupe.Deduper
	queue    queue.Queue
	pool     *worker.Pool
	resolver *directoryResolver

	loc *time.Location
	now func() time.Time

	// Round policy
	eventsPerDay      int
	eligibilityRatio  float64
	roundDurationDays int
	autoCreateRounds  bool

	// Ingest configuration
	queueSize   int
	workerCount int
	dedupeSize  int

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Required before Start.
func WithStore(st repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the timezone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source. Used by tests to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQueueSize bounds the ingest queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize bounds the punch record-ID dedupe cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithRoundPolicy sets the defaults new rounds derive their eligibility
// threshold from.
func WithRoundPolicy(durationDays, eventsPerDay int, eligibilityRatio float64) Option {
	return func(s *Service) {
		if durationDays > 0 {
			s.roundDurationDays = durationDays
		}
		if eventsPerDay > 0 {
			s.eventsPerDay = eventsPerDay
		}
		if eligibilityRatio > 0 && eligibilityRatio <= 1 {
			s.eligibilityRatio = eligibilityRatio
		}
	}
}

// WithAutoCreateRounds lets the round sweep open a follow-on round when no
// round covers today.
func WithAutoCreateRounds(enabled bool) Option {
	return func(s *Service) { s.autoCreateRounds = enabled }
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		loc:               time.Local,
		now:               time.Now,
		eventsPerDay:      5,
		eligibilityRatio:  0.975,
		roundDurationDays: 40,
		queueSize:         10_000,
		workerCount:       runtime.NumCPU(),
		dedupeSize:        50_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start initializes the ingest pipeline. The store must be set.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.resolver = &directoryResolver{store: s.store}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.resolver, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.Int("ingestWorkers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop shuts the ingest pipeline down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "attendance service stopped")
}

// IngestCheckIn accepts one punch record from a device collaborator. A
// replayed record ID is acknowledged as a duplicate without being stored
// again. Returns ErrBackpressure when the queue is full; the record may be
// retried because its ID is unrecorded on the way out.
func (s *Service) IngestCheckIn(ctx context.Context, rec model.PunchRecord) (duplicate bool, err error) {
	if rec.RecordID == "" {
		return false, fmt.Errorf("%w: missing record id", ErrInvalidPunch)
	}
	if s.deduper.SeenAndRecord(ctx, rec.RecordID) {
		metrics.RecordPunchDuplicate()
		return true, nil
	}
	if !s.queue.Enqueue(ctx, rec) {
		s.deduper.Unrecord(ctx, rec.RecordID)
		return false, ErrBackpressure
	}
	metrics.RecordPunchAccepted()
	return false, nil
}

// Stats returns service counters for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"ingestWorkers": s.workerCount,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeSize"] = s.deduper.Size()
	}
	return stats
}

// Store exposes the backing store for collaborators that own reference
// data, e.g. the admin endpoints creating participants and events.
func (s *Service) Store() repository.Store {
	return s.store
}

func (s *Service) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// directoryResolver resolves device identifiers against the participant
// directory, rebuilding its cache on a miss so participants registered
// after startup are still matched.
type directoryResolver struct {
	mu     sync.Mutex
	store  repository.Directory
	cached *identity.Resolver
}

func (d *directoryResolver) Resolve(ctx context.Context, ref string) (model.Participant, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil {
		if p, ok := d.cached.Resolve(ref); ok {
			return p, true, nil
		}
	}
	participants, err := d.store.ListParticipants(ctx)
	if err != nil {
		return model.Participant{}, false, fmt.Errorf("load participant directory: %w", err)
	}
	d.cached = identity.NewResolver(participants)
	p, ok := d.cached.Resolve(ref)
	return p, ok, nil
}
