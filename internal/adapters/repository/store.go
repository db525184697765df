// Package repository defines the persistence contract and its two
// implementations: an in-memory store for tests and standalone runs, and a
// Postgres store backed by bun.
package repository

import (
	"context"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// EventStore holds the schedule: one row per scheduled event.
type EventStore interface {
	// CreateEvent persists a new scheduled event and assigns its ID.
	CreateEvent(ctx context.Context, e *model.ScheduledEvent) error

	// GetEvent returns one event. Returns ErrNotFound for unknown IDs.
	GetEvent(ctx context.Context, id int64) (model.ScheduledEvent, error)

	// UpdateEvent overwrites an existing event, typically to adjust its
	// tolerance window. Returns ErrNotFound for unknown IDs.
	UpdateEvent(ctx context.Context, e model.ScheduledEvent) error

	// ListActiveEvents returns active events ordered by date then expected
	// time. Nil bounds leave that side of the range open.
	ListActiveEvents(ctx context.Context, from, to *model.Date) ([]model.ScheduledEvent, error)
}

// CheckInStore holds raw punches. Rows are written once; only the processed
// flag is mutated afterwards.
type CheckInStore interface {
	// InsertCheckIn persists a punch and assigns its ID.
	InsertCheckIn(ctx context.Context, c *model.CheckIn) error

	// CheckInsBetween returns the participant's punches with from <=
	// timestamp < to, matched by internal ID or external code, ordered by
	// timestamp ascending.
	CheckInsBetween(ctx context.Context, p model.Participant, from, to time.Time) ([]model.CheckIn, error)

	// UnprocessedDates returns the distinct calendar days that have
	// punches not yet folded into scores.
	UnprocessedDates(ctx context.Context) ([]model.Date, error)

	// MarkProcessedThrough flags unprocessed punches created up to cutoff
	// as processed. Punches arriving mid-run stay unprocessed for the
	// next sweep.
	MarkProcessedThrough(ctx context.Context, cutoff time.Time) error
}

// ScoreStore holds one score row per (participant, event) pair.
type ScoreStore interface {
	// UpsertScore creates or overwrites the row keyed by
	// (ParticipantID, ScheduledEventID). Re-running a batch never
	// duplicates rows.
	UpsertScore(ctx context.Context, s *model.ParticipantScore) error

	// DeleteScoresForEvent removes every score row referencing the event.
	DeleteScoresForEvent(ctx context.Context, eventID int64) error

	// ScoresFor returns a participant's scores ordered by event date.
	// Nil bounds leave that side of the range open.
	ScoresFor(ctx context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error)

	// TotalScore sums a participant's score values over the range.
	TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error)

	// SumScoresByParticipant sums score values per participant over
	// active events in the inclusive date range.
	SumScoresByParticipant(ctx context.Context, from, to model.Date) (map[int64]int, error)
}

// RoundStore holds competition rounds and their winners.
type RoundStore interface {
	// CreateRound persists a new round and assigns its ID.
	CreateRound(ctx context.Context, r *model.Round) error

	// GetRound returns one round. Returns ErrNotFound for unknown IDs.
	GetRound(ctx context.Context, id int64) (model.Round, error)

	// CurrentRound returns the earliest-starting active round whose span
	// contains today. Returns ErrNotFound when none does.
	CurrentRound(ctx context.Context, today model.Date) (model.Round, error)

	// LatestRound returns the round with the latest end date. Returns
	// ErrNotFound when no rounds exist.
	LatestRound(ctx context.Context) (model.Round, error)

	// ExpiredRounds returns active, not-completed rounds whose end date
	// is before today.
	ExpiredRounds(ctx context.Context, today model.Date) ([]model.Round, error)

	// CompleteRound marks the round completed. The transition is one-way.
	CompleteRound(ctx context.Context, id int64, at time.Time) error

	// InsertWinners persists winner rows in one batch. A duplicate
	// (round, participant) pair fails the batch with ErrDuplicate.
	InsertWinners(ctx context.Context, winners []model.Winner) error

	// Winners returns a round's winners ordered by age group then rank.
	// A non-nil ageGroupID restricts to one group.
	Winners(ctx context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error)
}

// Directory is the participant and age-group reference data this service
// consumes. Rows originate outside the core; creation exists for the
// configuration collaborator and for seeding.
type Directory interface {
	CreateAgeGroup(ctx context.Context, g *model.AgeGroup) error
	CreateParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, id int64) (model.Participant, error)
	ListParticipants(ctx context.Context) ([]model.Participant, error)
	ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error)
}

// Store aggregates every persistence concern the service needs.
type Store interface {
	EventStore
	CheckInStore
	ScoreStore
	RoundStore
	Directory
}
