package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/internal/domain/scoring"
	"github.com/mihrab-labs/salahstreak/pkg/logger"
	"github.com/mihrab-labs/salahstreak/pkg/metrics"
)

// ProcessScores evaluates every active scheduled event in the optional date
// range against every active participant and upserts one score row per
// pair. Re-running over the same range is idempotent: rows are overwritten
// in place, never duplicated. A failure aborts the remaining batch; rows
// already written stay committed and the run is safe to repeat.
func (s *Service) ProcessScores(ctx context.Context, from, to *model.Date) error {
	start := time.Now()

	events, err := s.store.ListActiveEvents(ctx, from, to)
	if err != nil {
		metrics.RecordScoringRunError()
		return fmt.Errorf("list events: %w", err)
	}
	participants, err := s.activeParticipants(ctx)
	if err != nil {
		metrics.RecordScoringRunError()
		return err
	}

	written := 0
	for _, e := range events {
		for _, p := range participants {
			if err := s.scorePair(ctx, p, e); err != nil {
				metrics.RecordScoringRunError()
				s.logger.Error(ctx, "score processing aborted",
					logger.Int64("participantID", p.ID),
					logger.Int64("eventID", e.ID),
					logger.Int("rowsWritten", written),
					logger.Error(err),
				)
				return fmt.Errorf("score participant %d for event %d: %w", p.ID, e.ID, err)
			}
			written++
		}
	}

	metrics.AddScoreRowsWritten(written)
	metrics.RecordScoringRun(time.Since(start))
	s.logger.Info(ctx, "score processing completed",
		logger.Int("events", len(events)),
		logger.Int("participants", len(participants)),
		logger.Int("rowsWritten", written),
	)
	return nil
}

// scorePair evaluates one (participant, event) pair and upserts its row.
func (s *Service) scorePair(ctx context.Context, p model.Participant, e model.ScheduledEvent) error {
	windowStart, expected, windowEnd := e.Window(s.loc)
	dayStart := e.Date.At(0, s.loc)
	dayEnd := e.Date.AddDays(1).At(0, s.loc)

	// One fetch covers both the tolerance window and the event's calendar
	// day; the window can poke past midnight for late-night events.
	from := dayStart
	if windowStart.Before(from) {
		from = windowStart
	}
	to := dayEnd
	if windowEnd.After(to) {
		to = windowEnd.Add(time.Nanosecond)
	}
	punches, err := s.store.CheckInsBetween(ctx, p, from, to)
	if err != nil {
		return err
	}

	var valid, late []model.CheckIn
	for _, c := range punches {
		switch {
		case !c.Timestamp.Before(windowStart) && !c.Timestamp.After(windowEnd):
			valid = append(valid, c)
		case !c.Timestamp.Before(dayStart) && c.Timestamp.Before(dayEnd):
			late = append(late, c)
		}
	}

	out := scoring.Evaluate(expected, valid, late)
	row := model.ParticipantScore{
		ParticipantID:    p.ID,
		ScheduledEventID: e.ID,
		Score:            out.Score,
		IsLate:           out.IsLate,
		IsDuplicate:      out.IsDuplicate,
		Notes:            out.Notes,
		UpdatedAt:        s.now(),
	}
	if out.Matched != nil {
		row.MatchedCheckInID = out.Matched.ID
		matchedAt := out.Matched.Timestamp
		row.MatchedAt = &matchedAt
	}
	return s.store.UpsertScore(ctx, &row)
}

// RecalculateForWindowChange drops the event's score rows and reprocesses
// the event, for use after its tolerance window was adjusted. Unknown
// events are a no-op.
func (s *Service) RecalculateForWindowChange(ctx context.Context, eventID int64) error {
	e, err := s.store.GetEvent(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn(ctx, "rescore requested for unknown event", logger.Int64("eventID", eventID))
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "recalculating scores after window change",
		logger.Int64("eventID", eventID),
		logger.String("date", e.Date.String()),
	)
	if err := s.store.DeleteScoresForEvent(ctx, eventID); err != nil {
		return fmt.Errorf("delete scores for event %d: %w", eventID, err)
	}

	participants, err := s.activeParticipants(ctx)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if err := s.scorePair(ctx, p, e); err != nil {
			return fmt.Errorf("rescore participant %d for event %d: %w", p.ID, eventID, err)
		}
	}
	return nil
}

// ProcessNewScores is the scoring sweep body: find the calendar days with
// unprocessed punches, rescore each of those days, then flag the punches
// that existed when the sweep started.
func (s *Service) ProcessNewScores(ctx context.Context) error {
	cutoff := s.now()
	dates, err := s.store.UnprocessedDates(ctx)
	if err != nil {
		return fmt.Errorf("list unprocessed dates: %w", err)
	}
	if len(dates) == 0 {
		return nil
	}

	s.logger.Info(ctx, "processing scores for days with new punches", logger.Int("days", len(dates)))
	for _, d := range dates {
		day := d
		if err := s.ProcessScores(ctx, &day, &day); err != nil {
			return err
		}
	}
	return s.store.MarkProcessedThrough(ctx, cutoff)
}

// TotalScore sums a participant's score values over the optional range.
func (s *Service) TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error) {
	return s.store.TotalScore(ctx, participantID, from, to)
}

// ScoresFor returns a participant's score rows ordered by event date.
func (s *Service) ScoresFor(ctx context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error) {
	return s.store.ScoresFor(ctx, participantID, from, to)
}

func (s *Service) activeParticipants(ctx context.Context) ([]model.Participant, error) {
	all, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	active := all[:0:0]
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}
