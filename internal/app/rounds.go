package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/internal/domain/ranking"
	"github.com/mihrab-labs/salahstreak/pkg/logger"
	"github.com/mihrab-labs/salahstreak/pkg/metrics"
)

// CreateRound opens a new competition round starting on the given day. A
// zero durationDays falls back to the configured round length. The
// eligibility threshold is computed once at creation and stored on the
// round, so later policy changes never move the bar for rounds already
// underway.
func (s *Service) CreateRound(ctx context.Context, name string, start model.Date, durationDays int) (model.Round, error) {
	if durationDays <= 0 {
		durationDays = s.roundDurationDays
	}
	if start.IsZero() {
		return model.Round{}, fmt.Errorf("%w: start date required", ErrInvalidRound)
	}

	now := s.now()
	r := model.Round{
		Name:                 name,
		StartDate:            start,
		EndDate:              start.AddDays(durationDays - 1),
		DurationDays:         durationDays,
		EventsPerDay:         s.eventsPerDay,
		EligibilityThreshold: ranking.Threshold(durationDays, s.eventsPerDay, s.eligibilityRatio),
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateRound(ctx, &r); err != nil {
		return model.Round{}, fmt.Errorf("create round: %w", err)
	}

	metrics.RecordRoundCreated()
	s.logger.Info(ctx, "round created",
		logger.Int64("roundID", r.ID),
		logger.String("name", r.Name),
		logger.String("start", r.StartDate.String()),
		logger.String("end", r.EndDate.String()),
		logger.Int("threshold", r.EligibilityThreshold),
	)
	return r, nil
}

// ProcessWinners ranks the round's eligible participants per age group,
// commits the winner rows and marks the round completed. The operation is
// idempotent: a completed round is a no-op, and a duplicate winner insert
// (from a crash between insert and completion) is treated as already
// processed so the completion flag still lands.
func (s *Service) ProcessWinners(ctx context.Context, roundID int64) error {
	r, err := s.store.GetRound(ctx, roundID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn(ctx, "winner processing requested for unknown round", logger.Int64("roundID", roundID))
		return nil
	}
	if err != nil {
		return err
	}
	if r.Completed {
		s.logger.Info(ctx, "round already completed", logger.Int64("roundID", roundID))
		return nil
	}

	standings, err := s.roundStandings(ctx, r)
	if err != nil {
		return err
	}
	groups, err := s.store.ListAgeGroups(ctx)
	if err != nil {
		return fmt.Errorf("list age groups: %w", err)
	}

	now := s.now()
	var winners []model.Winner
	for _, g := range groups {
		for _, w := range ranking.RankAgeGroup(g, standings, r.EligibilityThreshold) {
			w.RoundID = r.ID
			w.CreatedAt = now
			winners = append(winners, w)
		}
	}

	if len(winners) > 0 {
		err = s.store.InsertWinners(ctx, winners)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.logger.Warn(ctx, "winners already recorded, completing round", logger.Int64("roundID", r.ID))
		case err != nil:
			return fmt.Errorf("insert winners for round %d: %w", r.ID, err)
		default:
			metrics.AddWinnersSelected(len(winners))
		}
	}

	if err := s.store.CompleteRound(ctx, r.ID, now); err != nil {
		return fmt.Errorf("complete round %d: %w", r.ID, err)
	}
	metrics.RecordRoundCompleted()
	s.logger.Info(ctx, "round completed",
		logger.Int64("roundID", r.ID),
		logger.Int("winners", len(winners)),
		logger.Int("eligible", countEligible(standings, r.EligibilityThreshold)),
	)
	return nil
}

// AutoCompleteExpired processes winners for every active round whose end
// date has passed. Failures are logged per round; one broken round does
// not block the others.
func (s *Service) AutoCompleteExpired(ctx context.Context) error {
	expired, err := s.store.ExpiredRounds(ctx, s.today())
	if err != nil {
		return fmt.Errorf("list expired rounds: %w", err)
	}
	for _, r := range expired {
		if err := s.ProcessWinners(ctx, r.ID); err != nil {
			s.logger.Error(ctx, "auto-completing round failed",
				logger.Int64("roundID", r.ID),
				logger.Error(err),
			)
		}
	}
	return nil
}

// EnsureCurrentRound creates the next round when none covers today. It is
// a no-op unless round auto-creation is enabled. A new round starts the
// day after the latest round ended, or today when no round exists yet,
// and is only created once its start date has arrived.
func (s *Service) EnsureCurrentRound(ctx context.Context) error {
	if !s.autoCreateRounds {
		return nil
	}
	today := s.today()

	if _, err := s.store.CurrentRound(ctx, today); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	start := today
	latest, err := s.store.LatestRound(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return err
	default:
		if next := latest.EndDate.AddDays(1); next.After(start) {
			start = next
		}
	}
	if start.After(today) {
		return nil
	}

	name := fmt.Sprintf("Round %04d-%02d", start.Year, int(start.Month))
	_, err = s.CreateRound(ctx, name, start, s.roundDurationDays)
	return err
}

// CurrentRound returns the round covering today, if any.
func (s *Service) CurrentRound(ctx context.Context) (model.Round, error) {
	return s.store.CurrentRound(ctx, s.today())
}

// IsRoundActive reports whether the round exists, is open and covers
// today. An unknown round is simply inactive, not an error.
func (s *Service) IsRoundActive(ctx context.Context, roundID int64) (bool, error) {
	r, err := s.store.GetRound(ctx, roundID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Active && !r.Completed && r.Contains(s.today()), nil
}

// ParticipantRoundScore returns the participant's total over the round's
// date span. An unknown round scores zero.
func (s *Service) ParticipantRoundScore(ctx context.Context, roundID, participantID int64) (int, error) {
	r, err := s.store.GetRound(ctx, roundID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.store.TotalScore(ctx, participantID, &r.StartDate, &r.EndDate)
}

// EligibleParticipants returns the standings of participants at or above
// the round's eligibility threshold, across all age groups.
func (s *Service) EligibleParticipants(ctx context.Context, roundID int64) ([]ranking.Standing, error) {
	r, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	standings, err := s.roundStandings(ctx, r)
	if err != nil {
		return nil, err
	}
	eligible := standings[:0:0]
	for _, st := range standings {
		if st.Total >= r.EligibilityThreshold {
			eligible = append(eligible, st)
		}
	}
	return eligible, nil
}

// RoundWinners returns the committed winner rows of a round, optionally
// filtered to one age group.
func (s *Service) RoundWinners(ctx context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error) {
	return s.store.Winners(ctx, roundID, ageGroupID)
}

// roundStandings sums every active participant's score over the round span.
func (s *Service) roundStandings(ctx context.Context, r model.Round) ([]ranking.Standing, error) {
	totals, err := s.store.SumScoresByParticipant(ctx, r.StartDate, r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("sum scores for round %d: %w", r.ID, err)
	}
	participants, err := s.activeParticipants(ctx)
	if err != nil {
		return nil, err
	}
	standings := make([]ranking.Standing, 0, len(participants))
	for _, p := range participants {
		standings = append(standings, ranking.Standing{Participant: p, Total: totals[p.ID]})
	}
	return standings, nil
}

func countEligible(standings []ranking.Standing, threshold int) int {
	n := 0
	for _, st := range standings {
		if st.Total >= threshold {
			n++
		}
	}
	return n
}
