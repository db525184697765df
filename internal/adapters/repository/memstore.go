package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

type scoreKey struct {
	participantID int64
	eventID       int64
}

type winnerKey struct {
	roundID       int64
	participantID int64
}

// MemoryStore implements Store with in-process maps. It backs tests and
// standalone runs without a database; the uniqueness guarantees match the
// Postgres store's constraints.
type MemoryStore struct {
	mu  sync.RWMutex
	loc *time.Location

	events       map[int64]model.ScheduledEvent
	checkIns     map[int64]model.CheckIn
	scores       map[int64]model.ParticipantScore
	scoreByPair  map[scoreKey]int64
	rounds       map[int64]model.Round
	winners      map[int64]model.Winner
	winnerByPair map[winnerKey]int64
	participants map[int64]model.Participant
	ageGroups    map[int64]model.AgeGroup

	nextID int64
}

// NewMemoryStore creates an empty in-memory store. Calendar-day grouping of
// punches uses loc.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.Local
	}
	return &MemoryStore{
		loc:          loc,
		events:       make(map[int64]model.ScheduledEvent),
		checkIns:     make(map[int64]model.CheckIn),
		scores:       make(map[int64]model.ParticipantScore),
		scoreByPair:  make(map[scoreKey]int64),
		rounds:       make(map[int64]model.Round),
		winners:      make(map[int64]model.Winner),
		winnerByPair: make(map[winnerKey]int64),
		participants: make(map[int64]model.Participant),
		ageGroups:    make(map[int64]model.AgeGroup),
	}
}

func (s *MemoryStore) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

// CreateEvent persists a new scheduled event and assigns its ID.
func (s *MemoryStore) CreateEvent(_ context.Context, e *model.ScheduledEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextSequence()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.events[e.ID] = *e
	return nil
}

// GetEvent returns one event.
func (s *MemoryStore) GetEvent(_ context.Context, id int64) (model.ScheduledEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return model.ScheduledEvent{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// UpdateEvent overwrites an existing event.
func (s *MemoryStore) UpdateEvent(_ context.Context, e model.ScheduledEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return fmt.Errorf("event %d: %w", e.ID, ErrNotFound)
	}
	s.events[e.ID] = e
	return nil
}

// ListActiveEvents returns active events ordered by date then expected time.
func (s *MemoryStore) ListActiveEvents(_ context.Context, from, to *model.Date) ([]model.ScheduledEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScheduledEvent
	for _, e := range s.events {
		if !e.Active {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].ExpectedTime != out[j].ExpectedTime {
			return out[i].ExpectedTime < out[j].ExpectedTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// InsertCheckIn persists a punch and assigns its ID.
func (s *MemoryStore) InsertCheckIn(_ context.Context, c *model.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextSequence()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.checkIns[c.ID] = *c
	return nil
}

// CheckInsBetween returns a participant's punches in [from, to), matched by
// internal ID or external code, ordered by timestamp.
func (s *MemoryStore) CheckInsBetween(_ context.Context, p model.Participant, from, to time.Time) ([]model.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CheckIn
	for _, c := range s.checkIns {
		if !matchesParticipant(c, p) {
			continue
		}
		if c.Timestamp.Before(from) || !c.Timestamp.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesParticipant(c model.CheckIn, p model.Participant) bool {
	if c.ParticipantID != 0 && c.ParticipantID == p.ID {
		return true
	}
	return c.ParticipantRef == p.Code
}

// UnprocessedDates returns distinct calendar days holding unprocessed punches.
func (s *MemoryStore) UnprocessedDates(_ context.Context) ([]model.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[model.Date]struct{})
	for _, c := range s.checkIns {
		if c.Processed {
			continue
		}
		seen[model.DateOf(c.Timestamp.In(s.loc))] = struct{}{}
	}
	out := make([]model.Date, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// MarkProcessedThrough flags unprocessed punches created up to cutoff.
func (s *MemoryStore) MarkProcessedThrough(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.checkIns {
		if !c.Processed && !c.CreatedAt.After(cutoff) {
			c.Processed = true
			s.checkIns[id] = c
		}
	}
	return nil
}

// UpsertScore creates or overwrites the (participant, event) score row.
func (s *MemoryStore) UpsertScore(_ context.Context, sc *model.ParticipantScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scoreKey{participantID: sc.ParticipantID, eventID: sc.ScheduledEventID}
	if id, ok := s.scoreByPair[key]; ok {
		existing := s.scores[id]
		sc.ID = existing.ID
		sc.CreatedAt = existing.CreatedAt
		s.scores[id] = *sc
		return nil
	}

	sc.ID = s.nextSequence()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	s.scores[sc.ID] = *sc
	s.scoreByPair[key] = sc.ID
	return nil
}

// DeleteScoresForEvent removes every score row referencing the event.
func (s *MemoryStore) DeleteScoresForEvent(_ context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sc := range s.scores {
		if sc.ScheduledEventID == eventID {
			delete(s.scores, id)
			delete(s.scoreByPair, scoreKey{participantID: sc.ParticipantID, eventID: eventID})
		}
	}
	return nil
}

// ScoresFor returns a participant's scores ordered by event date.
func (s *MemoryStore) ScoresFor(_ context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type dated struct {
		score model.ParticipantScore
		event model.ScheduledEvent
	}
	var rows []dated
	for _, sc := range s.scores {
		if sc.ParticipantID != participantID {
			continue
		}
		e, ok := s.events[sc.ScheduledEventID]
		if !ok {
			continue
		}
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		rows = append(rows, dated{score: sc, event: e})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].event.Date.Equal(rows[j].event.Date) {
			return rows[i].event.Date.Before(rows[j].event.Date)
		}
		if rows[i].event.ExpectedTime != rows[j].event.ExpectedTime {
			return rows[i].event.ExpectedTime < rows[j].event.ExpectedTime
		}
		return rows[i].score.ID < rows[j].score.ID
	})
	out := make([]model.ParticipantScore, len(rows))
	for i, r := range rows {
		out[i] = r.score
	}
	return out, nil
}

// TotalScore sums a participant's score values over the range.
func (s *MemoryStore) TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error) {
	scores, err := s.ScoresFor(ctx, participantID, from, to)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, sc := range scores {
		total += sc.Score
	}
	return total, nil
}

// SumScoresByParticipant sums score values per participant over active
// events in the inclusive date range.
func (s *MemoryStore) SumScoresByParticipant(_ context.Context, from, to model.Date) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int64]int)
	for _, sc := range s.scores {
		e, ok := s.events[sc.ScheduledEventID]
		if !ok || !e.Active {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		totals[sc.ParticipantID] += sc.Score
	}
	return totals, nil
}

// CreateRound persists a new round and assigns its ID.
func (s *MemoryStore) CreateRound(_ context.Context, r *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.nextSequence()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.rounds[r.ID] = *r
	return nil
}

// GetRound returns one round.
func (s *MemoryStore) GetRound(_ context.Context, id int64) (model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rounds[id]
	if !ok {
		return model.Round{}, fmt.Errorf("round %d: %w", id, ErrNotFound)
	}
	return r, nil
}

// CurrentRound returns the earliest-starting active round containing today.
func (s *MemoryStore) CurrentRound(_ context.Context, today model.Date) (model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current *model.Round
	for id := range s.rounds {
		r := s.rounds[id]
		if !r.Active || !r.Contains(today) {
			continue
		}
		if current == nil || r.StartDate.Before(current.StartDate) ||
			(r.StartDate.Equal(current.StartDate) && r.ID < current.ID) {
			current = &r
		}
	}
	if current == nil {
		return model.Round{}, fmt.Errorf("no round covering %s: %w", today, ErrNotFound)
	}
	return *current, nil
}

// LatestRound returns the round with the latest end date.
func (s *MemoryStore) LatestRound(_ context.Context) (model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Round
	for id := range s.rounds {
		r := s.rounds[id]
		if latest == nil || r.EndDate.After(latest.EndDate) {
			latest = &r
		}
	}
	if latest == nil {
		return model.Round{}, fmt.Errorf("no rounds: %w", ErrNotFound)
	}
	return *latest, nil
}

// ExpiredRounds returns active, not-completed rounds ending before today.
func (s *MemoryStore) ExpiredRounds(_ context.Context, today model.Date) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Round
	for _, r := range s.rounds {
		if r.Active && !r.Completed && r.EndDate.Before(today) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CompleteRound marks the round completed.
func (s *MemoryStore) CompleteRound(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return fmt.Errorf("round %d: %w", id, ErrNotFound)
	}
	r.Completed = true
	r.UpdatedAt = at
	s.rounds[id] = r
	return nil
}

// InsertWinners persists winner rows in one batch.
func (s *MemoryStore) InsertWinners(_ context.Context, winners []model.Winner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range winners {
		key := winnerKey{roundID: w.RoundID, participantID: w.ParticipantID}
		if _, ok := s.winnerByPair[key]; ok {
			return fmt.Errorf("winner for round %d participant %d: %w", w.RoundID, w.ParticipantID, ErrDuplicate)
		}
	}
	now := time.Now()
	for _, w := range winners {
		w.ID = s.nextSequence()
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		s.winners[w.ID] = w
		s.winnerByPair[winnerKey{roundID: w.RoundID, participantID: w.ParticipantID}] = w.ID
	}
	return nil
}

// Winners returns a round's winners ordered by age group then rank.
func (s *MemoryStore) Winners(_ context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Winner
	for _, w := range s.winners {
		if w.RoundID != roundID {
			continue
		}
		if ageGroupID != nil && w.AgeGroupID != *ageGroupID {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgeGroupID != out[j].AgeGroupID {
			return out[i].AgeGroupID < out[j].AgeGroupID
		}
		return out[i].RankInAgeGroup < out[j].RankInAgeGroup
	})
	return out, nil
}

// CreateAgeGroup persists a new age group and assigns its ID.
func (s *MemoryStore) CreateAgeGroup(_ context.Context, g *model.AgeGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = s.nextSequence()
	s.ageGroups[g.ID] = *g
	return nil
}

// CreateParticipant persists a new participant and assigns its ID.
func (s *MemoryStore) CreateParticipant(_ context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextSequence()
	s.participants[p.ID] = *p
	return nil
}

// GetParticipant returns one participant.
func (s *MemoryStore) GetParticipant(_ context.Context, id int64) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// ListParticipants returns every participant ordered by ID.
func (s *MemoryStore) ListParticipants(_ context.Context) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAgeGroups returns every age group ordered by minimum age.
func (s *MemoryStore) ListAgeGroups(_ context.Context) ([]model.AgeGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AgeGroup, 0, len(s.ageGroups))
	for _, g := range s.ageGroups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinAge != out[j].MinAge {
			return out[i].MinAge < out[j].MinAge
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
