package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// BunStore implements Store on Postgres via bun.
type BunStore struct {
	db  *bun.DB
	loc *time.Location
}

// NewBunStore connects to Postgres and verifies the connection. Calendar-day
// grouping of punches uses loc.
func NewBunStore(ctx context.Context, dsn string, loc *time.Location) (*BunStore, error) {
	if loc == nil {
		loc = time.Local
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &BunStore{db: bun.NewDB(sqldb, pgdialect.New()), loc: loc}, nil
}

// Close releases the connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables and the uniqueness constraints the
// scoring and winner batches rely on under concurrency.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	rowTypes := []any{
		(*ageGroupRow)(nil),
		(*participantRow)(nil),
		(*scheduledEventRow)(nil),
		(*checkInRow)(nil),
		(*participantScoreRow)(nil),
		// Overlapping active rounds are permitted; an exclusion
		// constraint on (start_date, end_date) would be the place to
		// forbid them.
		(*roundRow)(nil),
		(*winnerRow)(nil),
	}
	for _, rt := range rowTypes {
		if _, err := s.db.NewCreateTable().Model(rt).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", rt, err)
		}
	}

	indexes := []struct {
		name    string
		rowType any
		columns []string
	}{
		{"uq_participant_scores_pair", (*participantScoreRow)(nil), []string{"participant_id", "scheduled_event_id"}},
		{"uq_winners_pair", (*winnerRow)(nil), []string{"round_id", "participant_id"}},
	}
	for _, idx := range indexes {
		if _, err := s.db.NewCreateIndex().
			Model(idx.rowType).
			Index(idx.name).
			Unique().
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func translateErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// CreateEvent persists a new scheduled event and assigns its ID.
func (s *BunStore) CreateEvent(ctx context.Context, e *model.ScheduledEvent) error {
	row := eventRowFrom(*e)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return translateErr(err, "insert event")
	}
	e.ID = row.ID
	return nil
}

// GetEvent returns one event.
func (s *BunStore) GetEvent(ctx context.Context, id int64) (model.ScheduledEvent, error) {
	var row scheduledEventRow
	err := s.db.NewSelect().Model(&row).Where("se.id = ?", id).Scan(ctx)
	if err != nil {
		return model.ScheduledEvent{}, translateErr(err, fmt.Sprintf("event %d", id))
	}
	return row.toModel(), nil
}

// UpdateEvent overwrites an existing event.
func (s *BunStore) UpdateEvent(ctx context.Context, e model.ScheduledEvent) error {
	row := eventRowFrom(e)
	res, err := s.db.NewUpdate().
		Model(&row).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translateErr(err, "update event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// ListActiveEvents returns active events ordered by date then expected time.
func (s *BunStore) ListActiveEvents(ctx context.Context, from, to *model.Date) ([]model.ScheduledEvent, error) {
	var rows []scheduledEventRow
	q := s.db.NewSelect().Model(&rows).Where("se.active")
	if from != nil {
		q = q.Where("se.date >= ?", dateColumn(*from))
	}
	if to != nil {
		q = q.Where("se.date <= ?", dateColumn(*to))
	}
	if err := q.Order("date ASC", "expected_minutes ASC", "id ASC").Scan(ctx); err != nil {
		return nil, translateErr(err, "list events")
	}
	out := make([]model.ScheduledEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// InsertCheckIn persists a punch and assigns its ID.
func (s *BunStore) InsertCheckIn(ctx context.Context, c *model.CheckIn) error {
	row := checkInRow{
		ParticipantRef: c.ParticipantRef,
		ParticipantID:  c.ParticipantID,
		Timestamp:      c.Timestamp,
		DeviceID:       c.DeviceID,
		Processed:      c.Processed,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("id, created_at").Exec(ctx); err != nil {
		return translateErr(err, "insert check-in")
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	return nil
}

// CheckInsBetween returns a participant's punches in [from, to) matched by
// internal ID or external code, ordered by timestamp.
func (s *BunStore) CheckInsBetween(ctx context.Context, p model.Participant, from, to time.Time) ([]model.CheckIn, error) {
	var rows []checkInRow
	err := s.db.NewSelect().Model(&rows).
		Where("(ci.participant_id = ? OR ci.participant_ref = ?)", p.ID, p.Code).
		Where("ci.ts >= ? AND ci.ts < ?", from, to).
		Order("ts ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateErr(err, "list check-ins")
	}
	out := make([]model.CheckIn, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UnprocessedDates returns distinct calendar days holding unprocessed punches.
func (s *BunStore) UnprocessedDates(ctx context.Context) ([]model.Date, error) {
	var days []time.Time
	err := s.db.NewSelect().
		Model((*checkInRow)(nil)).
		ColumnExpr("DISTINCT (ci.ts AT TIME ZONE ?)::date", s.loc.String()).
		Where("NOT ci.processed").
		Scan(ctx, &days)
	if err != nil {
		return nil, translateErr(err, "list unprocessed dates")
	}
	out := make([]model.Date, len(days))
	for i, d := range days {
		out[i] = model.DateOf(d.UTC())
	}
	return out, nil
}

// MarkProcessedThrough flags unprocessed punches created up to cutoff.
func (s *BunStore) MarkProcessedThrough(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*checkInRow)(nil)).
		Set("processed = TRUE").
		Where("NOT processed").
		Where("created_at <= ?", cutoff).
		Exec(ctx)
	return translateErr(err, "mark check-ins processed")
}

// UpsertScore creates or overwrites the (participant, event) score row.
func (s *BunStore) UpsertScore(ctx context.Context, sc *model.ParticipantScore) error {
	row := scoreRowFrom(*sc)
	row.ID = 0
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (participant_id, scheduled_event_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("matched_check_in_id = EXCLUDED.matched_check_in_id").
		Set("matched_at = EXCLUDED.matched_at").
		Set("is_late = EXCLUDED.is_late").
		Set("is_duplicate = EXCLUDED.is_duplicate").
		Set("notes = EXCLUDED.notes").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return translateErr(err, "upsert score")
	}
	sc.ID = row.ID
	return nil
}

// DeleteScoresForEvent removes every score row referencing the event.
func (s *BunStore) DeleteScoresForEvent(ctx context.Context, eventID int64) error {
	_, err := s.db.NewDelete().
		Model((*participantScoreRow)(nil)).
		Where("scheduled_event_id = ?", eventID).
		Exec(ctx)
	return translateErr(err, "delete event scores")
}

// ScoresFor returns a participant's scores ordered by event date.
func (s *BunStore) ScoresFor(ctx context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error) {
	var rows []participantScoreRow
	q := s.db.NewSelect().Model(&rows).
		Join("JOIN scheduled_events AS se ON se.id = ps.scheduled_event_id").
		Where("ps.participant_id = ?", participantID)
	if from != nil {
		q = q.Where("se.date >= ?", dateColumn(*from))
	}
	if to != nil {
		q = q.Where("se.date <= ?", dateColumn(*to))
	}
	if err := q.OrderExpr("se.date ASC, se.expected_minutes ASC, ps.id ASC").Scan(ctx); err != nil {
		return nil, translateErr(err, "list scores")
	}
	out := make([]model.ParticipantScore, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// TotalScore sums a participant's score values over the range.
func (s *BunStore) TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error) {
	q := s.db.NewSelect().
		Model((*participantScoreRow)(nil)).
		ColumnExpr("COALESCE(SUM(ps.score), 0)").
		Join("JOIN scheduled_events AS se ON se.id = ps.scheduled_event_id").
		Where("ps.participant_id = ?", participantID)
	if from != nil {
		q = q.Where("se.date >= ?", dateColumn(*from))
	}
	if to != nil {
		q = q.Where("se.date <= ?", dateColumn(*to))
	}
	var total int
	if err := q.Scan(ctx, &total); err != nil {
		return 0, translateErr(err, "sum scores")
	}
	return total, nil
}

// SumScoresByParticipant sums score values per participant over active
// events in the inclusive date range.
func (s *BunStore) SumScoresByParticipant(ctx context.Context, from, to model.Date) (map[int64]int, error) {
	var rows []struct {
		ParticipantID int64 `bun:"participant_id"`
		Total         int   `bun:"total"`
	}
	err := s.db.NewSelect().
		Model((*participantScoreRow)(nil)).
		ColumnExpr("ps.participant_id").
		ColumnExpr("SUM(ps.score) AS total").
		Join("JOIN scheduled_events AS se ON se.id = ps.scheduled_event_id").
		Where("se.active").
		Where("se.date >= ? AND se.date <= ?", dateColumn(from), dateColumn(to)).
		GroupExpr("ps.participant_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, translateErr(err, "sum scores by participant")
	}
	totals := make(map[int64]int, len(rows))
	for _, r := range rows {
		totals[r.ParticipantID] = r.Total
	}
	return totals, nil
}

// CreateRound persists a new round and assigns its ID.
func (s *BunStore) CreateRound(ctx context.Context, r *model.Round) error {
	row := roundRowFrom(*r)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return translateErr(err, "insert round")
	}
	r.ID = row.ID
	return nil
}

// GetRound returns one round.
func (s *BunStore) GetRound(ctx context.Context, id int64) (model.Round, error) {
	var row roundRow
	if err := s.db.NewSelect().Model(&row).Where("r.id = ?", id).Scan(ctx); err != nil {
		return model.Round{}, translateErr(err, fmt.Sprintf("round %d", id))
	}
	return row.toModel(), nil
}

// CurrentRound returns the earliest-starting active round containing today.
func (s *BunStore) CurrentRound(ctx context.Context, today model.Date) (model.Round, error) {
	var row roundRow
	err := s.db.NewSelect().Model(&row).
		Where("r.active").
		Where("r.start_date <= ?", dateColumn(today)).
		Where("r.end_date >= ?", dateColumn(today)).
		Order("start_date ASC", "id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return model.Round{}, translateErr(err, "current round")
	}
	return row.toModel(), nil
}

// LatestRound returns the round with the latest end date.
func (s *BunStore) LatestRound(ctx context.Context) (model.Round, error) {
	var row roundRow
	err := s.db.NewSelect().Model(&row).
		Order("end_date DESC", "id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return model.Round{}, translateErr(err, "latest round")
	}
	return row.toModel(), nil
}

// ExpiredRounds returns active, not-completed rounds ending before today.
func (s *BunStore) ExpiredRounds(ctx context.Context, today model.Date) ([]model.Round, error) {
	var rows []roundRow
	err := s.db.NewSelect().Model(&rows).
		Where("r.active").
		Where("NOT r.completed").
		Where("r.end_date < ?", dateColumn(today)).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translateErr(err, "list expired rounds")
	}
	out := make([]model.Round, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CompleteRound marks the round completed.
func (s *BunStore) CompleteRound(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*roundRow)(nil)).
		Set("completed = TRUE").
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translateErr(err, "complete round")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("round %d: %w", id, ErrNotFound)
	}
	return nil
}

// InsertWinners persists winner rows in one batch.
func (s *BunStore) InsertWinners(ctx context.Context, winners []model.Winner) error {
	if len(winners) == 0 {
		return nil
	}
	rows := make([]winnerRow, len(winners))
	for i, w := range winners {
		rows[i] = winnerRowFrom(w)
		rows[i].ID = 0
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return translateErr(err, "insert winners")
	}
	return nil
}

// Winners returns a round's winners ordered by age group then rank.
func (s *BunStore) Winners(ctx context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error) {
	var rows []winnerRow
	q := s.db.NewSelect().Model(&rows).Where("w.round_id = ?", roundID)
	if ageGroupID != nil {
		q = q.Where("w.age_group_id = ?", *ageGroupID)
	}
	if err := q.Order("age_group_id ASC", "rank_in_age_group ASC").Scan(ctx); err != nil {
		return nil, translateErr(err, "list winners")
	}
	out := make([]model.Winner, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreateAgeGroup persists a new age group and assigns its ID.
func (s *BunStore) CreateAgeGroup(ctx context.Context, g *model.AgeGroup) error {
	row := ageGroupRow{Name: g.Name, MinAge: g.MinAge, MaxAge: g.MaxAge}
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return translateErr(err, "insert age group")
	}
	g.ID = row.ID
	return nil
}

// CreateParticipant persists a new participant and assigns its ID.
func (s *BunStore) CreateParticipant(ctx context.Context, p *model.Participant) error {
	row := participantRow{
		Code:       p.Code,
		FullName:   p.FullName,
		Age:        p.Age,
		AgeGroupID: p.AgeGroupID,
		Active:     p.Active,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return translateErr(err, "insert participant")
	}
	p.ID = row.ID
	return nil
}

// GetParticipant returns one participant.
func (s *BunStore) GetParticipant(ctx context.Context, id int64) (model.Participant, error) {
	var row participantRow
	if err := s.db.NewSelect().Model(&row).Where("p.id = ?", id).Scan(ctx); err != nil {
		return model.Participant{}, translateErr(err, fmt.Sprintf("participant %d", id))
	}
	return row.toModel(), nil
}

// ListParticipants returns every participant ordered by ID.
func (s *BunStore) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, translateErr(err, "list participants")
	}
	out := make([]model.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// ListAgeGroups returns every age group ordered by minimum age.
func (s *BunStore) ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error) {
	var rows []ageGroupRow
	if err := s.db.NewSelect().Model(&rows).Order("min_age ASC", "id ASC").Scan(ctx); err != nil {
		return nil, translateErr(err, "list age groups")
	}
	out := make([]model.AgeGroup, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

var _ Store = (*BunStore)(nil)
