package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// Row types keep bun tags out of the domain package. Calendar dates are
// stored as date columns at UTC midnight; expected times as minutes past
// midnight.

type scheduledEventRow struct {
	bun.BaseModel `bun:"table:scheduled_events,alias:se"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Date             time.Time `bun:"date,notnull"`
	ExpectedMinutes  int       `bun:"expected_minutes,notnull"`
	ToleranceMinutes int       `bun:"tolerance_minutes,notnull"`
	Description      string    `bun:"description,nullzero"`
	Active           bool      `bun:"active,notnull,default:true"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero"`
}

func (r scheduledEventRow) toModel() model.ScheduledEvent {
	return model.ScheduledEvent{
		ID:               r.ID,
		Date:             model.DateOf(r.Date.UTC()),
		ExpectedTime:     model.TimeOfDay(time.Duration(r.ExpectedMinutes) * time.Minute),
		ToleranceMinutes: r.ToleranceMinutes,
		Description:      r.Description,
		Active:           r.Active,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func eventRowFrom(e model.ScheduledEvent) scheduledEventRow {
	return scheduledEventRow{
		ID:               e.ID,
		Date:             dateColumn(e.Date),
		ExpectedMinutes:  int(time.Duration(e.ExpectedTime) / time.Minute),
		ToleranceMinutes: e.ToleranceMinutes,
		Description:      e.Description,
		Active:           e.Active,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

type checkInRow struct {
	bun.BaseModel `bun:"table:check_ins,alias:ci"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ParticipantRef string    `bun:"participant_ref,notnull"`
	ParticipantID  int64     `bun:"participant_id,nullzero"`
	Timestamp      time.Time `bun:"ts,notnull"`
	DeviceID       string    `bun:"device_id,nullzero"`
	Processed      bool      `bun:"processed,notnull,default:false"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r checkInRow) toModel() model.CheckIn {
	return model.CheckIn{
		ID:             r.ID,
		ParticipantRef: r.ParticipantRef,
		ParticipantID:  r.ParticipantID,
		Timestamp:      r.Timestamp,
		DeviceID:       r.DeviceID,
		Processed:      r.Processed,
		CreatedAt:      r.CreatedAt,
	}
}

type participantScoreRow struct {
	bun.BaseModel `bun:"table:participant_scores,alias:ps"`

	ID               int64      `bun:"id,pk,autoincrement"`
	ParticipantID    int64      `bun:"participant_id,notnull"`
	ScheduledEventID int64      `bun:"scheduled_event_id,notnull"`
	Score            int        `bun:"score,notnull"`
	MatchedCheckInID int64      `bun:"matched_check_in_id,nullzero"`
	MatchedAt        *time.Time `bun:"matched_at,nullzero"`
	IsLate           bool       `bun:"is_late,notnull,default:false"`
	IsDuplicate      bool       `bun:"is_duplicate,notnull,default:false"`
	Notes            string     `bun:"notes,nullzero"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero"`
}

func (r participantScoreRow) toModel() model.ParticipantScore {
	return model.ParticipantScore{
		ID:               r.ID,
		ParticipantID:    r.ParticipantID,
		ScheduledEventID: r.ScheduledEventID,
		Score:            r.Score,
		MatchedCheckInID: r.MatchedCheckInID,
		MatchedAt:        r.MatchedAt,
		IsLate:           r.IsLate,
		IsDuplicate:      r.IsDuplicate,
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func scoreRowFrom(s model.ParticipantScore) participantScoreRow {
	return participantScoreRow{
		ID:               s.ID,
		ParticipantID:    s.ParticipantID,
		ScheduledEventID: s.ScheduledEventID,
		Score:            s.Score,
		MatchedCheckInID: s.MatchedCheckInID,
		MatchedAt:        s.MatchedAt,
		IsLate:           s.IsLate,
		IsDuplicate:      s.IsDuplicate,
		Notes:            s.Notes,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

type roundRow struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID                   int64     `bun:"id,pk,autoincrement"`
	Name                 string    `bun:"name,notnull"`
	StartDate            time.Time `bun:"start_date,notnull"`
	EndDate              time.Time `bun:"end_date,notnull"`
	DurationDays         int       `bun:"duration_days,notnull"`
	EventsPerDay         int       `bun:"events_per_day,notnull"`
	EligibilityThreshold int       `bun:"eligibility_threshold,notnull"`
	Active               bool      `bun:"active,notnull,default:true"`
	Completed            bool      `bun:"completed,notnull,default:false"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero"`
}

func (r roundRow) toModel() model.Round {
	return model.Round{
		ID:                   r.ID,
		Name:                 r.Name,
		StartDate:            model.DateOf(r.StartDate.UTC()),
		EndDate:              model.DateOf(r.EndDate.UTC()),
		DurationDays:         r.DurationDays,
		EventsPerDay:         r.EventsPerDay,
		EligibilityThreshold: r.EligibilityThreshold,
		Active:               r.Active,
		Completed:            r.Completed,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func roundRowFrom(r model.Round) roundRow {
	return roundRow{
		ID:                   r.ID,
		Name:                 r.Name,
		StartDate:            dateColumn(r.StartDate),
		EndDate:              dateColumn(r.EndDate),
		DurationDays:         r.DurationDays,
		EventsPerDay:         r.EventsPerDay,
		EligibilityThreshold: r.EligibilityThreshold,
		Active:               r.Active,
		Completed:            r.Completed,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type winnerRow struct {
	bun.BaseModel `bun:"table:winners,alias:w"`

	ID             int64      `bun:"id,pk,autoincrement"`
	RoundID        int64      `bun:"round_id,notnull"`
	ParticipantID  int64      `bun:"participant_id,notnull"`
	AgeGroupID     int64      `bun:"age_group_id,notnull"`
	FinalScore     int        `bun:"final_score,notnull"`
	RankInAgeGroup int        `bun:"rank_in_age_group,notnull"`
	Rewarded       bool       `bun:"rewarded,notnull,default:false"`
	RewardedAt     *time.Time `bun:"rewarded_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r winnerRow) toModel() model.Winner {
	return model.Winner{
		ID:             r.ID,
		RoundID:        r.RoundID,
		ParticipantID:  r.ParticipantID,
		AgeGroupID:     r.AgeGroupID,
		FinalScore:     r.FinalScore,
		RankInAgeGroup: r.RankInAgeGroup,
		Rewarded:       r.Rewarded,
		RewardedAt:     r.RewardedAt,
		CreatedAt:      r.CreatedAt,
	}
}

func winnerRowFrom(w model.Winner) winnerRow {
	return winnerRow{
		ID:             w.ID,
		RoundID:        w.RoundID,
		ParticipantID:  w.ParticipantID,
		AgeGroupID:     w.AgeGroupID,
		FinalScore:     w.FinalScore,
		RankInAgeGroup: w.RankInAgeGroup,
		Rewarded:       w.Rewarded,
		RewardedAt:     w.RewardedAt,
		CreatedAt:      w.CreatedAt,
	}
}

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID         int64  `bun:"id,pk,autoincrement"`
	Code       string `bun:"code,notnull,unique"`
	FullName   string `bun:"full_name,nullzero"`
	Age        int    `bun:"age,notnull"`
	AgeGroupID int64  `bun:"age_group_id,notnull"`
	Active     bool   `bun:"active,notnull,default:true"`
}

func (r participantRow) toModel() model.Participant {
	return model.Participant{
		ID:         r.ID,
		Code:       r.Code,
		FullName:   r.FullName,
		Age:        r.Age,
		AgeGroupID: r.AgeGroupID,
		Active:     r.Active,
	}
}

type ageGroupRow struct {
	bun.BaseModel `bun:"table:age_groups,alias:ag"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name,notnull"`
	MinAge int    `bun:"min_age,notnull"`
	MaxAge int    `bun:"max_age,notnull"`
}

func (r ageGroupRow) toModel() model.AgeGroup {
	return model.AgeGroup{ID: r.ID, Name: r.Name, MinAge: r.MinAge, MaxAge: r.MaxAge}
}

// dateColumn normalizes a calendar date onto the UTC midnight instant bun
// writes into a date column.
func dateColumn(d model.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}
