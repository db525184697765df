// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// ScheduledEvent is one instance of a recurring activity with an expected
// time and a tolerance window around it.
type ScheduledEvent struct {
	ID               int64
	Date             Date
	ExpectedTime     TimeOfDay
	ToleranceMinutes int // ± minutes around ExpectedTime; never negative
	Description      string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Window returns the tolerance window and the expected instant of the event
// in the given location.
func (e ScheduledEvent) Window(loc *time.Location) (start, expected, end time.Time) {
	expected = e.Date.At(e.ExpectedTime, loc)
	tol := time.Duration(e.ToleranceMinutes) * time.Minute
	return expected.Add(-tol), expected, expected.Add(tol)
}

// CheckIn is a raw timestamped punch from a biometric device. Records are
// written once by ingestion; only Processed is mutated afterwards.
type CheckIn struct {
	ID             int64
	ParticipantRef string // raw device identifier, matched against code or numeric id
	ParticipantID  int64  // resolved internal id; 0 when unmatched
	Timestamp      time.Time
	DeviceID       string
	Processed      bool
	CreatedAt      time.Time
}

// PunchRecord is a raw device submission before participant resolution.
// RecordID is the device-side transaction identifier and doubles as the
// ingest idempotency key.
type PunchRecord struct {
	RecordID       string
	ParticipantRef string
	Timestamp      time.Time
	DeviceID       string
}

// ParticipantScore is the outcome of matching one participant against one
// scheduled event. At most one row exists per (participant, event) pair.
type ParticipantScore struct {
	ID               int64
	ParticipantID    int64
	ScheduledEventID int64
	Score            int   // 0 or 1
	MatchedCheckInID int64 // 0 when no punch was matched
	MatchedAt        *time.Time
	IsLate           bool
	IsDuplicate      bool
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Round is a fixed-length competition period. A round moves from active to
// completed exactly once, when its winners are committed.
type Round struct {
	ID                   int64
	Name                 string
	StartDate            Date
	EndDate              Date // inclusive
	DurationDays         int
	EventsPerDay         int
	EligibilityThreshold int
	Active               bool
	Completed            bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Contains reports whether d falls inside the round's inclusive date span.
func (r Round) Contains(d Date) bool {
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}

// NominalMax is the highest total a participant could score in the round.
func (r Round) NominalMax() int {
	return r.DurationDays * r.EventsPerDay
}

// Winner is one ranked participant of a completed round. At most one row
// exists per (round, participant) pair; ranks are dense and 1-based per
// age group.
type Winner struct {
	ID             int64
	RoundID        int64
	ParticipantID  int64
	AgeGroupID     int64
	FinalScore     int
	RankInAgeGroup int
	Rewarded       bool
	RewardedAt     *time.Time
	CreatedAt      time.Time
}

// Participant is external reference data consumed, not owned, by this
// service. Code is the externally visible identifier used for device
// matching and winner tie-breaking.
type Participant struct {
	ID         int64
	Code       string
	FullName   string
	Age        int
	AgeGroupID int64
	Active     bool
}

// AgeGroup is an inclusive age range participants compete within.
type AgeGroup struct {
	ID     int64
	Name   string
	MinAge int
	MaxAge int
}

// Includes reports whether the given age falls in the group's range.
func (g AgeGroup) Includes(age int) bool {
	return age >= g.MinAge && age <= g.MaxAge
}

// Date is a calendar day without a time component or location. Check-in
// timestamps are instants; schedule entries and round boundaries are dates,
// and keeping them as dates avoids midnight/timezone drift in comparisons.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates an instant to its calendar day in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in ISO "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// At returns the instant at the given time of day on this date in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Add(time.Duration(tod))
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n))
}

func (d Date) ord() int { return d.Year*10000 + int(d.Month)*100 + d.Day }

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.ord() < o.ord() }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.ord() > o.ord() }

// Equal reports whether d and o name the same calendar day.
func (d Date) Equal(o Date) bool { return d.ord() == o.ord() }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay is a clock time expressed as an offset from midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay parses a 24-hour "15:04" clock time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
