// Package scoring holds the pure attendance-scoring rules: how one
// participant's punches on one scheduled event turn into a score.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// Notes recorded on score rows for the no-punch outcomes.
const (
	NoteNoCheckIn = "No check-in"
	NoteLate      = "Late check-in outside window"
)

// Outcome is the result of evaluating one (participant, event) pair.
type Outcome struct {
	Score       int
	Matched     *model.CheckIn // nil when nothing was matched
	IsLate      bool
	IsDuplicate bool
	Notes       string
}

// Evaluate applies the scoring policy to the punches collected for one
// scheduled event. valid holds punches inside the tolerance window, late
// holds punches on the same calendar day but outside it. The decision is
// deterministic: among multiple valid punches the one closest to expected
// wins, with ties going to the earliest punch.
func Evaluate(expected time.Time, valid, late []model.CheckIn) Outcome {
	if len(valid) == 0 {
		if len(late) == 0 {
			return Outcome{Score: 0, Notes: NoteNoCheckIn}
		}
		earliest := earliestOf(late)
		return Outcome{
			Score:   0,
			Matched: &earliest,
			IsLate:  true,
			Notes:   NoteLate,
		}
	}

	closest := closestTo(expected, valid)
	offset := minutesFrom(expected, closest.Timestamp)

	if len(valid) == 1 {
		return Outcome{
			Score:   1,
			Matched: &closest,
			Notes:   fmt.Sprintf("On time (±%.0f min)", offset),
		}
	}

	return Outcome{
		Score:       1,
		Matched:     &closest,
		IsDuplicate: true,
		Notes:       fmt.Sprintf("Multiple check-ins, using closest (±%.0f min from expected)", offset),
	}
}

// closestTo picks the punch with minimum absolute distance from expected.
// The input is sorted stably, so equally distant punches resolve to the
// earliest one in the given order.
func closestTo(expected time.Time, punches []model.CheckIn) model.CheckIn {
	sorted := make([]model.CheckIn, len(punches))
	copy(sorted, punches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absDistance(expected, sorted[i].Timestamp) < absDistance(expected, sorted[j].Timestamp)
	})
	return sorted[0]
}

func earliestOf(punches []model.CheckIn) model.CheckIn {
	earliest := punches[0]
	for _, p := range punches[1:] {
		if p.Timestamp.Before(earliest.Timestamp) {
			earliest = p
		}
	}
	return earliest
}

func absDistance(expected, actual time.Time) time.Duration {
	d := actual.Sub(expected)
	if d < 0 {
		return -d
	}
	return d
}

func minutesFrom(expected, actual time.Time) float64 {
	return math.Abs(actual.Sub(expected).Minutes())
}
