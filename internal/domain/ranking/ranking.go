// Package ranking holds the pure round-adjudication rules: eligibility
// thresholds and per-age-group winner ordering.
package ranking

import (
	"math"
	"sort"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// Threshold derives the minimum round total required for winner eligibility.
// The nominal maximum is durationDays * eventsPerDay; ratio is the fraction
// of it a participant must reach (0.975 of a 40-day, 5-event round is 195).
func Threshold(durationDays, eventsPerDay int, ratio float64) int {
	max := float64(durationDays * eventsPerDay)
	return int(math.Ceil(max * ratio))
}

// Standing pairs a participant with their summed score over a round.
type Standing struct {
	Participant model.Participant
	Total       int
}

// RankAgeGroup selects the standings belonging to group that meet threshold
// and turns them into winner rows with dense 1-based ranks. Ordering is
// total descending, ties broken by ascending participant code so results
// are stable across runs.
func RankAgeGroup(group model.AgeGroup, standings []Standing, threshold int) []model.Winner {
	eligible := make([]Standing, 0, len(standings))
	for _, s := range standings {
		if s.Participant.AgeGroupID == group.ID && s.Total >= threshold {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Total != eligible[j].Total {
			return eligible[i].Total > eligible[j].Total
		}
		return eligible[i].Participant.Code < eligible[j].Participant.Code
	})

	winners := make([]model.Winner, len(eligible))
	for i, s := range eligible {
		winners[i] = model.Winner{
			ParticipantID:  s.Participant.ID,
			AgeGroupID:     group.ID,
			FinalScore:     s.Total,
			RankInAgeGroup: i + 1,
		}
	}
	return winners
}
