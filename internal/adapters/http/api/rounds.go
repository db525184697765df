// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/internal/domain/ranking"
)

// RoundDependencies defines the interface for round operations.
type RoundDependencies interface {
	CreateRound(ctx context.Context, name string, start model.Date, durationDays int) (model.Round, error)
	ProcessWinners(ctx context.Context, roundID int64) error
	CurrentRound(ctx context.Context) (model.Round, error)
	RoundWinners(ctx context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error)
	EligibleParticipants(ctx context.Context, roundID int64) ([]ranking.Standing, error)
}

// RoundsHandler handles round lifecycle and winner queries.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

type roundRequest struct {
	Name         string `json:"name"`
	StartDate    string `json:"start_date"`
	DurationDays int    `json:"duration_days"`
}

type roundResponse struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	DurationDays         int    `json:"duration_days"`
	EventsPerDay         int    `json:"events_per_day"`
	EligibilityThreshold int    `json:"eligibility_threshold"`
	Active               bool   `json:"active"`
	Completed            bool   `json:"completed"`
}

func toRoundResponse(r model.Round) roundResponse {
	return roundResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		StartDate:            r.StartDate.String(),
		EndDate:              r.EndDate.String(),
		DurationDays:         r.DurationDays,
		EventsPerDay:         r.EventsPerDay,
		EligibilityThreshold: r.EligibilityThreshold,
		Active:               r.Active,
		Completed:            r.Completed,
	}
}

type winnerResponse struct {
	ParticipantID  int64 `json:"participant_id"`
	AgeGroupID     int64 `json:"age_group_id"`
	FinalScore     int   `json:"final_score"`
	RankInAgeGroup int   `json:"rank_in_age_group"`
}

type standingResponse struct {
	ParticipantID int64  `json:"participant_id"`
	Code          string `json:"code"`
	FullName      string `json:"full_name"`
	AgeGroupID    int64  `json:"age_group_id"`
	Total         int    `json:"total"`
}

// HandlePostRound handles POST /rounds requests.
func (h *RoundsHandler) HandlePostRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req roundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	round, err := h.deps.CreateRound(r.Context(), req.Name, start, req.DurationDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toRoundResponse(round))
}

// HandleGetCurrent handles GET /rounds/current requests.
func (h *RoundsHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_current_round"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	round, err := h.deps.CurrentRound(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleComplete handles POST /rounds/complete?round=ID requests.
func (h *RoundsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	roundID, err := strconv.ParseInt(r.URL.Query().Get("round"), 10, 64)
	if err != nil || roundID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.ProcessWinners(r.Context(), roundID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// HandleGetWinners handles GET /rounds/winners?round=ID&age_group=ID requests.
func (h *RoundsHandler) HandleGetWinners(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_winners"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	roundID, err := strconv.ParseInt(r.URL.Query().Get("round"), 10, 64)
	if err != nil || roundID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var ageGroupID *int64
	if s := r.URL.Query().Get("age_group"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		ageGroupID = &id
	}
	winners, err := h.deps.RoundWinners(r.Context(), roundID, ageGroupID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]winnerResponse, 0, len(winners))
	for _, win := range winners {
		out = append(out, winnerResponse{
			ParticipantID:  win.ParticipantID,
			AgeGroupID:     win.AgeGroupID,
			FinalScore:     win.FinalScore,
			RankInAgeGroup: win.RankInAgeGroup,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetEligible handles GET /rounds/eligible?round=ID requests.
func (h *RoundsHandler) HandleGetEligible(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_eligible"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	roundID, err := strconv.ParseInt(r.URL.Query().Get("round"), 10, 64)
	if err != nil || roundID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	standings, err := h.deps.EligibleParticipants(r.Context(), roundID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]standingResponse, 0, len(standings))
	for _, st := range standings {
		out = append(out, standingResponse{
			ParticipantID: st.Participant.ID,
			Code:          st.Participant.Code,
			FullName:      st.Participant.FullName,
			AgeGroupID:    st.Participant.AgeGroupID,
			Total:         st.Total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
