// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// ScoreDependencies defines the interface for scoring operations.
type ScoreDependencies interface {
	ProcessScores(ctx context.Context, from, to *model.Date) error
	RecalculateForWindowChange(ctx context.Context, eventID int64) error
	ScoresFor(ctx context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error)
	TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error)
}

// ScoresHandler handles scoring runs and score queries.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// scoreResponse is the wire shape of one score row.
type scoreResponse struct {
	ParticipantID    int64  `json:"participant_id"`
	ScheduledEventID int64  `json:"scheduled_event_id"`
	Score            int    `json:"score"`
	MatchedAt        string `json:"matched_at,omitempty"`
	IsLate           bool   `json:"is_late"`
	IsDuplicate      bool   `json:"is_duplicate"`
	Notes            string `json:"notes"`
}

// HandleRun handles POST /scoring/run?from=YYYY-MM-DD&to=YYYY-MM-DD. Both
// range bounds are optional.
func (h *ScoresHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoring_run"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.ProcessScores(r.Context(), from, to); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// HandleRescore handles POST /scoring/rescore?event=ID, used after an
// event's tolerance window was adjusted.
func (h *ScoresHandler) HandleRescore(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoring_rescore"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	eventID, err := strconv.ParseInt(r.URL.Query().Get("event"), 10, 64)
	if err != nil || eventID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.RecalculateForWindowChange(r.Context(), eventID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// HandleGetScores handles GET /scores?participant=ID&from=&to= requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	participantID, err := strconv.ParseInt(r.URL.Query().Get("participant"), 10, 64)
	if err != nil || participantID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rows, err := h.deps.ScoresFor(r.Context(), participantID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]scoreResponse, 0, len(rows))
	for _, s := range rows {
		resp := scoreResponse{
			ParticipantID:    s.ParticipantID,
			ScheduledEventID: s.ScheduledEventID,
			Score:            s.Score,
			IsLate:           s.IsLate,
			IsDuplicate:      s.IsDuplicate,
			Notes:            s.Notes,
		}
		if s.MatchedAt != nil {
			resp.MatchedAt = s.MatchedAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetTotal handles GET /scores/total?participant=ID&from=&to= requests.
func (h *ScoresHandler) HandleGetTotal(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_total"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	participantID, err := strconv.ParseInt(r.URL.Query().Get("participant"), 10, 64)
	if err != nil || participantID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	total, err := h.deps.TotalScore(r.Context(), participantID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participant_id": participantID, "total": total})
}

// dateRange parses the optional from/to query parameters.
func dateRange(r *http.Request) (from, to *model.Date, err error) {
	if s := r.URL.Query().Get("from"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	return from, to, nil
}
