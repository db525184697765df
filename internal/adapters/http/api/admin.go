// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// AdminHandler manages reference data: age groups, participants and the
// event schedule. These writes go straight to the store; they carry no
// scoring logic.
type AdminHandler struct {
	store repository.Store
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store repository.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

type ageGroupRequest struct {
	Name   string `json:"name"`
	MinAge int    `json:"min_age"`
	MaxAge int    `json:"max_age"`
}

type participantRequest struct {
	Code       string `json:"code"`
	FullName   string `json:"full_name"`
	Age        int    `json:"age"`
	AgeGroupID int64  `json:"age_group_id"`
}

type eventRequest struct {
	Date             string `json:"date"`
	ExpectedTime     string `json:"expected_time"`
	ToleranceMinutes int    `json:"tolerance_minutes"`
	Description      string `json:"description"`
}

type toleranceRequest struct {
	EventID          int64 `json:"event_id"`
	ToleranceMinutes int   `json:"tolerance_minutes"`
}

// HandlePostAgeGroup handles POST /admin/age-groups requests.
func (h *AdminHandler) HandlePostAgeGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_age_group"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ageGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.MinAge < 0 || req.MaxAge < req.MinAge {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	g := model.AgeGroup{Name: req.Name, MinAge: req.MinAge, MaxAge: req.MaxAge}
	if err := h.store.CreateAgeGroup(r.Context(), &g); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": g.ID})
}

// HandlePostParticipant handles POST /admin/participants requests.
func (h *AdminHandler) HandlePostParticipant(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_participant"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p := model.Participant{
		Code:       strings.TrimSpace(req.Code),
		FullName:   req.FullName,
		Age:        req.Age,
		AgeGroupID: req.AgeGroupID,
		Active:     true,
	}
	err := h.store.CreateParticipant(r.Context(), &p)
	if errors.Is(err, repository.ErrDuplicate) {
		writeError(w, http.StatusConflict, "duplicate", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": p.ID})
}

// HandlePostEvents handles POST /admin/events requests. The body is a
// JSON array so a whole day or month of schedule entries lands in one
// call.
func (h *AdminHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var reqs []eventRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	events := make([]model.ScheduledEvent, 0, len(reqs))
	for _, req := range reqs {
		date, err := model.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		tod, err := model.ParseTimeOfDay(req.ExpectedTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if req.ToleranceMinutes < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		events = append(events, model.ScheduledEvent{
			Date:             date,
			ExpectedTime:     tod,
			ToleranceMinutes: req.ToleranceMinutes,
			Description:      req.Description,
			Active:           true,
		})
	}

	ids := make([]int64, 0, len(events))
	for i := range events {
		if err := h.store.CreateEvent(r.Context(), &events[i]); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		ids = append(ids, events[i].ID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

// HandlePostTolerance handles POST /admin/events/tolerance requests. It
// adjusts one event's tolerance window; callers follow up with a rescore
// of that event.
func (h *AdminHandler) HandlePostTolerance(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_tolerance"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req toleranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.EventID < 1 || req.ToleranceMinutes < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	e, err := h.store.GetEvent(r.Context(), req.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	e.ToleranceMinutes = req.ToleranceMinutes
	if err := h.store.UpdateEvent(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
