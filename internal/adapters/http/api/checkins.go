// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/mihrab-labs/salahstreak/internal/app"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// CheckInDependencies defines the interface for punch ingestion.
type CheckInDependencies interface {
	IngestCheckIn(ctx context.Context, rec model.PunchRecord) (duplicate bool, err error)
}

// CheckInsHandler handles punch submissions from device collaborators.
type CheckInsHandler struct {
	deps CheckInDependencies
}

// NewCheckInsHandler creates a new check-in handler.
func NewCheckInsHandler(deps CheckInDependencies) *CheckInsHandler {
	return &CheckInsHandler{deps: deps}
}

// HandlePostCheckIn handles POST /checkins requests.
func (h *CheckInsHandler) HandlePostCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_checkin"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ts, _ := time.Parse(time.RFC3339, req.TS)
	dup, err := h.deps.IngestCheckIn(r.Context(), model.PunchRecord{
		RecordID:       req.RecordID,
		ParticipantRef: req.ParticipantRef,
		Timestamp:      ts,
		DeviceID:       req.DeviceID,
	})
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	case errors.Is(err, service.ErrInvalidPunch):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
