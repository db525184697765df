// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mihrab-labs/salahstreak/internal/adapters/repository"
	"github.com/mihrab-labs/salahstreak/internal/domain/model"
	"github.com/mihrab-labs/salahstreak/internal/domain/ranking"
)

// Service bundles the operations HTTP handlers need. Using an interface
// bundle keeps the handler layer loosely coupled to the application
// package.
type Service interface {
	IngestCheckIn(ctx context.Context, rec model.PunchRecord) (duplicate bool, err error)

	ProcessScores(ctx context.Context, from, to *model.Date) error
	RecalculateForWindowChange(ctx context.Context, eventID int64) error
	ScoresFor(ctx context.Context, participantID int64, from, to *model.Date) ([]model.ParticipantScore, error)
	TotalScore(ctx context.Context, participantID int64, from, to *model.Date) (int, error)

	CreateRound(ctx context.Context, name string, start model.Date, durationDays int) (model.Round, error)
	ProcessWinners(ctx context.Context, roundID int64) error
	CurrentRound(ctx context.Context) (model.Round, error)
	RoundWinners(ctx context.Context, roundID int64, ageGroupID *int64) ([]model.Winner, error)
	EligibleParticipants(ctx context.Context, roundID int64) ([]ranking.Standing, error)

	Stats(ctx context.Context) map[string]any
	Store() repository.Store
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	checkinsHandler *CheckInsHandler
	scoresHandler   *ScoresHandler
	roundsHandler   *RoundsHandler
	adminHandler    *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(svc),
		checkinsHandler: NewCheckInsHandler(svc),
		scoresHandler:   NewScoresHandler(svc),
		roundsHandler:   NewRoundsHandler(svc),
		adminHandler:    NewAdminHandler(svc.Store()),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/checkins", MetricsMiddleware(s.checkinsHandler.HandlePostCheckIn, "checkins"))
	mux.HandleFunc("/scoring/run", MetricsMiddleware(s.scoresHandler.HandleRun, "scoring_run"))
	mux.HandleFunc("/scoring/rescore", MetricsMiddleware(s.scoresHandler.HandleRescore, "scoring_rescore"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("/scores/total", MetricsMiddleware(s.scoresHandler.HandleGetTotal, "scores_total"))
	mux.HandleFunc("/rounds", MetricsMiddleware(s.roundsHandler.HandlePostRound, "rounds"))
	mux.HandleFunc("/rounds/current", MetricsMiddleware(s.roundsHandler.HandleGetCurrent, "rounds_current"))
	mux.HandleFunc("/rounds/complete", MetricsMiddleware(s.roundsHandler.HandleComplete, "rounds_complete"))
	mux.HandleFunc("/rounds/winners", MetricsMiddleware(s.roundsHandler.HandleGetWinners, "rounds_winners"))
	mux.HandleFunc("/rounds/eligible", MetricsMiddleware(s.roundsHandler.HandleGetEligible, "rounds_eligible"))
	mux.HandleFunc("/admin/age-groups", MetricsMiddleware(s.adminHandler.HandlePostAgeGroup, "admin_age_groups"))
	mux.HandleFunc("/admin/participants", MetricsMiddleware(s.adminHandler.HandlePostParticipant, "admin_participants"))
	mux.HandleFunc("/admin/events", MetricsMiddleware(s.adminHandler.HandlePostEvents, "admin_events"))
	mux.HandleFunc("/admin/events/tolerance", MetricsMiddleware(s.adminHandler.HandlePostTolerance, "admin_events_tolerance"))
}

// checkinRequest mirrors the wire schema for POST /checkins.
type checkinRequest struct {
	RecordID       string `json:"record_id"`
	ParticipantRef string `json:"participant_ref"`
	TS             string `json:"ts"`
	DeviceID       string `json:"device_id"`
}

func (c checkinRequest) validate() error {
	switch {
	case strings.TrimSpace(c.RecordID) == "":
		return errors.New("missing record_id")
	case strings.TrimSpace(c.ParticipantRef) == "":
		return errors.New("missing participant_ref")
	case strings.TrimSpace(c.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, c.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
