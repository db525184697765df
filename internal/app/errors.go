package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoStore      = errors.New("no store configured")
	ErrBackpressure = errors.New("ingest queue full")
	ErrInvalidPunch = errors.New("invalid punch record")
	ErrInvalidRound = errors.New("invalid round parameters")
)
