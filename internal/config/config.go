// Package config defines service configuration and loading.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseDSN is the Postgres connection string. Empty selects the
	// in-memory store, which only makes sense for demos and tests.
	DatabaseDSN string `koanf:"database_dsn"`

	// Timezone names the location check-in timestamps are grouped into
	// calendar days with. Empty means the process-local zone.
	Timezone string `koanf:"timezone"`

	// ScoreIntervalSec and RoundIntervalSec set the fixed delays of the
	// scoring and round background sweeps.
	ScoreIntervalSec int `koanf:"score_interval_sec"`
	RoundIntervalSec int `koanf:"round_interval_sec"`

	// IngestQueueSize bounds the in-memory punch queue.
	IngestQueueSize int `koanf:"ingest_queue_size"`

	// IngestWorkerCount sets the number of ingest workers.
	IngestWorkerCount int `koanf:"ingest_worker_count"`

	// DedupeSize bounds the punch record-ID dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// EventsPerDay and EligibilityRatio derive a new round's eligibility
	// threshold: ceil(duration * events_per_day * ratio).
	EventsPerDay     int     `koanf:"events_per_day"`
	EligibilityRatio float64 `koanf:"eligibility_ratio"`

	// RoundDurationDays is the default round length.
	RoundDurationDays int `koanf:"round_duration_days"`

	// AutoCreateRounds lets the round sweep open a follow-on round when
	// no round covers today.
	AutoCreateRounds bool `koanf:"auto_create_rounds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		DatabaseDSN:       "",
		Timezone:          "",
		ScoreIntervalSec:  120,
		RoundIntervalSec:  3600,
		IngestQueueSize:   10_000,
		IngestWorkerCount: runtime.NumCPU(),
		DedupeSize:        50_000,
		EventsPerDay:      5,
		EligibilityRatio:  0.975,
		RoundDurationDays: 40,
		AutoCreateRounds:  false,
	}
}

// ScoreInterval returns the scoring sweep delay.
func (c *Config) ScoreInterval() time.Duration {
	return time.Duration(c.ScoreIntervalSec) * time.Second
}

// RoundInterval returns the round sweep delay.
func (c *Config) RoundInterval() time.Duration {
	return time.Duration(c.RoundIntervalSec) * time.Second
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
