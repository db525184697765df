package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STREAK_CONFIG is set
//  3. env (prefix STREAK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("STREAK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// STREAK_SCORE_INTERVAL_SEC -> score_interval_sec; underscores are
	// preserved to match the koanf tags on the struct.
	envProvider := env.Provider("STREAK_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "streak_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ScoreIntervalSec <= 0 || c.RoundIntervalSec <= 0:
		return fmt.Errorf("%w: sweep intervals must be positive", ErrInvalidConfig)
	case c.EventsPerDay <= 0:
		return fmt.Errorf("%w: events_per_day must be positive", ErrInvalidConfig)
	case c.EligibilityRatio <= 0 || c.EligibilityRatio > 1:
		return fmt.Errorf("%w: eligibility_ratio must be in (0, 1]", ErrInvalidConfig)
	case c.RoundDurationDays <= 0:
		return fmt.Errorf("%w: round_duration_days must be positive", ErrInvalidConfig)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, c.Timezone)
		}
	}
	return nil
}
