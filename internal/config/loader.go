package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if PROCTOR_CONFIG is set
//  3. env (prefix PROCTOR_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PROCTOR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PROCTOR_ADDR, PROCTOR_GAZE_AWAY_SECONDS, ...
	// Map env keys like PROCTOR_AUDIT_URL -> audit_url (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PROCTOR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "proctor_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the agent cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.FrameMaxAgeMS <= 0 {
		return fmt.Errorf("%w: frame_max_age_ms must be positive", ErrInvalidConfig)
	}
	for name, cat := range c.Categories {
		if cat.WarningLimit < 0 || cat.CooldownMS < 0 {
			return fmt.Errorf("%w: category %s has negative settings", ErrInvalidConfig, name)
		}
	}
	for name, det := range c.Detectors {
		if det.IntervalMS < 0 {
			return fmt.Errorf("%w: detector %s has a negative interval", ErrInvalidConfig, name)
		}
		if det.ConfidenceFloor < 0 || det.ConfidenceFloor > 1 {
			return fmt.Errorf("%w: detector %s confidence floor outside [0,1]", ErrInvalidConfig, name)
		}
	}
	return nil
}
