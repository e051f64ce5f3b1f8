// Package config loads process configuration from LASERCOST_* environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"

	"github.com/piwi3910/LaserCost/internal/model"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AllocationModel string  `env:"LASERCOST_ALLOCATION_MODEL" envDefault:"occupied_area"`
	BufferFactor    float64 `env:"LASERCOST_BUFFER_FACTOR" envDefault:"1.25"`
	Workers         int     `env:"LASERCOST_WORKERS" envDefault:"4"`
	LogLevel        string  `env:"LASERCOST_LOG_LEVEL" envDefault:"info"`
	Development     bool    `env:"LASERCOST_DEV" envDefault:"false"`
	ListenAddr      string  `env:"LASERCOST_LISTEN_ADDR" envDefault:":8080"`
	PricingPath     string  `env:"LASERCOST_PRICING"` // Empty means the default config dir
	MachinePath     string  `env:"LASERCOST_MACHINE"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be expressed as struct tags.
func (c *Config) Validate() error {
	if _, err := model.ParseAllocationModel(c.AllocationModel); err != nil {
		return fmt.Errorf("invalid LASERCOST_ALLOCATION_MODEL: %w", err)
	}
	if c.BufferFactor <= 0 {
		return fmt.Errorf("LASERCOST_BUFFER_FACTOR must be positive, got %g", c.BufferFactor)
	}
	if c.Workers < 1 {
		return fmt.Errorf("LASERCOST_WORKERS must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Allocation returns the validated allocation model.
func (c *Config) Allocation() model.AllocationModel {
	return model.AllocationModel(c.AllocationModel)
}
