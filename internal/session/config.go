package session

import (
	"fmt"
	"time"

	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/stopping"
)

// Config holds controller defaults.
type Config struct {
	DefaultTheta      float64       `yaml:"default_theta" env:"DEFAULT_THETA"`
	DefaultSE         float64       `yaml:"default_se" env:"DEFAULT_SE"`
	TTL               time.Duration `yaml:"ttl" env:"TTL"`
	RelaxOnExhaustion bool          `yaml:"relax_on_exhaustion" env:"RELAX_ON_EXHAUSTION"`

	// Rules and Constraints apply when a TestConfig leaves them unset.
	Rules       stopping.Rules       `yaml:"-" env:"-"`
	Constraints selector.Constraints `yaml:"-" env:"-"`
}

// DefaultConfig returns the standard controller configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTheta:      0,
		DefaultSE:         1,
		TTL:               2 * time.Hour,
		RelaxOnExhaustion: true,
		Rules:             stopping.DefaultRules(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !(c.DefaultSE > 0) {
		return fmt.Errorf("default SE must be > 0, got %v", c.DefaultSE)
	}
	if c.TTL < 0 {
		return fmt.Errorf("session TTL must be non-negative, got %v", c.TTL)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("stopping rules: %w", err)
	}
	return nil
}

// TestConfig customizes one test. Zero values fall back to Config.
type TestConfig struct {
	Rules       stopping.Rules
	Constraints selector.Constraints
}
