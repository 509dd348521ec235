// Package config assembles engine settings from defaults, an optional YAML
// file and ADAPTEST_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/llm"
	"github.com/abhisek/adaptest/internal/logger"
	"github.com/abhisek/adaptest/internal/rediskv"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ADAPTEST_"

// Backend names where live sessions or exposure counters are kept.
type Backend string

const (
	BackendSQL    Backend = "sql"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// StorageConfig selects the database and the shared-state backends.
type StorageConfig struct {
	// DB is a SQLite path or a postgres:// DSN; empty uses the default path.
	DB string `yaml:"db" env:"DB"`

	Sessions       Backend       `yaml:"sessions" env:"SESSION_BACKEND"`
	Exposure       Backend       `yaml:"exposure" env:"EXPOSURE_BACKEND"`
	ExposureWindow time.Duration `yaml:"exposure_window" env:"EXPOSURE_WINDOW"`
}

// Config is the full engine configuration. It is built once and passed by
// value to constructors.
type Config struct {
	Estimation estimate.Config `yaml:"estimation" envPrefix:"ESTIMATION_"`
	Selection  selector.Config `yaml:"selection" envPrefix:"SELECTION_"`
	Stopping   stopping.Rules  `yaml:"stopping" envPrefix:"STOPPING_"`
	Session    session.Config  `yaml:"session" envPrefix:"SESSION_"`
	Storage    StorageConfig   `yaml:"storage"`
	Redis      rediskv.Config  `yaml:"redis" envPrefix:"REDIS_"`
	Log        logger.Config   `yaml:"log" envPrefix:"LOG_"`
	LLM        llm.Config      `yaml:"llm"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Estimation: estimate.DefaultConfig(),
		Selection:  selector.DefaultConfig(),
		Stopping:   stopping.DefaultRules(),
		Session:    session.DefaultConfig(),
		Storage: StorageConfig{
			Sessions:       BackendSQL,
			Exposure:       BackendSQL,
			ExposureWindow: exposure.DefaultWindow,
		},
		Redis: rediskv.Config{Prefix: "adaptest", DialTimeout: 5 * time.Second},
		Log:   logger.Config{Mode: "dev", Level: "info", Output: "stderr", Redact: true},
		LLM:   llm.DefaultConfig(),
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every inconsistent section.
func (c Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("estimation", c.Estimation.Validate())
	check("selection", c.Selection.Validate())
	check("stopping", c.Stopping.Validate())
	check("session", c.SessionConfig().Validate())
	check("llm", c.LLM.Validate())
	check("storage", c.Storage.validate(c.Redis))
	return errors.Join(errs...)
}

func (s StorageConfig) validate(redis rediskv.Config) error {
	for name, b := range map[string]Backend{"sessions": s.Sessions, "exposure": s.Exposure} {
		switch b {
		case BackendSQL, BackendMemory:
		case BackendRedis:
			if !redis.Enabled() {
				return fmt.Errorf("%s backend redis needs a redis address", name)
			}
		default:
			return fmt.Errorf("unknown %s backend %q", name, b)
		}
	}
	if s.ExposureWindow <= 0 {
		return fmt.Errorf("exposure window must be positive, got %v", s.ExposureWindow)
	}
	return nil
}

// SessionConfig returns the controller configuration with the configured
// stopping rules as the per-test default.
func (c Config) SessionConfig() session.Config {
	sc := c.Session
	sc.Rules = c.Stopping
	return sc
}

// Marshal renders c as YAML. Secrets are tagged yaml:"-" and never written.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
