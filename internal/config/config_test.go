package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/selector"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "adaptest.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, estimate.MethodEAP, cfg.Estimation.Method)
	assert.Equal(t, 0.3, cfg.Stopping.TargetSE)
	assert.Equal(t, 24*time.Hour, cfg.Storage.ExposureWindow)
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, `
estimation:
  method: mle
selection:
  strategy: owen
  exposure_ceiling: 0.2
stopping:
  min_questions: 5
  max_questions: 20
  target_se: 0.35
  time_limit: 20m
session:
  ttl: 30m
`)
	t.Setenv("ADAPTEST_STOPPING_MAX_QUESTIONS", "25")
	t.Setenv("ADAPTEST_SELECTION_TOP_K", "5")
	t.Setenv("ADAPTEST_LOG_MODE", "prod")
	t.Setenv("ADAPTEST_DB", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, estimate.MethodMLE, cfg.Estimation.Method)
	assert.Equal(t, 61, cfg.Estimation.QuadraturePoints, "unset YAML keys keep defaults")
	assert.Equal(t, selector.StrategyOwen, cfg.Selection.Strategy)
	assert.Equal(t, 0.2, cfg.Selection.ExposureCeiling)
	assert.Equal(t, 5, cfg.Selection.TopK)
	assert.Equal(t, 5, cfg.Stopping.MinQuestions)
	assert.Equal(t, 25, cfg.Stopping.MaxQuestions, "env overrides YAML")
	assert.Equal(t, 20*time.Minute, cfg.Stopping.TimeLimit)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "prod", cfg.Log.Mode)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DB)

	sc := cfg.SessionConfig()
	assert.Equal(t, cfg.Stopping, sc.Rules)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"unknown key", "selection:\n  strategi: owen\n", nil, "strategi"},
		{"min above max", "stopping:\n  min_questions: 40\n", nil, "stopping"},
		{"bad ceiling", "selection:\n  exposure_ceiling: 1.5\n", nil, "exposure ceiling"},
		{"tiny grid", "estimation:\n  quadrature_points: 1\n", nil, "quadrature"},
		{"redis without address", "storage:\n  sessions: redis\n", nil, "redis"},
		{"unknown backend", "storage:\n  exposure: etcd\n", nil, "etcd"},
		{"bad env", "", map[string]string{"ADAPTEST_STOPPING_MAX_QUESTIONS": "many"}, "env"},
		{"llm without key", "", map[string]string{"ADAPTEST_LLM_PROVIDER": "anthropic"}, "ADAPTEST_ANTHROPIC_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}
			_, err := Load(path)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Selection, cfg.Selection)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Stopping.TimeLimit = 15 * time.Minute
	cfg.LLM.Anthropic.APIKey = "sk-secret"

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), "time_limit: 15m0s")

	got := Default()
	require.NoError(t, decodeYAML(data, &got))
	assert.Equal(t, cfg.Stopping, got.Stopping)
	assert.Equal(t, cfg.Selection, got.Selection)
}
