package simulate

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/irt"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

func testEngine(t *testing.T, bankSize int) Engine {
	t.Helper()
	items := itembank.Generate(itembank.GenerateOptions{
		Size:     bankSize,
		Subjects: []string{"algebra", "geometry"},
		Seed:     7,
	})
	return Engine{
		Items:      itembank.NewMemoryRepository(items...),
		Ledger:     exposure.NewMemory(),
		Estimation: estimate.DefaultConfig(),
		Selection:  selector.DefaultConfig(),
		Session:    session.DefaultConfig(),
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no examinees", func(c *Config) { c.Examinees = 0 }},
		{"no concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative sd", func(c *Config) { c.ThetaSD = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRunRequiresItemsAndLedger(t *testing.T) {
	_, err := Run(context.Background(), DefaultConfig(), Engine{})
	assert.Error(t, err)
}

func TestRunRecoversAbility(t *testing.T) {
	eng := testEngine(t, 300)
	results := &session.MemoryResults{}
	eng.Results = results

	var calls atomic.Int64
	cfg := Config{
		Examinees:   60,
		Concurrency: 4,
		Seed:        42,
		ThetaMean:   0,
		ThetaSD:     1,
		Progress:    func(done, total int) { calls.Add(1) },
	}

	report, err := Run(context.Background(), cfg, eng)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Examinees)
	assert.EqualValues(t, 60, calls.Load())
	assert.Len(t, results.All(), 60)

	total := 0
	for reason, n := range report.ReasonCounts {
		assert.Contains(t, []stopping.Reason{
			stopping.ReasonPrecisionAchieved,
			stopping.ReasonMaximumReached,
			stopping.ReasonItemPoolExhausted,
		}, reason)
		total += n
	}
	assert.Equal(t, 60, total)

	rules := stopping.DefaultRules()
	assert.GreaterOrEqual(t, report.MeanLength, float64(rules.MinQuestions))
	assert.LessOrEqual(t, report.MeanLength, float64(rules.MaxQuestions))
	assert.Less(t, report.MeanSE, 0.5)
	assert.Less(t, report.RMSE, 0.8)
	assert.Less(t, report.Bias, 0.5)
	assert.Greater(t, report.Bias, -0.5)

	assert.Greater(t, report.MaxExposure, 0.0)
	assert.LessOrEqual(t, report.MaxExposure, 1.0)
	top := report.TopExposed(3)
	require.Len(t, top, 3)
	assert.Equal(t, report.MaxExposure, report.ExposureByItem[top[0]])
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	cfg.Examinees = 5
	_, err := Run(ctx, cfg, testEngine(t, 50))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimuleeAnswersFollowModel(t *testing.T) {
	items := itembank.Generate(itembank.GenerateOptions{Size: 1, Seed: 3})
	item := items[0]
	item.B = 0
	item.A = 1.2

	sim := simulee{theta: 1, rng: rand.New(rand.NewPCG(9, 9))}
	n, correct := 20000, 0
	for range n {
		if sim.answer(item) == answerCorrect {
			correct++
		}
	}
	want := irt.Probability(1, item.Params())
	assert.InDelta(t, want, float64(correct)/float64(n), 0.02)
}

func TestGrade(t *testing.T) {
	ok, err := grade(context.Background(), itembank.Item{}, answerCorrect)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = grade(context.Background(), itembank.Item{}, answerIncorrect)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = grade(context.Background(), itembank.Item{}, "maybe")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	outcomes := []outcome{
		{trueTheta: 0, result: &session.Result{
			Theta: 0.5, SE: 0.3, Answered: 2, Reason: stopping.ReasonPrecisionAchieved,
			Responses: []session.Response{{ItemID: "a"}, {ItemID: "b"}},
		}},
		{trueTheta: 1, result: &session.Result{
			Theta: 0.5, SE: 0.5, Answered: 1, Reason: stopping.ReasonMaximumReached,
			Responses: []session.Response{{ItemID: "a"}},
		}},
	}

	r := summarize(outcomes)
	assert.Equal(t, 2, r.Examinees)
	assert.InDelta(t, 1.5, r.MeanLength, 1e-9)
	assert.InDelta(t, 0.4, r.MeanSE, 1e-9)
	assert.InDelta(t, 0, r.Bias, 1e-9)
	assert.InDelta(t, 0.5, r.RMSE, 1e-9)
	assert.Equal(t, 1, r.ReasonCounts[stopping.ReasonPrecisionAchieved])
	assert.Equal(t, 1, r.ReasonCounts[stopping.ReasonMaximumReached])
	assert.InDelta(t, 1.0, r.ExposureByItem["a"], 1e-9)
	assert.InDelta(t, 0.5, r.ExposureByItem["b"], 1e-9)
	assert.InDelta(t, 1.0, r.MaxExposure, 1e-9)
	assert.Equal(t, []string{"a", "b"}, r.TopExposed(5))
}

func TestSummarizeEmpty(t *testing.T) {
	r := summarize(nil)
	assert.Zero(t, r.Examinees)
	assert.Empty(t, r.ExposureByItem)
}
