// Package simulate runs Monte-Carlo adaptive tests against simulated
// examinees with known ability and reports how well the engine recovers it.
package simulate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/irt"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/logger"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

// Raw responses a simulee submits.
const (
	answerCorrect   = "1"
	answerIncorrect = "0"
)

// Config controls a simulation run.
type Config struct {
	Examinees   int
	Concurrency int
	Seed        uint64
	ThetaMean   float64
	ThetaSD     float64

	// Progress, if set, is called after each simulee finishes.
	Progress func(done, total int)
}

// DefaultConfig returns a 500-examinee run drawn from N(0, 1).
func DefaultConfig() Config {
	return Config{
		Examinees:   500,
		Concurrency: 8,
		Seed:        1,
		ThetaMean:   0,
		ThetaSD:     1,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Examinees < 1 {
		return fmt.Errorf("examinees must be >= 1, got %d", c.Examinees)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if !(c.ThetaSD >= 0) {
		return fmt.Errorf("theta SD must be >= 0, got %v", c.ThetaSD)
	}
	return nil
}

// Engine is the engine under test. Items and Ledger are required; Results
// optionally receives every finished session.
type Engine struct {
	Items      itembank.Repository
	Ledger     exposure.Ledger
	Estimation estimate.Config
	Selection  selector.Config
	Session    session.Config
	Results    session.ResultSink
	Logger     *logger.Logger
}

// Report summarizes a run. Bias and RMSE compare final estimates with the
// simulees' true abilities.
type Report struct {
	Examinees    int                     `json:"examinees"`
	MeanLength   float64                 `json:"mean_length"`
	MeanSE       float64                 `json:"mean_se"`
	Bias         float64                 `json:"bias"`
	RMSE         float64                 `json:"rmse"`
	ReasonCounts map[stopping.Reason]int `json:"reason_counts"`

	// MaxExposure is the largest share of examinees that saw a single item.
	MaxExposure    float64            `json:"max_exposure"`
	ExposureByItem map[string]float64 `json:"exposure_by_item"`
}

// TopExposed returns up to n item ids ordered by exposure, highest first.
func (r *Report) TopExposed(n int) []string {
	ids := make([]string, 0, len(r.ExposureByItem))
	for id := range r.ExposureByItem {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(r.ExposureByItem[b], r.ExposureByItem[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids[:min(n, len(ids))]
}

// outcome is one simulee's finished test.
type outcome struct {
	trueTheta float64
	result    *session.Result
}

// Run administers a full adaptive test to cfg.Examinees simulees, at most
// cfg.Concurrency at a time. Each simulee answers an item correctly with
// the 3PL probability at its true ability.
func Run(ctx context.Context, cfg Config, eng Engine) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulation config: %w", err)
	}
	if eng.Items == nil || eng.Ledger == nil {
		return nil, errors.New("simulation engine needs an item repository and an exposure ledger")
	}
	if eng.Logger == nil {
		eng.Logger = logger.Nop()
	}

	est, err := estimate.New(eng.Estimation)
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}
	sel := selector.New(eng.Items, eng.Ledger, eng.Selection,
		selector.WithSource(rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb)))

	ctrl := session.NewController(session.Deps{
		Items:     eng.Items,
		Store:     session.NewMemoryStore(eng.Session.TTL, nil),
		Evaluator: session.EvaluatorFunc(grade),
		Results:   eng.Results,
		Logger:    eng.Logger,
	}, eng.Session, est, sel)

	outcomes := make([]outcome, cfg.Examinees)
	var done atomic.Int64
	var progressMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := range cfg.Examinees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)+1))
			sim := simulee{
				id:    "sim-" + uuid.NewString(),
				theta: cfg.ThetaMean + cfg.ThetaSD*rng.NormFloat64(),
				rng:   rng,
				items: eng.Items,
			}
			res, err := sim.take(gctx, ctrl)
			if err != nil {
				return fmt.Errorf("simulee %d: %w", i+1, err)
			}
			outcomes[i] = outcome{trueTheta: sim.theta, result: res}

			n := int(done.Add(1))
			if cfg.Progress != nil {
				progressMu.Lock()
				cfg.Progress(n, cfg.Examinees)
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := summarize(outcomes)
	eng.Logger.Info("simulation finished",
		"examinees", report.Examinees,
		"mean_length", report.MeanLength,
		"mean_se", report.MeanSE,
		"bias", report.Bias,
		"rmse", report.RMSE,
		"max_exposure", report.MaxExposure,
	)
	return report, nil
}

// grade accepts the simulee's own verdict.
func grade(_ context.Context, _ itembank.Item, raw string) (bool, error) {
	switch raw {
	case answerCorrect:
		return true, nil
	case answerIncorrect:
		return false, nil
	}
	return false, fmt.Errorf("unexpected simulated response %q", raw)
}

type simulee struct {
	id    string
	theta float64
	rng   *rand.Rand
	items itembank.Repository
}

func (s *simulee) take(ctx context.Context, ctrl *session.Controller) (*session.Result, error) {
	sessionID, err := ctrl.Start(ctx, s.id, session.TestConfig{})
	if err != nil {
		return nil, err
	}
	for {
		next, err := ctrl.NextItem(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if next.Final != nil {
			return next.Final, nil
		}
		item, err := s.items.Get(ctx, next.Item.Content.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get item: %w", err)
		}
		if _, err := ctrl.Submit(ctx, sessionID, item.ID, s.answer(item), 0); err != nil {
			return nil, err
		}
	}
}

func (s *simulee) answer(item itembank.Item) string {
	if s.rng.Float64() < irt.Probability(s.theta, item.Params()) {
		return answerCorrect
	}
	return answerIncorrect
}

func summarize(outcomes []outcome) *Report {
	r := &Report{
		Examinees:      len(outcomes),
		ReasonCounts:   make(map[stopping.Reason]int),
		ExposureByItem: make(map[string]float64),
	}
	if len(outcomes) == 0 {
		return r
	}

	var length, se, bias, sq float64
	seen := make(map[string]int)
	for _, o := range outcomes {
		res := o.result
		length += float64(res.Answered)
		se += res.SE
		diff := res.Theta - o.trueTheta
		bias += diff
		sq += diff * diff
		r.ReasonCounts[res.Reason]++
		for _, resp := range res.Responses {
			seen[resp.ItemID]++
		}
	}

	n := float64(len(outcomes))
	r.MeanLength = length / n
	r.MeanSE = se / n
	r.Bias = bias / n
	r.RMSE = math.Sqrt(sq / n)
	for id, count := range seen {
		rate := float64(count) / n
		r.ExposureByItem[id] = rate
		r.MaxExposure = max(r.MaxExposure, rate)
	}
	return r
}
