package estimate

import (
	"math"

	"github.com/abhisek/adaptest/internal/irt"
)

// EAP is the expected-a-posteriori estimator. The posterior is evaluated on
// a uniform grid over [MinTheta, MaxTheta]; the estimate is the posterior
// mean and the SE is the posterior standard deviation.
type EAP struct {
	cfg Config
}

var _ Estimator = (*EAP)(nil)

// NewEAP returns an EAP estimator using cfg.
func NewEAP(cfg Config) *EAP { return &EAP{cfg: cfg} }

func (e *EAP) Method() Method { return MethodEAP }

func (e *EAP) Estimate(history []Observation, prior Prior, _ float64) Result {
	if prior.SD <= 0 {
		prior = Prior{Mean: e.cfg.PriorMean, SD: e.cfg.PriorSD}
	}

	grid := Grid(e.cfg.MinTheta, e.cfg.MaxTheta, e.cfg.QuadraturePoints)
	logPost := make([]float64, len(grid))
	peak := math.Inf(-1)
	for i, theta := range grid {
		z := (theta - prior.Mean) / prior.SD
		lp := -0.5 * z * z
		for _, o := range history {
			prob := irt.Probability(theta, o.Params)
			if o.Correct {
				lp += math.Log(prob)
			} else {
				lp += math.Log(1 - prob)
			}
		}
		logPost[i] = lp
		if lp > peak {
			peak = lp
		}
	}

	var sum, mean float64
	weights := make([]float64, len(grid))
	for i, lp := range logPost {
		w := math.Exp(lp - peak)
		weights[i] = w
		sum += w
		mean += w * grid[i]
	}
	mean /= sum

	var variance float64
	for i, w := range weights {
		d := grid[i] - mean
		variance += w * d * d
	}
	variance /= sum

	se := math.Sqrt(variance)
	if se == 0 || math.IsNaN(se) {
		se = e.cfg.DefaultSE
	}
	return Result{Theta: mean, SE: se, Converged: true}
}

// Grid returns n evenly spaced points from lo to hi inclusive.
func Grid(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{(lo + hi) / 2}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
