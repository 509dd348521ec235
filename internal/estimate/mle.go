package estimate

import (
	"math"

	"github.com/abhisek/adaptest/internal/irt"
)

// flatCurvature is the |L''| below which Newton-Raphson stops.
const flatCurvature = 1e-10

// maxStep bounds a single Newton update so early iterations on short
// histories do not overshoot the ability range.
const maxStep = 1.0

// MLE is the maximum-likelihood estimator (Newton-Raphson).
//
// MLE diverges for all-correct and all-incorrect histories; the iterate is
// clamped to [MinTheta, MaxTheta] and the result is flagged Clamped.
type MLE struct {
	cfg Config
}

var _ Estimator = (*MLE)(nil)

// NewMLE returns an MLE estimator using cfg.
func NewMLE(cfg Config) *MLE { return &MLE{cfg: cfg} }

func (m *MLE) Method() Method { return MethodMLE }

func (m *MLE) Estimate(history []Observation, _ Prior, current float64) Result {
	if len(history) == 0 {
		return Result{Theta: current, SE: m.cfg.DefaultSE, Converged: true}
	}
	params := paramsOf(history)

	theta := irt.Clamp(current, m.cfg.MinTheta, m.cfg.MaxTheta)
	for iter := 1; iter <= m.cfg.MaxIterations; iter++ {
		d1, d2 := derivatives(theta, history)
		if math.IsNaN(d1) || math.IsNaN(d2) || math.IsInf(d1, 0) || math.IsInf(d2, 0) {
			return m.fallback(current, params, iter)
		}
		if math.Abs(d2) < flatCurvature {
			return Result{
				Theta:      theta,
				SE:         irt.StandardError(theta, params, m.cfg.DefaultSE),
				Iterations: iter,
			}
		}

		step := d1 / d2
		step = irt.Clamp(step, -maxStep, maxStep)
		next := theta - step

		if next <= m.cfg.MinTheta || next >= m.cfg.MaxTheta {
			bound := irt.Clamp(next, m.cfg.MinTheta, m.cfg.MaxTheta)
			if bound == theta {
				// Already at the bound and still pushed outward.
				return Result{
					Theta:      bound,
					SE:         irt.StandardError(bound, params, m.cfg.DefaultSE),
					Iterations: iter,
					Clamped:    true,
				}
			}
			next = bound
		}

		if math.Abs(next-theta) < m.cfg.Tolerance {
			return Result{
				Theta:      next,
				SE:         irt.StandardError(next, params, m.cfg.DefaultSE),
				Iterations: iter,
				Converged:  true,
			}
		}
		theta = next
	}
	return m.fallback(current, params, m.cfg.MaxIterations)
}

func (m *MLE) fallback(current float64, params []irt.Params, iter int) Result {
	theta := irt.Clamp(current, m.cfg.MinTheta, m.cfg.MaxTheta)
	return Result{
		Theta:      theta,
		SE:         irt.StandardError(theta, params, m.cfg.DefaultSE),
		Iterations: iter,
		Fallback:   true,
	}
}

// derivatives returns the first and second derivatives of the
// log-likelihood at theta.
//
// Per item, with P the 3PL probability and u the 0/1 response:
//
//	L'  = a·(u-P)·(P-c) / (P·(1-c))
//	L'' = a²·(P-c)·(1-P)·(c·u-P²) / ((1-c)²·P²)
//
// which reduce to a·(u-P) and -a²·P·(1-P) when c = 0. When the summed L''
// is not negative (possible under guessing), the expected information is
// used instead (Fisher scoring).
func derivatives(theta float64, history []Observation) (float64, float64) {
	var d1, d2, info float64
	for _, o := range history {
		p := o.Params
		prob := irt.Probability(theta, p)
		u := 0.0
		if o.Correct {
			u = 1
		}
		if p.C == 0 {
			d1 += p.A * (u - prob)
			d2 -= p.A * p.A * prob * (1 - prob)
		} else {
			oneMinusC := 1 - p.C
			d1 += p.A * (u - prob) * (prob - p.C) / (prob * oneMinusC)
			d2 += p.A * p.A * (prob - p.C) * (1 - prob) * (p.C*u - prob*prob) /
				(oneMinusC * oneMinusC * prob * prob)
		}
		info += irt.Information(theta, p)
	}
	if d2 >= 0 {
		d2 = -info
	}
	return d1, d2
}
