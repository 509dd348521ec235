// Package estimate computes ability estimates from a response history.
//
// Two strategies are provided behind the Estimator interface: maximum
// likelihood via Newton-Raphson and Bayesian expected-a-posteriori via
// numerical quadrature. Both recompute from the full history on every call.
package estimate

import (
	"fmt"

	"github.com/abhisek/adaptest/internal/irt"
)

// Method selects an estimation strategy.
type Method string

const (
	MethodMLE Method = "mle"
	MethodEAP Method = "eap"
)

// Observation is one scored response.
type Observation struct {
	Params  irt.Params
	Correct bool
}

// Prior is a Normal prior on ability.
type Prior struct {
	Mean float64
	SD   float64
}

// Result is an ability estimate and its standard error.
type Result struct {
	Theta      float64
	SE         float64
	Iterations int

	// Converged is false when MLE stopped without meeting the tolerance.
	Converged bool

	// Fallback is set when MLE could not produce a usable estimate and the
	// previous stable estimate was returned instead.
	Fallback bool

	// Clamped is set when MLE ran into the configured ability bounds, which
	// happens for all-correct or all-incorrect histories.
	Clamped bool
}

// Estimator produces an ability estimate from an ordered history.
// current is the last stable estimate; MLE starts from it and falls back to
// it, EAP ignores it.
type Estimator interface {
	Estimate(history []Observation, prior Prior, current float64) Result
	Method() Method
}

// New builds the estimator selected by cfg.Method.
func New(cfg Config) (Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case MethodMLE:
		return &MLE{cfg: cfg}, nil
	case MethodEAP:
		return &EAP{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown estimation method: %q", cfg.Method)
	}
}

func paramsOf(history []Observation) []irt.Params {
	out := make([]irt.Params, len(history))
	for i, o := range history {
		out[i] = o.Params
	}
	return out
}
