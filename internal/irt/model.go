// Package irt implements the three-parameter logistic (3PL) item response
// model: response probabilities and Fisher information.
package irt

import "math"

// Probability bounds keep log-likelihoods finite.
const (
	MinProbability = 0.001
	MaxProbability = 0.999
)

// Params holds the 3PL parameters of a single item.
type Params struct {
	A float64 `json:"a" yaml:"a"` // discrimination, > 0
	B float64 `json:"b" yaml:"b"` // difficulty
	C float64 `json:"c" yaml:"c"` // guessing, in [0, 1)
}

// Sigmoid returns the logistic function of x.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Probability returns P(correct | theta) = c + (1-c)·σ(a(θ-b)),
// clamped to [MinProbability, MaxProbability].
func Probability(theta float64, p Params) float64 {
	raw := p.C + (1-p.C)*Sigmoid(p.A*(theta-p.B))
	return Clamp(raw, MinProbability, MaxProbability)
}

// Information returns the Fisher information of one item at theta.
//
// With c = 0 this is the 2PL form a²·P·Q. With c > 0 it is the 3PL form
// a²·(Q/P)·((P-c)/(1-c))², which reduces to the 2PL form when c = 0.
func Information(theta float64, p Params) float64 {
	prob := Probability(theta, p)
	q := 1 - prob
	if p.C == 0 {
		return p.A * p.A * prob * q
	}
	r := (prob - p.C) / (1 - p.C)
	if r < 0 {
		r = 0
	}
	info := p.A * p.A * (q / prob) * r * r
	if math.IsNaN(info) || math.IsInf(info, 0) {
		return 0
	}
	return info
}

// TestInformation sums item information at theta.
func TestInformation(theta float64, items []Params) float64 {
	total := 0.0
	for _, p := range items {
		total += Information(theta, p)
	}
	return total
}

// StandardError returns 1/√I(θ) for the given items, or defaultSE when the
// items carry no information (e.g. before any item is answered).
func StandardError(theta float64, items []Params, defaultSE float64) float64 {
	info := TestInformation(theta, items)
	if info <= 0 || math.IsNaN(info) {
		return defaultSE
	}
	return 1 / math.Sqrt(info)
}
