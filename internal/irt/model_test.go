package irt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbability_HalfAtDifficulty(t *testing.T) {
	for _, b := range []float64{-3, -1, 0, 0.7, 2.5} {
		p := Probability(b, Params{A: 1.3, B: b})
		assert.InDelta(t, 0.5, p, 1e-12, "b=%v", b)
	}
}

func TestProbability_MonotoneInTheta(t *testing.T) {
	params := Params{A: 1.1, B: 0.4}
	prev := Probability(-4, params)
	for theta := -3.9; theta <= 4; theta += 0.1 {
		p := Probability(theta, params)
		assert.GreaterOrEqual(t, p, prev, "theta=%v", theta)
		prev = p
	}
}

func TestProbability_Clamped(t *testing.T) {
	assert.Equal(t, MaxProbability, Probability(40, Params{A: 3, B: 0}))
	assert.Equal(t, MinProbability, Probability(-40, Params{A: 3, B: 0}))
	assert.Equal(t, MinProbability, Probability(math.NaN(), Params{A: 1, B: 0}))
}

func TestProbability_GuessingFloor(t *testing.T) {
	p := Probability(-10, Params{A: 1, B: 0, C: 0.25})
	assert.InDelta(t, 0.25, p, 0.001)
}

func TestInformation_TwoPLForm(t *testing.T) {
	params := Params{A: 1.5, B: 0}
	assert.InDelta(t, 1.5*1.5*0.25, Information(0, params), 1e-12)
}

func TestInformation_PeaksNearDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"2pl", Params{A: 1.2, B: 0.5}},
		{"3pl", Params{A: 1.2, B: 0.5, C: 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, bestTheta := -1.0, 0.0
			for theta := -4.0; theta <= 4; theta += 0.01 {
				if i := Information(theta, tt.params); i > best {
					best, bestTheta = i, theta
				}
			}
			assert.InDelta(t, tt.params.B, bestTheta, 0.35)

			// Decreasing away from the peak on both sides.
			prev := Information(bestTheta, tt.params)
			for d := 0.25; d <= 3; d += 0.25 {
				cur := Information(bestTheta+d, tt.params)
				assert.Less(t, cur, prev, "above peak by %v", d)
				prev = cur
			}
			prev = Information(bestTheta, tt.params)
			for d := 0.25; d <= 3; d += 0.25 {
				cur := Information(bestTheta-d, tt.params)
				assert.Less(t, cur, prev, "below peak by %v", d)
				prev = cur
			}
		})
	}
}

func TestInformation_VanishesFarBelowDifficultyWithGuessing(t *testing.T) {
	params := Params{A: 1.2, B: 0.5, C: 0.2}
	prev := Information(params.B-0.5, params)
	for d := 1.0; d <= 10; d += 0.5 {
		cur := Information(params.B-d, params)
		require.False(t, math.IsInf(cur, 0) || math.IsNaN(cur), "below difficulty by %v", d)
		assert.Less(t, cur, prev, "below difficulty by %v", d)
		prev = cur
	}
	assert.Less(t, prev, 1e-6)
}

func TestInformation_GuessingLowersInformation(t *testing.T) {
	two := Information(0.3, Params{A: 1, B: 0})
	three := Information(0.3, Params{A: 1, B: 0, C: 0.25})
	assert.Less(t, three, two)
}

func TestStandardError(t *testing.T) {
	assert.Equal(t, 1.0, StandardError(0, nil, 1.0))

	items := []Params{{A: 2, B: 0}, {A: 2, B: 0}}
	info := TestInformation(0, items)
	require.InDelta(t, 2.0, info, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(2), StandardError(0, items, 1.0), 1e-12)
}
