// Package stopping decides when an adaptive test has gathered enough
// evidence to end.
package stopping

import (
	"fmt"
	"time"
)

// Reason explains a stop (or continue) decision.
type Reason string

const (
	ReasonMinimumNotMet     Reason = "minimum_questions_not_met"
	ReasonMaximumReached    Reason = "maximum_questions_reached"
	ReasonTimeLimitExceeded Reason = "time_limit_exceeded"
	ReasonPrecisionAchieved Reason = "target_precision_achieved"
	ReasonConfidenceNarrow  Reason = "confidence_interval_narrow"
	ReasonContinue          Reason = "continue_testing"
	ReasonItemPoolExhausted Reason = "item_pool_exhausted"
	ReasonExamineeEnded     Reason = "examinee_ended"
	ReasonAborted           Reason = "aborted"
)

// z95 is the two-sided 95% normal quantile.
const z95 = 1.96

// Rules are the termination criteria of a test. Zero disables MaxQuestions,
// TimeLimit, TargetSE and MaxCIWidth.
type Rules struct {
	MinQuestions int           `json:"min_questions" yaml:"min_questions" env:"MIN_QUESTIONS"`
	MaxQuestions int           `json:"max_questions" yaml:"max_questions" env:"MAX_QUESTIONS"`
	TimeLimit    time.Duration `json:"time_limit" yaml:"time_limit" env:"TIME_LIMIT"`
	TargetSE     float64       `json:"target_se" yaml:"target_se" env:"TARGET_SE"`
	MaxCIWidth   float64       `json:"max_ci_width" yaml:"max_ci_width" env:"MAX_CI_WIDTH"`
}

// DefaultRules returns the standard rules: 10 to 30 items, SE ≤ 0.3.
func DefaultRules() Rules {
	return Rules{
		MinQuestions: 10,
		MaxQuestions: 30,
		TargetSE:     0.3,
	}
}

// Validate reports inconsistent rules.
func (r Rules) Validate() error {
	if r.MinQuestions < 0 || r.MaxQuestions < 0 {
		return fmt.Errorf("question bounds must be non-negative")
	}
	if r.MaxQuestions > 0 && r.MinQuestions > r.MaxQuestions {
		return fmt.Errorf("min questions %d exceeds max questions %d", r.MinQuestions, r.MaxQuestions)
	}
	if r.TimeLimit < 0 || r.TargetSE < 0 || r.MaxCIWidth < 0 {
		return fmt.Errorf("time limit, target SE and CI width must be non-negative")
	}
	if r.MaxQuestions == 0 && r.TimeLimit == 0 && r.TargetSE == 0 && r.MaxCIWidth == 0 {
		return fmt.Errorf("at least one stopping criterion must be enabled")
	}
	return nil
}

// State is the part of a session the rules look at.
type State struct {
	Answered int
	Elapsed  time.Duration
	SE       float64
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Stop   bool
	Reason Reason
}

// CIWidth returns the width of the 95% confidence interval for se.
func CIWidth(se float64) float64 {
	return 2 * z95 * se
}

// Interval returns the 95% confidence interval around theta.
func Interval(theta, se float64) (lo, hi float64) {
	return theta - z95*se, theta + z95*se
}

// Evaluate applies the rules in order; the first that matches decides.
func Evaluate(r Rules, s State) Decision {
	switch {
	case s.Answered < r.MinQuestions:
		return Decision{Stop: false, Reason: ReasonMinimumNotMet}
	case r.MaxQuestions > 0 && s.Answered >= r.MaxQuestions:
		return Decision{Stop: true, Reason: ReasonMaximumReached}
	case r.TimeLimit > 0 && s.Elapsed >= r.TimeLimit:
		return Decision{Stop: true, Reason: ReasonTimeLimitExceeded}
	case r.TargetSE > 0 && s.SE <= r.TargetSE:
		return Decision{Stop: true, Reason: ReasonPrecisionAchieved}
	case r.MaxCIWidth > 0 && CIWidth(s.SE) <= r.MaxCIWidth:
		return Decision{Stop: true, Reason: ReasonConfidenceNarrow}
	}
	return Decision{Stop: false, Reason: ReasonContinue}
}
