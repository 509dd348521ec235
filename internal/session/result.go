package session

import (
	"slices"
	"time"

	"github.com/abhisek/adaptest/internal/stopping"
)

// Result is the final record of a session handed to persistence.
type Result struct {
	SessionID  string          `json:"session_id"`
	ExamineeID string          `json:"examinee_id"`
	Status     Status          `json:"status"`
	Reason     stopping.Reason `json:"reason"`

	Theta  float64 `json:"theta"`
	SE     float64 `json:"se"`
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`

	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
	Relaxed  bool    `json:"relaxed,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`

	Responses []Response `json:"responses"`
}

// BuildResult summarizes a finished session.
func BuildResult(s *TestSession) *Result {
	lo, hi := stopping.Interval(s.Theta, s.SE)
	correct := s.Correct()
	var accuracy float64
	if len(s.Responses) > 0 {
		accuracy = float64(correct) / float64(len(s.Responses))
	}
	return &Result{
		SessionID:  s.ID,
		ExamineeID: s.ExamineeID,
		Status:     s.Status,
		Reason:     s.Reason,
		Theta:      s.Theta,
		SE:         s.SE,
		CILow:      lo,
		CIHigh:     hi,
		Answered:   len(s.Responses),
		Correct:    correct,
		Accuracy:   accuracy,
		Relaxed:    s.Relaxed,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		Duration:   s.EndedAt.Sub(s.StartedAt),
		Responses:  slices.Clone(s.Responses),
	}
}
