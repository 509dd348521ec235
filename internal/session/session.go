// Package session runs adaptive test sessions: it owns the per-session
// state machine and coordinates the estimator, the item selector and the
// stopping rules against pluggable stores.
package session

import (
	"slices"
	"time"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/irt"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/stopping"
)

// Status is the lifecycle state of a TestSession.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Response is one answered item. Responses are append-only.
type Response struct {
	ItemID      string        `json:"item_id"`
	Params      irt.Params    `json:"params"`
	Subjects    []string      `json:"subjects,omitempty"`
	Raw         string        `json:"raw"`
	Correct     bool          `json:"correct"`
	Latency     time.Duration `json:"latency"`
	ThetaBefore float64       `json:"theta_before"`
	ThetaAfter  float64       `json:"theta_after"`
	SEBefore    float64       `json:"se_before"`
	SEAfter     float64       `json:"se_after"`
	Fallback    bool          `json:"fallback,omitempty"`
	AnsweredAt  time.Time     `json:"answered_at"`
}

// TestSession is the state of one examinee's adaptive test.
type TestSession struct {
	ID         string `json:"id"`
	ExamineeID string `json:"examinee_id"`
	Status     Status `json:"status"`

	// Administered lists issued item ids in order. When it is one longer
	// than Responses, its last entry is the pending item.
	Administered []string   `json:"administered"`
	Responses    []Response `json:"responses"`

	Theta      float64 `json:"theta"`
	SE         float64 `json:"se"`
	PriorTheta float64 `json:"prior_theta"`
	PriorSE    float64 `json:"prior_se"`

	Constraints selector.Constraints `json:"constraints"`
	Rules       stopping.Rules       `json:"rules"`
	Relaxed     bool                 `json:"relaxed,omitempty"`

	StartedAt time.Time       `json:"started_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	EndedAt   time.Time       `json:"ended_at,omitzero"`
	Reason    stopping.Reason `json:"reason,omitempty"`
}

var transitions = map[Status][]Status{
	StatusCreated:    {StatusInProgress, StatusCompleted, StatusAborted},
	StatusInProgress: {StatusCompleted, StatusAborted},
}

// transition moves the session to the next status. Terminal states are final.
func (s *TestSession) transition(to Status) error {
	if !slices.Contains(transitions[s.Status], to) {
		return &ErrInvalidTransition{From: s.Status, To: to}
	}
	s.Status = to
	return nil
}

// Pending returns the issued but unanswered item, if any.
func (s *TestSession) Pending() (string, bool) {
	if len(s.Administered) == len(s.Responses)+1 {
		return s.Administered[len(s.Administered)-1], true
	}
	return "", false
}

// Answered reports whether itemID already has a response.
func (s *TestSession) Answered(itemID string) bool {
	return slices.ContainsFunc(s.Responses, func(r Response) bool { return r.ItemID == itemID })
}

// Elapsed returns the wall time since the session started.
func (s *TestSession) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// Correct counts correct responses.
func (s *TestSession) Correct() int {
	n := 0
	for _, r := range s.Responses {
		if r.Correct {
			n++
		}
	}
	return n
}

// Observations returns the full response history in estimator form.
func (s *TestSession) Observations() []estimate.Observation {
	obs := make([]estimate.Observation, len(s.Responses))
	for i, r := range s.Responses {
		obs[i] = estimate.Observation{Params: r.Params, Correct: r.Correct}
	}
	return obs
}

// SubjectCounts tallies responses by primary subject.
func (s *TestSession) SubjectCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Responses {
		if len(r.Subjects) > 0 {
			counts[r.Subjects[0]]++
		}
	}
	return counts
}
