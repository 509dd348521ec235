package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/adaptest/internal/estimate"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/logger"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/stopping"
)

// Delivery is an item issued to the examinee.
type Delivery struct {
	SessionID string
	Sequence  int // 1-based position in the test
	Content   itembank.Content
	Theta     float64
	SE        float64

	// Redelivered is set when the item was already pending.
	Redelivered    bool
	ExposureWaived bool
}

// Next is the outcome of NextItem: exactly one of Item and Final is set.
type Next struct {
	Item  *Delivery
	Final *Result
}

// Submission is the outcome of Submit.
type Submission struct {
	Correct  bool
	Theta    float64
	SE       float64
	Answered int
	Fallback bool
}

// Controller drives adaptive test sessions. It is safe for concurrent use;
// operations on the same session are serialized.
type Controller struct {
	deps      Deps
	cfg       Config
	estimator estimate.Estimator
	selector  *selector.Selector
	locks     *keyedMutex
	log       *logger.Logger
}

// NewController wires a controller. Missing optional collaborators are
// replaced by in-memory or no-op versions.
func NewController(deps Deps, cfg Config, est estimate.Estimator, sel *selector.Selector) *Controller {
	if deps.Profiles == nil {
		deps.Profiles = NewMemoryProfiles()
	}
	if deps.Results == nil {
		deps.Results = DiscardResults{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Controller{
		deps:      deps,
		cfg:       cfg,
		estimator: est,
		selector:  sel,
		locks:     newKeyedMutex(),
		log:       deps.Logger.With("component", "session"),
	}
}

// Start creates a session for examineeID, seeded with the examinee's prior
// ability when one is known, and returns its id.
func (c *Controller) Start(ctx context.Context, examineeID string, tc TestConfig) (string, error) {
	rules := tc.Rules
	if rules == (stopping.Rules{}) {
		rules = c.cfg.Rules
	}
	if err := rules.Validate(); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	constraints := tc.Constraints
	if constraints.IsZero() {
		constraints = c.cfg.Constraints
	}

	prior := Ability{Theta: c.cfg.DefaultTheta, SE: c.cfg.DefaultSE}
	if stored, ok, err := c.deps.Profiles.PriorAbility(ctx, examineeID); err != nil {
		return "", fmt.Errorf("load prior ability: %w", err)
	} else if ok && stored.SE > 0 {
		prior = stored
	}

	now := c.deps.Now()
	s := &TestSession{
		ID:           c.deps.NewID(),
		ExamineeID:   examineeID,
		Status:       StatusCreated,
		Administered: []string{},
		Responses:    []Response{},
		Theta:        prior.Theta,
		SE:           prior.SE,
		PriorTheta:   prior.Theta,
		PriorSE:      prior.SE,
		Constraints:  constraints,
		Rules:        rules,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.transition(StatusInProgress); err != nil {
		return "", err
	}
	if err := c.deps.Store.Save(ctx, s); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	c.log.Info("session started",
		"session_id", s.ID,
		"examinee_id", examineeID,
		"prior_theta", prior.Theta,
		"prior_se", prior.SE,
	)
	return s.ID, nil
}

// NextItem returns the next item for the session, or the final result if a
// stopping rule fires or the item pool is exhausted. A pending item is
// delivered again rather than replaced.
//
// The item's exposure is counted only after its content was fetched. If the
// session save fails after that, the serve stays counted although the
// examinee never saw the item.
func (c *Controller) NextItem(ctx context.Context, sessionID string) (*Next, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if pending, ok := s.Pending(); ok {
		d, err := c.deliver(ctx, s, pending)
		if err != nil {
			return nil, err
		}
		d.Redelivered = true
		return &Next{Item: d}, nil
	}

	now := c.deps.Now()
	decision := stopping.Evaluate(s.Rules, stopping.State{
		Answered: len(s.Responses),
		Elapsed:  s.Elapsed(now),
		SE:       s.SE,
	})
	if decision.Stop {
		res, err := c.finalize(ctx, s, StatusCompleted, decision.Reason)
		if err != nil {
			return nil, err
		}
		return &Next{Final: res}, nil
	}

	sel, err := c.selectItem(ctx, s)
	var noItems *selector.ErrNoEligibleItems
	if errors.As(err, &noItems) {
		c.log.Info("item pool exhausted", "session_id", s.ID, "answered", len(s.Responses))
		res, err := c.finalize(ctx, s, StatusCompleted, stopping.ReasonItemPoolExhausted)
		if err != nil {
			return nil, err
		}
		return &Next{Final: res}, nil
	}
	if err != nil {
		return nil, err
	}

	s.Administered = append(s.Administered, sel.Item.ID)
	s.UpdatedAt = now
	d, err := c.deliver(ctx, s, sel.Item.ID)
	if err != nil {
		return nil, err
	}
	d.ExposureWaived = sel.ExposureWaived
	if err := c.selector.Commit(ctx, sel); err != nil {
		return nil, err
	}
	if err := c.deps.Store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Next{Item: d}, nil
}

// selectItem asks the selector for an item, relaxing the session's
// constraints once if nothing matches them.
func (c *Controller) selectItem(ctx context.Context, s *TestSession) (*selector.Selection, error) {
	req := selector.Request{
		Theta:         s.Theta,
		Exclude:       s.Administered,
		Constraints:   s.Constraints,
		SubjectCounts: s.SubjectCounts(),
		Answered:      len(s.Responses),
	}
	sel, err := c.selector.Choose(ctx, req)
	var noItems *selector.ErrNoEligibleItems
	if !errors.As(err, &noItems) || !c.cfg.RelaxOnExhaustion || s.Relaxed {
		return sel, err
	}

	s.Relaxed = true
	s.Constraints = s.Constraints.Relaxed()
	req.Constraints = s.Constraints
	c.log.Info("relaxing constraints", "session_id", s.ID, "answered", len(s.Responses))
	return c.selector.Choose(ctx, req)
}

func (c *Controller) deliver(ctx context.Context, s *TestSession, itemID string) (*Delivery, error) {
	content, err := c.deps.Items.Content(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item content: %w", err)
	}
	return &Delivery{
		SessionID: s.ID,
		Sequence:  len(s.Administered),
		Content:   content,
		Theta:     s.Theta,
		SE:        s.SE,
	}, nil
}

// Submit grades a response to the pending item and re-estimates ability
// over the whole response history.
func (c *Controller) Submit(ctx context.Context, sessionID, itemID, raw string, latency time.Duration) (*Submission, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Answered(itemID) {
		return nil, &ErrItemAlreadyAnswered{SessionID: s.ID, ItemID: itemID}
	}
	if pending, ok := s.Pending(); !ok || pending != itemID {
		return nil, &ErrItemNotIssued{SessionID: s.ID, ItemID: itemID}
	}

	item, err := c.deps.Items.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	correct, err := c.deps.Evaluator.Evaluate(ctx, item, raw)
	if err != nil {
		return nil, fmt.Errorf("evaluate response: %w", err)
	}

	resp := Response{
		ItemID:      item.ID,
		Params:      item.Params(),
		Subjects:    item.Subjects,
		Raw:         raw,
		Correct:     correct,
		Latency:     latency,
		ThetaBefore: s.Theta,
		SEBefore:    s.SE,
		AnsweredAt:  c.deps.Now(),
	}
	s.Responses = append(s.Responses, resp)

	est := c.estimator.Estimate(s.Observations(), estimate.Prior{Mean: s.PriorTheta, SD: s.PriorSE}, s.Theta)
	switch {
	case est.Fallback:
		c.log.Warn("ability estimate did not converge, keeping previous estimate",
			"session_id", s.ID, "method", c.estimator.Method(), "iterations", est.Iterations, "theta", est.Theta)
	case est.Clamped:
		c.log.Warn("ability estimate clamped to bound",
			"session_id", s.ID, "method", c.estimator.Method(), "theta", est.Theta)
	}

	last := &s.Responses[len(s.Responses)-1]
	last.ThetaAfter = est.Theta
	last.SEAfter = est.SE
	last.Fallback = est.Fallback
	s.Theta = est.Theta
	s.SE = est.SE
	s.UpdatedAt = resp.AnsweredAt

	if err := c.deps.Store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	c.log.Debug("response recorded",
		"session_id", s.ID, "item_id", item.ID, "correct", correct, "theta", est.Theta, "se", est.SE)
	return &Submission{
		Correct:  correct,
		Theta:    est.Theta,
		SE:       est.SE,
		Answered: len(s.Responses),
		Fallback: est.Fallback,
	}, nil
}

// End finishes the session early. ReasonAborted marks it aborted; any other
// reason, including empty, completes it with ReasonExamineeEnded as default.
func (c *Controller) End(ctx context.Context, sessionID string, reason stopping.Reason) (*Result, error) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	status := StatusCompleted
	switch reason {
	case "":
		reason = stopping.ReasonExamineeEnded
	case stopping.ReasonAborted:
		status = StatusAborted
	}
	return c.finalize(ctx, s, status, reason)
}

func (c *Controller) load(ctx context.Context, sessionID string) (*TestSession, error) {
	s, err := c.deps.Store.Load(ctx, sessionID)
	if err != nil {
		var nf *ErrSessionNotFound
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.Status.Terminal() {
		return nil, &ErrSessionClosed{SessionID: s.ID, Status: s.Status}
	}
	return s, nil
}

// finalize closes the session, stores the examinee's new ability, archives
// the result and evicts the live session. The live session is left intact
// if any step fails so the caller can retry.
func (c *Controller) finalize(ctx context.Context, s *TestSession, status Status, reason stopping.Reason) (*Result, error) {
	if err := s.transition(status); err != nil {
		return nil, err
	}
	s.Reason = reason
	s.EndedAt = c.deps.Now()
	s.UpdatedAt = s.EndedAt
	// An unanswered pending item is not part of the record.
	if _, ok := s.Pending(); ok {
		s.Administered = s.Administered[:len(s.Responses)]
	}
	res := BuildResult(s)

	if len(s.Responses) > 0 {
		if err := c.deps.Profiles.SetAbility(ctx, s.ExamineeID, Ability{Theta: s.Theta, SE: s.SE}); err != nil {
			return nil, fmt.Errorf("save ability: %w", err)
		}
	}
	if err := c.deps.Results.Archive(ctx, res); err != nil {
		return nil, fmt.Errorf("archive result: %w", err)
	}
	if err := c.deps.Store.Delete(ctx, s.ID); err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}

	c.log.Info("session ended",
		"session_id", s.ID,
		"status", status,
		"reason", reason,
		"answered", res.Answered,
		"theta", res.Theta,
		"se", res.SE,
	)
	return res, nil
}
