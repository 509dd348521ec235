package session

import (
	"context"
	"time"

	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/logger"
)

// Store persists live sessions. Load returns *ErrSessionNotFound for
// unknown or expired ids. Implementations expire entries after a TTL.
type Store interface {
	Load(ctx context.Context, sessionID string) (*TestSession, error)
	Save(ctx context.Context, s *TestSession) error
	Delete(ctx context.Context, sessionID string) error
}

// Evaluator grades a raw response against an item.
type Evaluator interface {
	Evaluate(ctx context.Context, item itembank.Item, raw string) (bool, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, item itembank.Item, raw string) (bool, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, item itembank.Item, raw string) (bool, error) {
	return f(ctx, item, raw)
}

// Ability is an ability estimate with its standard error.
type Ability struct {
	Theta float64 `json:"theta"`
	SE    float64 `json:"se"`
}

// ProfileStore holds each examinee's last known ability.
type ProfileStore interface {
	// PriorAbility returns the stored estimate; ok is false for new examinees.
	PriorAbility(ctx context.Context, examineeID string) (a Ability, ok bool, err error)
	SetAbility(ctx context.Context, examineeID string, a Ability) error
}

// ResultSink receives finished sessions.
type ResultSink interface {
	Archive(ctx context.Context, r *Result) error
}

// Deps are the collaborators of a Controller. Items, Store and Evaluator
// are required; the rest default to in-memory or no-op versions.
type Deps struct {
	Items     itembank.Repository
	Store     Store
	Evaluator Evaluator
	Profiles  ProfileStore
	Results   ResultSink
	Logger    *logger.Logger

	// Now and NewID are injectable for tests.
	Now   func() time.Time
	NewID func() string
}
