// Package selector chooses the next item for an examinee: candidates are
// ranked by information (optionally blended with content balance),
// over-exposed items are filtered out, and one of the best few is drawn at
// random.
package selector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/itembank"
)

// Request describes the session state a selection is made for.
type Request struct {
	Theta       float64
	Exclude     []string
	Constraints Constraints

	SubjectCounts map[string]int
	Answered      int
}

// Selection is the chosen item.
type Selection struct {
	Item           itembank.Item
	Score          float64
	Information    float64
	ExposureWaived bool
	Served         int64
}

// Selector picks items from a repository under exposure control.
type Selector struct {
	repo   itembank.Repository
	ledger exposure.Ledger
	cfg    Config
	rng    *rand.Rand
}

// lockedSource makes a rand.Source safe for concurrent selections.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

// Option configures a Selector.
type Option func(*Selector)

// WithSource sets the random source used for the top-k draw.
func WithSource(src rand.Source) Option {
	return func(s *Selector) { s.rng = rand.New(&lockedSource{src: src}) }
}

// New returns a selector over repo and ledger.
func New(repo itembank.Repository, ledger exposure.Ledger, cfg Config, opts ...Option) *Selector {
	s := &Selector{repo: repo, ledger: ledger, cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(&lockedSource{src: rand.NewPCG(seed, seed>>1)})
	}
	return s
}

// Config returns the selector's configuration.
func (s *Selector) Config() Config { return s.cfg }

// Next selects an item and records its exposure.
func (s *Selector) Next(ctx context.Context, req Request) (*Selection, error) {
	sel, err := s.Choose(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

// Choose ranks the eligible items and picks one without touching the
// exposure counts. Call Commit once the item has actually been served.
func (s *Selector) Choose(ctx context.Context, req Request) (*Selection, error) {
	filter := req.Constraints.Filter()
	candidates, err := s.repo.QueryCandidates(ctx, filter, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	candidates = slices.DeleteFunc(candidates, func(it itembank.Item) bool {
		return slices.Contains(req.Exclude, it.ID)
	})
	if len(candidates) == 0 {
		return nil, &ErrNoEligibleItems{Filter: filter, Excluded: len(req.Exclude)}
	}

	ranked := Rank(req.Theta, candidates, s.cfg, BalanceContext{
		Theta:            req.Theta,
		SubjectCounts:    req.SubjectCounts,
		Answered:         req.Answered,
		TargetMix:        req.Constraints.TargetMix,
		TargetDifficulty: req.Constraints.TargetDifficulty,
	})

	rateOf := func(id string) (float64, error) {
		return s.ledger.Rate(ctx, id)
	}
	pick, waived, err := Pick(ranked, rateOf, s.cfg.ExposureCeiling, s.cfg.TopK, s.rng)
	if err != nil {
		return nil, fmt.Errorf("read exposure rate: %w", err)
	}

	return &Selection{
		Item:           pick.Item,
		Score:          pick.Score,
		Information:    pick.Information,
		ExposureWaived: waived,
	}, nil
}

// Commit records one serve of sel's item and sets sel.Served.
func (s *Selector) Commit(ctx context.Context, sel *Selection) error {
	served, err := s.ledger.Increment(ctx, sel.Item.ID)
	if err != nil {
		return fmt.Errorf("increment exposure: %w", err)
	}
	sel.Served = served
	return nil
}
