package selector

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/abhisek/adaptest/internal/irt"
	"github.com/abhisek/adaptest/internal/itembank"
)

// BalanceContext is the session state the content balance score looks at.
type BalanceContext struct {
	Theta float64

	// SubjectCounts holds responses so far per primary subject.
	SubjectCounts map[string]int
	Answered      int

	TargetMix        map[string]float64
	TargetDifficulty *float64
}

// Scored is a candidate with its selection score.
type Scored struct {
	Item        itembank.Item
	Information float64
	Balance     float64
	Score       float64
}

// Rank scores candidates at theta with cfg's strategy and sorts them best
// first. Owen's score blends raw information with the balance score:
// InfoWeight·I + BalanceWeight·balance. Ties break on item id so the order is deterministic.
func Rank(theta float64, candidates []itembank.Item, cfg Config, bc BalanceContext) []Scored {
	out := make([]Scored, len(candidates))
	for i, it := range candidates {
		out[i] = Scored{Item: it, Information: irt.Information(theta, it.Params())}
		switch cfg.Strategy {
		case StrategyOwen:
			out[i].Balance = ContentBalanceScore(it, bc)
			out[i].Score = cfg.InfoWeight*out[i].Information + cfg.BalanceWeight*out[i].Balance
		default:
			out[i].Score = out[i].Information
		}
	}

	slices.SortStableFunc(out, func(x, y Scored) int {
		if c := cmp.Compare(y.Score, x.Score); c != 0 {
			return c
		}
		return cmp.Compare(x.Item.ID, y.Item.ID)
	})
	return out
}

// ContentBalanceScore is the mean of a subject deficit score and a
// difficulty proximity score, both in [0, 1].
//
// The subject score is how far the item's primary subject lags its target
// share, relative to that share. With no target mix every item scores 1.
// Difficulty proximity is 1/(1+|b-target|) where target is TargetDifficulty
// if set, else θ̂.
func ContentBalanceScore(it itembank.Item, bc BalanceContext) float64 {
	subject := 1.0
	if len(bc.TargetMix) > 0 {
		subject = 0
		target := bc.TargetMix[it.PrimarySubject()]
		if target > 0 {
			current := 0.0
			if bc.Answered > 0 {
				current = float64(bc.SubjectCounts[it.PrimarySubject()]) / float64(bc.Answered)
			}
			subject = irt.Clamp((target-current)/target, 0, 1)
		}
	}

	target := bc.Theta
	if bc.TargetDifficulty != nil {
		target = *bc.TargetDifficulty
	}
	proximity := 1 / (1 + math.Abs(it.B-target))

	return (subject + proximity) / 2
}

// Pick walks the ranking and collects up to k candidates whose exposure
// rate does not exceed ceiling, then picks one of them uniformly. If every
// candidate is over the ceiling the filter is waived and the pick is made
// from the top k of the ranking; waived reports that case.
func Pick(ranked []Scored, rateOf func(itemID string) (float64, error), ceiling float64, k int, rng *rand.Rand) (pick Scored, waived bool, err error) {
	if len(ranked) == 0 {
		return Scored{}, false, nil
	}
	k = max(k, 1)

	pool := make([]Scored, 0, k)
	for _, s := range ranked {
		rate, err := rateOf(s.Item.ID)
		if err != nil {
			return Scored{}, false, err
		}
		if rate > ceiling {
			continue
		}
		pool = append(pool, s)
		if len(pool) == k {
			break
		}
	}
	if len(pool) == 0 {
		waived = true
		pool = ranked[:min(k, len(ranked))]
	}
	return pool[rng.IntN(len(pool))], waived, nil
}
