package selector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/itembank"
)

func item(id string, a, b float64, subject string) itembank.Item {
	return itembank.Item{ID: id, A: a, B: b, Subjects: []string{subject}, Status: itembank.StatusPublished}
}

func pool(n int) []itembank.Item {
	items := make([]itembank.Item, n)
	for i := range items {
		b := -2 + 4*float64(i)/float64(n-1)
		items[i] = item(fmt.Sprintf("q%02d", i), 1.2, b, "algebra")
	}
	return items
}

func ids(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Item.ID
	}
	return out
}

func TestRank_MaxInfo(t *testing.T) {
	items := []itembank.Item{
		item("far", 1, 3, "algebra"),
		item("near", 1, 0.1, "algebra"),
		item("mid", 1, 1, "algebra"),
	}
	ranked := Rank(0, items, DefaultConfig(), BalanceContext{})
	assert.Equal(t, []string{"near", "mid", "far"}, ids(ranked))
	assert.Equal(t, ranked[0].Information, ranked[0].Score)
}

func TestRank_TiesBreakOnID(t *testing.T) {
	items := []itembank.Item{item("b", 1, 0.5, "x"), item("a", 1, 0.5, "x")}
	ranked := Rank(0, items, DefaultConfig(), BalanceContext{})
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
}

func TestRank_OwenPrefersLaggingSubject(t *testing.T) {
	items := []itembank.Item{item("a1", 1, -0.8, "algebra"), item("g1", 1, 1, "geometry")}
	bc := BalanceContext{
		SubjectCounts: map[string]int{"algebra": 2},
		Answered:      2,
		TargetMix:     map[string]float64{"algebra": 0.5, "geometry": 0.5},
	}

	cfg := DefaultConfig()
	assert.Equal(t, []string{"a1", "g1"}, ids(Rank(0, items, cfg, bc)))

	cfg.Strategy = StrategyOwen
	ranked := Rank(0, items, cfg, bc)
	assert.Equal(t, []string{"g1", "a1"}, ids(ranked))
	assert.InDelta(t, 0.75, ranked[0].Balance, 1e-9)
	assert.Less(t, ranked[0].Information, ranked[1].Information)
}

func TestRank_OwenBlendsRawInformation(t *testing.T) {
	// At θ=0 "sharp" carries 0.16 information against 0.037 for "easy-far",
	// but "easy-far" sits on the target difficulty. The raw blend ranks it
	// first; scaling information by the pool maximum would not.
	target := 3.0
	items := []itembank.Item{item("sharp", 0.8, 0, "algebra"), item("easy-far", 0.5, 3, "algebra")}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyOwen

	ranked := Rank(0, items, cfg, BalanceContext{TargetDifficulty: &target})
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"easy-far", "sharp"}, ids(ranked))

	for _, s := range ranked {
		want := cfg.InfoWeight*s.Information + cfg.BalanceWeight*s.Balance
		assert.InDelta(t, want, s.Score, 1e-12, s.Item.ID)
	}
	assert.InDelta(t, 0.2995, ranked[1].Score, 1e-4)
	assert.InDelta(t, 0.3261, ranked[0].Score, 1e-4)
}

func TestContentBalanceScore(t *testing.T) {
	target := 2.0
	tests := []struct {
		name string
		item itembank.Item
		bc   BalanceContext
		want float64
	}{
		{"no mix at theta", item("x", 1, 0, "algebra"), BalanceContext{}, 1},
		{"no mix one away", item("x", 1, 1, "algebra"), BalanceContext{}, 0.75},
		{"target difficulty", item("x", 1, 2, "algebra"), BalanceContext{TargetDifficulty: &target}, 1},
		{"subject not in mix", item("x", 1, 0, "art"), BalanceContext{TargetMix: map[string]float64{"algebra": 1}}, 0.5},
		{"subject at target", item("x", 1, 0, "algebra"), BalanceContext{
			TargetMix: map[string]float64{"algebra": 0.5}, SubjectCounts: map[string]int{"algebra": 1}, Answered: 2,
		}, 0.5},
		{"subject half way", item("x", 1, 0, "algebra"), BalanceContext{
			TargetMix: map[string]float64{"algebra": 0.5}, SubjectCounts: map[string]int{"algebra": 1}, Answered: 4,
		}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ContentBalanceScore(tt.item, tt.bc), 1e-9)
		})
	}
}

func TestPick(t *testing.T) {
	ranked := Rank(0, pool(5), DefaultConfig(), BalanceContext{})
	rng := rand.New(rand.NewPCG(1, 2))

	t.Run("top one is the best", func(t *testing.T) {
		got, waived, err := Pick(ranked, func(string) (float64, error) { return 0, nil }, 0.3, 1, rng)
		require.NoError(t, err)
		assert.False(t, waived)
		assert.Equal(t, ranked[0].Item.ID, got.Item.ID)
	})

	t.Run("skips over exposed", func(t *testing.T) {
		hot := ranked[0].Item.ID
		rate := func(id string) (float64, error) {
			if id == hot {
				return 0.9, nil
			}
			return 0.1, nil
		}
		for range 50 {
			got, waived, err := Pick(ranked, rate, 0.3, 3, rng)
			require.NoError(t, err)
			assert.False(t, waived)
			assert.NotEqual(t, hot, got.Item.ID)
			assert.Contains(t, ids(ranked[1:4]), got.Item.ID)
		}
	})

	t.Run("waives when all exposed", func(t *testing.T) {
		got, waived, err := Pick(ranked, func(string) (float64, error) { return 1, nil }, 0.3, 3, rng)
		require.NoError(t, err)
		assert.True(t, waived)
		assert.Contains(t, ids(ranked[:3]), got.Item.ID)
	})

	t.Run("rate error", func(t *testing.T) {
		_, _, err := Pick(ranked, func(string) (float64, error) { return 0, errors.New("down") }, 0.3, 3, rng)
		assert.Error(t, err)
	})

	t.Run("empty ranking", func(t *testing.T) {
		got, waived, err := Pick(nil, nil, 0.3, 3, rng)
		require.NoError(t, err)
		assert.False(t, waived)
		assert.Empty(t, got.Item.ID)
	})
}

func TestSelector_NeverRepeats(t *testing.T) {
	ctx := context.Background()
	items := pool(20)
	sel := New(itembank.NewMemoryRepository(items...), exposure.NewMemory(), DefaultConfig(),
		WithSource(rand.NewPCG(7, 7)))

	var administered []string
	for range items {
		got, err := sel.Next(ctx, Request{Theta: 0.3, Exclude: administered})
		require.NoError(t, err)
		assert.NotContains(t, administered, got.Item.ID)
		administered = append(administered, got.Item.ID)
	}

	_, err := sel.Next(ctx, Request{Theta: 0.3, Exclude: administered})
	var noItems *ErrNoEligibleItems
	require.True(t, errors.As(err, &noItems))
	assert.Equal(t, 20, noItems.Excluded)
}

// leakyRepository ignores the exclude list.
type leakyRepository struct {
	*itembank.MemoryRepository
}

func (r leakyRepository) QueryCandidates(ctx context.Context, f itembank.Filter, _ []string) ([]itembank.Item, error) {
	return r.MemoryRepository.QueryCandidates(ctx, f, nil)
}

func TestSelector_DropsExcludedEvenIfRepositoryReturnsThem(t *testing.T) {
	ctx := context.Background()
	repo := leakyRepository{itembank.NewMemoryRepository(pool(3)...)}
	sel := New(repo, exposure.NewMemory(), DefaultConfig(), WithSource(rand.NewPCG(1, 1)))

	got, err := sel.Next(ctx, Request{Exclude: []string{"q00", "q01"}})
	require.NoError(t, err)
	assert.Equal(t, "q02", got.Item.ID)
}

func TestSelector_ExposureCeilingHolds(t *testing.T) {
	ctx := context.Background()
	items := pool(10)
	ledger := exposure.NewMemory()
	cfg := DefaultConfig()
	sel := New(itembank.NewMemoryRepository(items...), ledger, cfg, WithSource(rand.NewPCG(42, 42)))

	for run := range 1000 {
		rates := make(map[string]float64, len(items))
		allOver := true
		for _, it := range items {
			r, err := ledger.Rate(ctx, it.ID)
			require.NoError(t, err)
			rates[it.ID] = r
			if r <= cfg.ExposureCeiling {
				allOver = false
			}
		}

		got, err := sel.Next(ctx, Request{Theta: 0})
		require.NoError(t, err)
		if !allOver {
			assert.LessOrEqual(t, rates[got.Item.ID], cfg.ExposureCeiling, "run %d picked %s", run, got.Item.ID)
			assert.False(t, got.ExposureWaived)
		}
	}

	counts, total := ledger.Snapshot()
	assert.Equal(t, int64(1000), total)
	for id, c := range counts {
		assert.LessOrEqual(t, float64(c)/float64(total), cfg.ExposureCeiling+0.01, id)
	}
}

func TestSelector_WaivesWhenOnlyExposedRemain(t *testing.T) {
	ctx := context.Background()
	ledger := exposure.NewMemory()
	_, _ = ledger.Increment(ctx, "q00")
	sel := New(itembank.NewMemoryRepository(pool(2)...), ledger, DefaultConfig(), WithSource(rand.NewPCG(3, 3)))

	got, err := sel.Next(ctx, Request{Exclude: []string{"q01"}})
	require.NoError(t, err)
	assert.Equal(t, "q00", got.Item.ID)
	assert.True(t, got.ExposureWaived)
	assert.Equal(t, int64(2), got.Served)
}

func TestSelector_ChooseLeavesLedgerUntilCommit(t *testing.T) {
	ctx := context.Background()
	ledger := exposure.NewMemory()
	sel := New(itembank.NewMemoryRepository(pool(3)...), ledger, DefaultConfig(), WithSource(rand.NewPCG(5, 5)))

	got, err := sel.Choose(ctx, Request{})
	require.NoError(t, err)
	assert.Zero(t, got.Served)
	_, total := ledger.Snapshot()
	assert.Zero(t, total)

	require.NoError(t, sel.Commit(ctx, got))
	assert.Equal(t, int64(1), got.Served)
	counts, total := ledger.Snapshot()
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), counts[got.Item.ID])
}

type brokenLedger struct{}

func (brokenLedger) Rate(context.Context, string) (float64, error) { return 0, errors.New("ledger down") }
func (brokenLedger) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("ledger down")
}

func TestSelector_LedgerErrorIsReturned(t *testing.T) {
	sel := New(itembank.NewMemoryRepository(pool(3)...), brokenLedger{}, DefaultConfig())
	_, err := sel.Next(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger down")
}

func TestConstraints(t *testing.T) {
	lo := -1.0
	c := Constraints{
		Subjects:      []string{"algebra"},
		Grades:        []int{5},
		MinDifficulty: &lo,
		TargetMix:     map[string]float64{"algebra": 1},
	}
	f := c.Filter()
	assert.Equal(t, []string{"algebra"}, f.Subjects)
	assert.Equal(t, []int{5}, f.Grades)
	assert.Equal(t, &lo, f.MinDifficulty)

	r := c.Relaxed()
	assert.Equal(t, []string{"algebra"}, r.Subjects)
	assert.Empty(t, r.Grades)
	assert.Nil(t, r.MinDifficulty)
	assert.Equal(t, c.TargetMix, r.TargetMix)
	assert.False(t, r.IsZero())
	assert.True(t, Constraints{}.IsZero())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"owen", func(c *Config) { c.Strategy = StrategyOwen }, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "greedy" }, true},
		{"zero ceiling", func(c *Config) { c.ExposureCeiling = 0 }, true},
		{"ceiling above one", func(c *Config) { c.ExposureCeiling = 1.5 }, true},
		{"zero k", func(c *Config) { c.TopK = 0 }, true},
		{"negative weight", func(c *Config) { c.InfoWeight = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
