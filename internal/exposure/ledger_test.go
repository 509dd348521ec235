package exposure

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RateBeforeAnyServe(t *testing.T) {
	m := NewMemory()
	rate, err := m.Rate(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestMemory_Rate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"a", "a", "a", "b"} {
		_, err := m.Increment(ctx, id)
		require.NoError(t, err)
	}

	rate, err := m.Rate(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, rate, 1e-12)

	rate, err = m.Rate(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestMemory_IncrementReturnsCount(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	n, _ := m.Increment(ctx, "a")
	assert.Equal(t, int64(1), n)
	n, _ = m.Increment(ctx, "a")
	assert.Equal(t, int64(2), n)
}

func TestMemory_WindowRollover(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(WithWindow(time.Hour), WithClock(func() time.Time { return now }))

	_, _ = m.Increment(ctx, "a")
	now = now.Add(30 * time.Minute)
	rate, _ := m.Rate(ctx, "a")
	assert.Equal(t, 1.0, rate)

	now = now.Add(31 * time.Minute)
	rate, _ = m.Rate(ctx, "a")
	assert.Zero(t, rate)

	counts, total := m.Snapshot()
	assert.Empty(t, counts)
	assert.Zero(t, total)
}

func TestMemory_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 250 {
				_, _ = m.Increment(ctx, fmt.Sprintf("item-%d", (w+i)%5))
			}
		}()
	}
	wg.Wait()

	counts, total := m.Snapshot()
	assert.Equal(t, int64(2000), total)
	var sum int64
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, total, sum)
}

func TestMemory_CountsStayConsistentAcrossRollovers(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	var frozen atomic.Bool
	clock := func() time.Time {
		if frozen.Load() {
			return base.Add(time.Duration(ticks.Load()) * time.Microsecond)
		}
		return base.Add(time.Duration(ticks.Add(1)) * time.Microsecond)
	}
	m := NewMemory(WithWindow(50*time.Microsecond), WithClock(clock))

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				n, err := m.Increment(ctx, fmt.Sprintf("item-%d", (w+i)%3))
				assert.NoError(t, err)
				assert.Positive(t, n)
			}
		}()
	}
	wg.Wait()
	frozen.Store(true)

	counts, total := m.Snapshot()
	var sum int64
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, total, sum)
	for id := range counts {
		rate, err := m.Rate(ctx, id)
		require.NoError(t, err)
		assert.LessOrEqual(t, rate, 1.0)
	}
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _ = m.Increment(ctx, "a")
	m.Reset()
	_, total := m.Snapshot()
	assert.Zero(t, total)
}
