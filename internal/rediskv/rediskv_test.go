package rediskv

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

// connectTest connects to ADAPTEST_TEST_REDIS_ADDR under a throwaway prefix.
func connectTest(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("ADAPTEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ADAPTEST_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := Connect(ctx, Config{Addr: addr, Prefix: "adaptest-test-" + uuid.NewString()})
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := c.rdb.Keys(ctx, c.prefix+":*").Result()
		if len(keys) > 0 {
			c.rdb.Del(ctx, keys...)
		}
		c.Close()
	})
	return c
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Addr: "  "}.Enabled())
	assert.True(t, Config{Addr: "localhost:6379"}.Enabled())
}

func TestConnectRequiresAddress(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.Error(t, err)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	c := connectTest(t)
	store := c.Sessions(time.Minute)
	ctx := context.Background()

	ts := &session.TestSession{
		ID:           "s-1",
		ExamineeID:   "ex-1",
		Status:       session.StatusInProgress,
		Administered: []string{"q1"},
		Theta:        0.3,
		SE:           0.9,
		Rules:        stopping.DefaultRules(),
	}
	require.NoError(t, store.Save(ctx, ts))

	got, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "ex-1", got.ExamineeID)
	pending, _ := got.Pending()
	assert.Equal(t, "q1", pending)
	assert.Equal(t, ts.Rules, got.Rules)

	ttl, err := c.rdb.TTL(ctx, c.key("session", "s-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Load(ctx, "s-1")
	var nf *session.ErrSessionNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestLedgerRate(t *testing.T) {
	c := connectTest(t)
	l := c.Ledger(time.Hour)
	ctx := context.Background()

	rate, err := l.Rate(ctx, "q1")
	require.NoError(t, err)
	assert.Zero(t, rate)

	for _, id := range []string{"q1", "q2", "q1", "q1"} {
		_, err := l.Increment(ctx, id)
		require.NoError(t, err)
	}
	rate, err = l.Rate(ctx, "q1")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, rate, 1e-12)

	// Moving the clock into the next window starts fresh counters.
	l.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	rate, err = l.Rate(ctx, "q1")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestLedgerConcurrentIncrements(t *testing.T) {
	c := connectTest(t)
	l := c.Ledger(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Increment(ctx, "q1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := l.Increment(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, int64(21), n)
}
