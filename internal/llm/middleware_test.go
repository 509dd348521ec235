package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/adaptest/internal/logger"
	"github.com/abhisek/adaptest/internal/store"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeRecorder) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, data)
	return nil
}

// newRetry returns a retrying provider whose sleeps are recorded, not taken.
func newRetry(inner Provider, attempts int) (*retryingProvider, *[]time.Duration) {
	var waits []time.Duration
	r := &retryingProvider{
		inner: inner,
		cfg:   RetryConfig{MaxAttempts: attempts, InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2},
		sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	return r, &waits
}

func ok() MockResponse { return MockResponse{Content: json.RawMessage(`{"ok":true}`)} }

func TestRetry(t *testing.T) {
	t.Run("transient then success", func(t *testing.T) {
		m := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}, ok())
		r, waits := newRetry(m, 3)
		resp, err := r.Generate(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, string(resp.Content))
		assert.Len(t, m.Calls(), 2)
		require.Len(t, *waits, 1)
		assert.InDelta(t, float64(100*time.Millisecond), float64((*waits)[0]), float64(20*time.Millisecond))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		down := MockResponse{Err: &ErrProviderUnavailable{}}
		m := NewMockProvider(down, down, down, ok())
		r, waits := newRetry(m, 3)
		_, err := r.Generate(context.Background(), Request{})
		var unavailable *ErrProviderUnavailable
		assert.ErrorAs(t, err, &unavailable)
		assert.Len(t, m.Calls(), 3)
		assert.Len(t, *waits, 2)
	})

	t.Run("invalid response retried once", func(t *testing.T) {
		bad := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}}
		m := NewMockProvider(bad, bad, ok())
		r, _ := newRetry(m, 5)
		_, err := r.Generate(context.Background(), Request{})
		var invalid *ErrInvalidResponse
		assert.ErrorAs(t, err, &invalid)
		assert.Len(t, m.Calls(), 2)
	})

	t.Run("truncation not retried", func(t *testing.T) {
		m := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{}}, ok())
		r, _ := newRetry(m, 3)
		_, err := r.Generate(context.Background(), Request{})
		var truncated *ErrMaxTokensExceeded
		assert.ErrorAs(t, err, &truncated)
		assert.Len(t, m.Calls(), 1)
	})

	t.Run("context canceled not retried", func(t *testing.T) {
		m := NewMockProvider(MockResponse{Err: context.Canceled}, ok())
		r, _ := newRetry(m, 3)
		_, err := r.Generate(context.Background(), Request{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, m.Calls(), 1)
	})

	t.Run("honours retry-after", func(t *testing.T) {
		m := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: 3 * time.Second}}, ok())
		r, waits := newRetry(m, 3)
		_, err := r.Generate(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{3 * time.Second}, *waits)
	})

	t.Run("backoff is capped", func(t *testing.T) {
		r, _ := newRetry(nil, 3)
		for range 20 {
			d := r.backoff(10, errors.New("x"))
			assert.LessOrEqual(t, d, 1200*time.Millisecond)
			assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		}
	})
}

func TestSleepCtxCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

func TestRecording(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`{"correct":true,"rationale":"ok"}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}})
	p := WithRecording(m, "mock", rec, nil)

	ctx := WithPurpose(context.Background(), "grading")
	_, err := p.Generate(ctx, UserPrompt("be strict", "is 4 right?", verdictSchema, 32))
	require.NoError(t, err)
	_, err = p.Generate(ctx, Request{})
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	first := rec.events[0]
	assert.Equal(t, "grading", first.Purpose)
	assert.Equal(t, "mock", first.Provider)
	assert.True(t, first.Success)
	assert.Equal(t, 7, first.InputTokens)
	assert.Contains(t, first.RequestBody, "[system]\nbe strict")
	assert.Contains(t, first.RequestBody, "[schema: test-verdict]")
	assert.Equal(t, `{"correct":true,"rationale":"ok"}`, first.ResponseBody)

	assert.False(t, rec.events[1].Success)
	assert.NotEmpty(t, rec.events[1].ErrorMessage)
}

func TestRecordingFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &fakeRecorder{err: errors.New("disk full")}
	p := WithRecording(NewMockProvider(ok()), "mock", rec, logger.FromZap(zap.New(core), false))

	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	entries := logs.FilterMessage("record llm event failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].ContextMap()["purpose"])
}

func TestWithTimeout(t *testing.T) {
	m := NewMockProvider(ok())
	assert.Same(t, Provider(m), WithTimeout(m, 0))

	p := WithTimeout(providerFunc(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }
func (f providerFunc) ModelID() string                                              { return "func" }
