// Package exposure tracks how often each item has been served so the
// selector can keep any single item from being over-used.
package exposure

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the length of an exposure counting window.
const DefaultWindow = 24 * time.Hour

// Ledger counts item serves. Rate is the fraction of all serves in the
// current window that went to the item; it is 0 before anything was served.
type Ledger interface {
	Rate(ctx context.Context, itemID string) (float64, error)
	Increment(ctx context.Context, itemID string) (int64, error)
}

// Memory is an in-process Ledger. Counters reset when the window rolls over.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	start  time.Time
	counts map[string]*atomic.Int64
	total  atomic.Int64
}

var _ Ledger = (*Memory)(nil)

// Option configures a Memory ledger.
type Option func(*Memory)

// WithWindow overrides DefaultWindow. Non-positive values disable rollover.
func WithWindow(d time.Duration) Option {
	return func(m *Memory) { m.window = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory returns an empty in-memory ledger.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		window: DefaultWindow,
		now:    time.Now,
		counts: make(map[string]*atomic.Int64),
	}
	for _, o := range opts {
		o(m)
	}
	m.start = m.now()
	return m
}

// roll resets the counters if the window has elapsed.
func (m *Memory) roll() {
	if m.window <= 0 {
		return
	}
	now := m.now()
	m.mu.RLock()
	expired := now.Sub(m.start) >= m.window
	m.mu.RUnlock()
	if !expired {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.start) < m.window {
		return
	}
	m.start = now
	m.counts = make(map[string]*atomic.Int64)
	m.total.Store(0)
}

func (m *Memory) Rate(_ context.Context, itemID string) (float64, error) {
	m.roll()
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := m.total.Load()
	if total == 0 {
		return 0, nil
	}
	c, ok := m.counts[itemID]
	if !ok {
		return 0, nil
	}
	return float64(c.Load()) / float64(total), nil
}

// Increment bumps the item's counter and the total while holding mu, so a
// rollover cannot land between the two and leave the counts out of step.
func (m *Memory) Increment(_ context.Context, itemID string) (int64, error) {
	m.roll()
	m.mu.RLock()
	if c, ok := m.counts[itemID]; ok {
		n := c.Add(1)
		m.total.Add(1)
		m.mu.RUnlock()
		return n, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[itemID]
	if !ok {
		c = new(atomic.Int64)
		m.counts[itemID] = c
	}
	n := c.Add(1)
	m.total.Add(1)
	return n, nil
}

// Snapshot returns the per-item counts and the total for the current window.
func (m *Memory) Snapshot() (map[string]int64, int64) {
	m.roll()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counts))
	for id, c := range m.counts {
		out[id] = c.Load()
	}
	return out, m.total.Load()
}

// Reset clears all counters and starts a new window.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = m.now()
	m.counts = make(map[string]*atomic.Int64)
	m.total.Store(0)
}
