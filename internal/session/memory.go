package session

import (
	"context"
	"sync"
	"time"
)

type storedSession struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store. Sessions are kept serialized so a
// loaded session never aliases a caller's copy.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]storedSession
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store whose entries expire ttl after their last
// save. A zero ttl keeps entries forever. A nil now uses time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, sessions: make(map[string]storedSession)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*TestSession, error) {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok && m.expired(entry) {
		delete(m.sessions, sessionID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, &ErrSessionNotFound{SessionID: sessionID}
	}
	return Unmarshal(entry.data)
}

func (m *MemoryStore) Save(_ context.Context, s *TestSession) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	entry := storedSession{data: data}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sessions[s.ID] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// PurgeExpired drops expired sessions and returns how many were removed.
func (m *MemoryStore) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, entry := range m.sessions {
		if m.expired(entry) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(e storedSession) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

// MemoryProfiles is an in-process ProfileStore.
type MemoryProfiles struct {
	mu        sync.RWMutex
	abilities map[string]Ability
}

var _ ProfileStore = (*MemoryProfiles)(nil)

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{abilities: make(map[string]Ability)}
}

func (p *MemoryProfiles) PriorAbility(_ context.Context, examineeID string) (Ability, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.abilities[examineeID]
	return a, ok, nil
}

func (p *MemoryProfiles) SetAbility(_ context.Context, examineeID string, a Ability) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abilities[examineeID] = a
	return nil
}

// MemoryResults keeps archived results in order.
type MemoryResults struct {
	mu      sync.Mutex
	results []*Result
}

var _ ResultSink = (*MemoryResults)(nil)

func (r *MemoryResults) Archive(_ context.Context, res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

// All returns the archived results.
func (r *MemoryResults) All() []*Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Result, len(r.results))
	copy(out, r.results)
	return out
}

// DiscardResults drops archived results.
type DiscardResults struct{}

func (DiscardResults) Archive(context.Context, *Result) error { return nil }
