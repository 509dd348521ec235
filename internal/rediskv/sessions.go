package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/adaptest/internal/session"
)

// SessionStore is a session.Store backed by Redis keys with a TTL.
type SessionStore struct {
	c   *Client
	ttl time.Duration
}

var _ session.Store = (*SessionStore)(nil)

// Sessions returns a session store whose entries expire ttl after their
// last save. A zero ttl keeps them until deleted.
func (c *Client) Sessions(ttl time.Duration) *SessionStore {
	return &SessionStore{c: c, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*session.TestSession, error) {
	data, err := s.c.rdb.Get(ctx, s.c.key("session", sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, &session.ErrSessionNotFound{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	return session.Unmarshal(data)
}

func (s *SessionStore) Save(ctx context.Context, ts *session.TestSession) error {
	data, err := session.Marshal(ts)
	if err != nil {
		return err
	}
	if err := s.c.rdb.Set(ctx, s.c.key("session", ts.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %q: %w", ts.ID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.c.rdb.Del(ctx, s.c.key("session", sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %q: %w", sessionID, err)
	}
	return nil
}
