package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptest/internal/session"
)

// SessionRepo is a persistent session.Store. Entries expire ttl after their
// last save; a zero ttl keeps them until deleted.
type SessionRepo struct {
	s   *Store
	ttl time.Duration
}

var _ session.Store = (*SessionRepo)(nil)

func (r *SessionRepo) Load(ctx context.Context, sessionID string) (*session.TestSession, error) {
	b := r.s.build()
	query, args := b.Select("data", "expires_at").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.EQ("id", sessionID)).
		Query()
	var (
		data    []byte
		expires int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &session.ErrSessionNotFound{SessionID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	if expires > 0 && expires <= millis(r.s.now()) {
		if err := r.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, &session.ErrSessionNotFound{SessionID: sessionID}
	}
	return session.Unmarshal(data)
}

func (r *SessionRepo) Save(ctx context.Context, ts *session.TestSession) error {
	data, err := session.Marshal(ts)
	if err != nil {
		return err
	}
	now := r.s.now()
	var expires int64
	if r.ttl > 0 {
		expires = millis(now.Add(r.ttl))
	}
	query, args := r.s.build().Insert(sessionsTable.Name).
		Columns("id", "examinee_id", "status", "data", "expires_at", "updated_at").
		Values(ts.ID, ts.ExamineeID, string(ts.Status), data, expires, millis(now)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session %q: %w", ts.ID, err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	query, args := r.s.build().Delete(sessionsTable.Name).
		Where(entsql.EQ("id", sessionID)).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session %q: %w", sessionID, err)
	}
	return nil
}

// PurgeExpired removes expired sessions and returns how many were removed.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	query, args := r.s.build().Delete(sessionsTable.Name).
		Where(entsql.And(
			entsql.GT("expires_at", 0),
			entsql.LTE("expires_at", millis(r.s.now())),
		)).
		Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored sessions, expired ones included.
func (r *SessionRepo) Count(ctx context.Context) (int, error) {
	b := r.s.build()
	query, args := b.Select(entsql.Count("*")).From(b.Table(sessionsTable.Name)).Query()
	var n int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
