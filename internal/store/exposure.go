package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptest/internal/exposure"
)

// ExposureRepo is a persistent exposure.Ledger. Counts are kept per item
// per window; a new window starts from zero.
type ExposureRepo struct {
	s      *Store
	window time.Duration

	// mu orders increments from this process so the returned counts are
	// consistent with each other.
	mu sync.Mutex
}

var _ exposure.Ledger = (*ExposureRepo)(nil)

func newExposureRepo(s *Store, window time.Duration) *ExposureRepo {
	if window <= 0 {
		window = exposure.DefaultWindow
	}
	return &ExposureRepo{s: s, window: window}
}

func (r *ExposureRepo) windowStart() int64 {
	return r.s.now().Truncate(r.window).UnixMilli()
}

// Increment records one serve of itemID and returns its count in the
// current window.
func (r *ExposureRepo) Increment(ctx context.Context, itemID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query, args := r.s.build().Insert(exposuresTable.Name).
		Columns("item_id", "window_start", "served").
		Values(itemID, r.windowStart(), 1).
		OnConflict(
			entsql.ConflictColumns("item_id", "window_start"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("served", 1)
			}),
		).
		Returning("served").
		Query()
	var served int64
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&served); err != nil {
		return 0, fmt.Errorf("increment exposure %q: %w", itemID, err)
	}
	return served, nil
}

// Rate returns itemID's share of all serves in the current window.
func (r *ExposureRepo) Rate(ctx context.Context, itemID string) (float64, error) {
	start := r.windowStart()
	total, err := r.total(ctx, start)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	served, err := r.served(ctx, itemID, start)
	if err != nil {
		return 0, err
	}
	return float64(served) / float64(total), nil
}

// Snapshot returns the per-item counts and their total for the current window.
func (r *ExposureRepo) Snapshot(ctx context.Context) (map[string]int64, int64, error) {
	b := r.s.build()
	query, args := b.Select("item_id", "served").
		From(b.Table(exposuresTable.Name)).
		Where(entsql.EQ("window_start", r.windowStart())).
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("exposure snapshot: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	var total int64
	for rows.Next() {
		var (
			id     string
			served int64
		)
		if err := rows.Scan(&id, &served); err != nil {
			return nil, 0, fmt.Errorf("scan exposure: %w", err)
		}
		counts[id] = served
		total += served
	}
	return counts, total, rows.Err()
}

// Prune deletes counters from windows before the current one.
func (r *ExposureRepo) Prune(ctx context.Context) (int64, error) {
	query, args := r.s.build().Delete(exposuresTable.Name).
		Where(entsql.LT("window_start", r.windowStart())).
		Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune exposure: %w", err)
	}
	return res.RowsAffected()
}

func (r *ExposureRepo) served(ctx context.Context, itemID string, start int64) (int64, error) {
	b := r.s.build()
	query, args := b.Select("served").
		From(b.Table(exposuresTable.Name)).
		Where(entsql.And(entsql.EQ("item_id", itemID), entsql.EQ("window_start", start))).
		Query()
	var served int64
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&served)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("exposure of %q: %w", itemID, err)
	}
	return served, nil
}

func (r *ExposureRepo) total(ctx context.Context, start int64) (int64, error) {
	b := r.s.build()
	query, args := b.Select("COALESCE(SUM(served), 0)").
		From(b.Table(exposuresTable.Name)).
		Where(entsql.EQ("window_start", start)).
		Query()
	var total int64
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("exposure total: %w", err)
	}
	return total, nil
}
