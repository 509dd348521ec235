package store

import (
	"context"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter assigns one increasing sequence number across archived
// results, response events and LLM events so rows from different tables
// can be ordered against each other.
//
// The mutex serializes within the process; UPDATE ... RETURNING makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	s  *Store
}

// newSequenceCounter seeds the counter row if it does not exist yet.
func newSequenceCounter(ctx context.Context, s *Store) (*sequenceCounter, error) {
	query, args := s.build().Insert(sequenceTable.Name).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{s: s}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, ex execer) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	query, args := sc.s.build().Update(sequenceTable.Name).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1)).
		Returning("next_val").
		Query()
	var next int64
	if err := ex.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next - 1, nil
}
