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

// ProfileRepo keeps each examinee's latest ability estimate. It implements
// session.ProfileStore.
type ProfileRepo struct {
	s *Store
}

var _ session.ProfileStore = (*ProfileRepo)(nil)

func (r *ProfileRepo) PriorAbility(ctx context.Context, examineeID string) (session.Ability, bool, error) {
	p, err := r.Get(ctx, examineeID)
	if err != nil || p == nil {
		return session.Ability{}, false, err
	}
	return session.Ability{Theta: p.Theta, SE: p.SE}, true, nil
}

func (r *ProfileRepo) SetAbility(ctx context.Context, examineeID string, a session.Ability) error {
	query, args := r.s.build().Insert(profilesTable.Name).
		Columns("examinee_id", "theta", "se", "tests_taken", "updated_at").
		Values(examineeID, a.Theta, a.SE, 1, millis(r.s.now())).
		OnConflict(
			entsql.ConflictColumns("examinee_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("theta")
				u.SetExcluded("se")
				u.SetExcluded("updated_at")
				u.Add("tests_taken", 1)
			}),
		).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set ability for %q: %w", examineeID, err)
	}
	return nil
}

// Profile is a stored examinee profile.
type Profile struct {
	ExamineeID string
	Theta      float64
	SE         float64
	TestsTaken int
	UpdatedAt  time.Time
}

// Get returns the profile for examineeID, or nil if there is none.
func (r *ProfileRepo) Get(ctx context.Context, examineeID string) (*Profile, error) {
	b := r.s.build()
	query, args := b.Select("examinee_id", "theta", "se", "tests_taken", "updated_at").
		From(b.Table(profilesTable.Name)).
		Where(entsql.EQ("examinee_id", examineeID)).
		Query()
	var (
		p       Profile
		updated int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&p.ExamineeID, &p.Theta, &p.SE, &p.TestsTaken, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", examineeID, err)
	}
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}
