package itembank

import (
	"context"
	"fmt"
	"slices"
)

// ErrItemNotFound is returned when an item id is unknown to a repository.
type ErrItemNotFound struct {
	ItemID string
}

func (e *ErrItemNotFound) Error() string {
	return fmt.Sprintf("item %q not found", e.ItemID)
}

// Filter narrows the candidate pool. Zero values match everything.
type Filter struct {
	Subjects      []string `json:"subjects,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	Grades        []int    `json:"grades,omitempty"`
	MinDifficulty *float64 `json:"min_difficulty,omitempty"`
	MaxDifficulty *float64 `json:"max_difficulty,omitempty"`
}

// Matches reports whether a published item passes the filter.
func (f Filter) Matches(it Item) bool {
	if it.Status != StatusPublished {
		return false
	}
	if len(f.Subjects) > 0 && !overlaps(f.Subjects, it.Subjects) {
		return false
	}
	if len(f.Skills) > 0 && !overlaps(f.Skills, it.Skills) {
		return false
	}
	if len(f.Grades) > 0 && !slices.Contains(f.Grades, it.Grade) {
		return false
	}
	if f.MinDifficulty != nil && it.B < *f.MinDifficulty {
		return false
	}
	if f.MaxDifficulty != nil && it.B > *f.MaxDifficulty {
		return false
	}
	return true
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// Repository supplies candidate items and their content.
type Repository interface {
	// QueryCandidates returns published items matching the filter whose ids
	// are not in exclude.
	QueryCandidates(ctx context.Context, filter Filter, exclude []string) ([]Item, error)

	// Get returns the full item, including its answer key.
	Get(ctx context.Context, itemID string) (Item, error)

	// Content returns the examinee-facing content of an item.
	Content(ctx context.Context, itemID string) (Content, error)
}
