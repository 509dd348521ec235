package selector

import (
	"fmt"

	"github.com/abhisek/adaptest/internal/itembank"
)

// ErrNoEligibleItems is returned when no unadministered item satisfies the
// session's constraints.
type ErrNoEligibleItems struct {
	Filter   itembank.Filter
	Excluded int
}

func (e *ErrNoEligibleItems) Error() string {
	return fmt.Sprintf("no eligible items (subjects=%v skills=%v grades=%v, %d excluded)",
		e.Filter.Subjects, e.Filter.Skills, e.Filter.Grades, e.Excluded)
}
