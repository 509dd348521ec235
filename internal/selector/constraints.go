package selector

import (
	"maps"
	"slices"

	"github.com/abhisek/adaptest/internal/itembank"
)

// Constraints restrict and shape item selection for one session.
type Constraints struct {
	Subjects      []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Skills        []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Grades        []int    `json:"grades,omitempty" yaml:"grades,omitempty"`
	MinDifficulty *float64 `json:"min_difficulty,omitempty" yaml:"min_difficulty,omitempty"`
	MaxDifficulty *float64 `json:"max_difficulty,omitempty" yaml:"max_difficulty,omitempty"`

	// TargetMix is the desired share of responses per subject. Shares need
	// not sum to 1.
	TargetMix map[string]float64 `json:"target_mix,omitempty" yaml:"target_mix,omitempty"`

	// TargetDifficulty overrides θ̂ as the difficulty the balance score
	// steers toward.
	TargetDifficulty *float64 `json:"target_difficulty,omitempty" yaml:"target_difficulty,omitempty"`
}

// Filter converts the hard constraints into a repository filter.
func (c Constraints) Filter() itembank.Filter {
	return itembank.Filter{
		Subjects:      slices.Clone(c.Subjects),
		Skills:        slices.Clone(c.Skills),
		Grades:        slices.Clone(c.Grades),
		MinDifficulty: c.MinDifficulty,
		MaxDifficulty: c.MaxDifficulty,
	}
}

// Relaxed drops the hard filters (skills, grades, difficulty band) and keeps
// subjects and the soft balance targets.
func (c Constraints) Relaxed() Constraints {
	return Constraints{
		Subjects:         slices.Clone(c.Subjects),
		TargetMix:        maps.Clone(c.TargetMix),
		TargetDifficulty: c.TargetDifficulty,
	}
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return len(c.Subjects) == 0 && len(c.Skills) == 0 && len(c.Grades) == 0 &&
		c.MinDifficulty == nil && c.MaxDifficulty == nil &&
		len(c.TargetMix) == 0 && c.TargetDifficulty == nil
}
