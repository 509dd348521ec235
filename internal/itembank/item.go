// Package itembank defines calibrated test items and the repository
// interface the item selector draws candidates from.
package itembank

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/abhisek/adaptest/internal/irt"
)

// Status is the publication status of an item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusRetired   Status = "retired"
)

// Format describes how a response to the item is graded.
type Format string

const (
	FormatMultipleChoice Format = "multiple_choice"
	FormatInteger        Format = "integer"
	FormatDecimal        Format = "decimal"
	FormatFraction       Format = "fraction"
	FormatText           Format = "text"
	FormatConstructed    Format = "constructed"
)

// Item is a calibrated question. Items are immutable once published; usage
// counters live in the exposure ledger, not here.
type Item struct {
	ID       string   `json:"id" yaml:"id"`
	A        float64  `json:"a" yaml:"a"`
	B        float64  `json:"b" yaml:"b"`
	C        float64  `json:"c" yaml:"c"`
	Subjects []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Skills   []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Grade    int      `json:"grade,omitempty" yaml:"grade,omitempty"`
	Status   Status   `json:"status" yaml:"status"`

	Prompt  string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Format  Format   `json:"format,omitempty" yaml:"format,omitempty"`
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Answer  string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Rubric  string   `json:"rubric,omitempty" yaml:"rubric,omitempty"`
}

// Params returns the item's 3PL parameters.
func (it Item) Params() irt.Params {
	return irt.Params{A: it.A, B: it.B, C: it.C}
}

// PrimarySubject returns the first subject tag, or "" if untagged.
func (it Item) PrimarySubject() string {
	if len(it.Subjects) == 0 {
		return ""
	}
	return it.Subjects[0]
}

// Content is what the examinee sees. It deliberately omits the answer key.
type Content struct {
	ItemID  string   `json:"item_id"`
	Prompt  string   `json:"prompt"`
	Format  Format   `json:"format"`
	Choices []string `json:"choices,omitempty"`
}

// ContentOf strips grading data from an item.
func ContentOf(it Item) Content {
	return Content{
		ItemID:  it.ID,
		Prompt:  it.Prompt,
		Format:  it.Format,
		Choices: slices.Clone(it.Choices),
	}
}

// Validate checks a single item's calibration and content.
func Validate(it Item) error {
	var errs []string
	if strings.TrimSpace(it.ID) == "" {
		errs = append(errs, "id is required")
	}
	if !(it.A > 0) || math.IsInf(it.A, 0) {
		errs = append(errs, fmt.Sprintf("discrimination a must be > 0, got %v", it.A))
	}
	if math.IsNaN(it.B) || math.IsInf(it.B, 0) {
		errs = append(errs, fmt.Sprintf("difficulty b must be finite, got %v", it.B))
	}
	if !(it.C >= 0 && it.C < 1) {
		errs = append(errs, fmt.Sprintf("guessing c must be in [0, 1), got %v", it.C))
	}
	switch it.Status {
	case StatusDraft, StatusPublished, StatusRetired:
	default:
		errs = append(errs, fmt.Sprintf("unknown status %q", it.Status))
	}
	switch it.Format {
	case FormatMultipleChoice:
		if len(it.Choices) < 2 {
			errs = append(errs, "multiple choice needs at least 2 choices")
		} else if !slices.ContainsFunc(it.Choices, func(c string) bool {
			return strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(it.Answer))
		}) {
			errs = append(errs, fmt.Sprintf("answer %q is not one of the choices", it.Answer))
		}
	case FormatInteger, FormatDecimal, FormatFraction, FormatText:
		if strings.TrimSpace(it.Answer) == "" {
			errs = append(errs, fmt.Sprintf("format %s needs an answer key", it.Format))
		}
	case FormatConstructed, "":
	default:
		errs = append(errs, fmt.Sprintf("unknown format %q", it.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("item %q: %s", it.ID, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateBank checks every item plus cross-item rules (unique ids).
// Returns a combined error describing all problems found, or nil if valid.
func ValidateBank(items []Item) error {
	var errs []string
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			errs = append(errs, fmt.Sprintf("duplicate item ID: %q", it.ID))
		}
		seen[it.ID] = true
		if err := Validate(it); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item bank validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
