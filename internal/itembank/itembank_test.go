package itembank

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func sampleItems() []Item {
	return []Item{
		{ID: "a1", A: 1, B: -1, Subjects: []string{"algebra"}, Grade: 4, Status: StatusPublished, Format: FormatInteger, Answer: "4"},
		{ID: "a2", A: 1.2, B: 0.5, Subjects: []string{"algebra"}, Skills: []string{"linear"}, Grade: 5, Status: StatusPublished, Format: FormatInteger, Answer: "7"},
		{ID: "g1", A: 0.9, B: 1.5, Subjects: []string{"geometry"}, Grade: 5, Status: StatusPublished, Format: FormatText, Answer: "square"},
		{ID: "d1", A: 1, B: 0, Subjects: []string{"algebra"}, Status: StatusDraft},
		{ID: "r1", A: 1, B: 0, Subjects: []string{"geometry"}, Status: StatusRetired},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr string
	}{
		{"ok", Item{ID: "x", A: 1, Status: StatusPublished}, ""},
		{"missing id", Item{A: 1, Status: StatusPublished}, "id is required"},
		{"zero a", Item{ID: "x", A: 0, Status: StatusPublished}, "discrimination"},
		{"c one", Item{ID: "x", A: 1, C: 1, Status: StatusPublished}, "guessing"},
		{"bad status", Item{ID: "x", A: 1, Status: "live"}, "unknown status"},
		{"mc without answer in choices", Item{ID: "x", A: 1, Status: StatusPublished, Format: FormatMultipleChoice, Choices: []string{"a", "b"}, Answer: "c"}, "not one of the choices"},
		{"mc ok", Item{ID: "x", A: 1, Status: StatusPublished, Format: FormatMultipleChoice, Choices: []string{"a", "B"}, Answer: "b"}, ""},
		{"integer without key", Item{ID: "x", A: 1, Status: StatusPublished, Format: FormatInteger}, "answer key"},
		{"constructed without key", Item{ID: "x", A: 1, Status: StatusPublished, Format: FormatConstructed}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.item)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBank_Duplicates(t *testing.T) {
	items := sampleItems()
	items = append(items, items[0])
	err := ValidateBank(items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate item ID: "a1"`)
}

func TestFilter_Matches(t *testing.T) {
	items := sampleItems()
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter publishes only", Filter{}, []string{"a1", "a2", "g1"}},
		{"subject", Filter{Subjects: []string{"geometry"}}, []string{"g1"}},
		{"skill", Filter{Skills: []string{"linear"}}, []string{"a2"}},
		{"grade", Filter{Grades: []int{4}}, []string{"a1"}},
		{"difficulty range", Filter{MinDifficulty: ptr(0), MaxDifficulty: ptr(1)}, []string{"a2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, it := range items {
				if tt.filter.Matches(it) {
					got = append(got, it.ID)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(sampleItems()...)

	got, err := repo.QueryCandidates(ctx, Filter{Subjects: []string{"algebra"}}, []string{"a1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a2", got[0].ID)

	content, err := repo.Content(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", content.ItemID)
	assert.Equal(t, FormatText, content.Format)

	_, err = repo.Get(ctx, "missing")
	var nf *ErrItemNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ItemID)
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(sampleItems()...)
	it, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	it.Subjects[0] = "mutated"

	again, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "algebra", again.Subjects[0])
}

func TestReadBank(t *testing.T) {
	src := `
version: 1
items:
  - id: alg-001
    a: 1.2
    b: -0.4
    c: 0.2
    subjects: [algebra]
    format: integer
    prompt: "Solve 2x + 3 = 11"
    answer: "4"
  - id: geo-001
    a: 0.9
    b: 1.1
    status: draft
    format: multiple_choice
    choices: [triangle, square]
    answer: square
`
	items, err := ReadBank(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, StatusPublished, items[0].Status)
	assert.Equal(t, StatusDraft, items[1].Status)
	assert.InDelta(t, 0.2, items[0].C, 1e-12)
}

func TestReadBank_RejectsUnknownFieldsAndInvalidItems(t *testing.T) {
	_, err := ReadBank(strings.NewReader("items:\n  - id: x\n    a: 1\n    bogus: 1\n"))
	assert.Error(t, err)

	_, err = ReadBank(strings.NewReader("items:\n  - id: x\n    a: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discrimination")
}

func TestWriteBank_RoundTrip(t *testing.T) {
	items := sampleItems()[:3]
	var buf bytes.Buffer
	require.NoError(t, WriteBank(&buf, items))

	got, err := ReadBank(&buf)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestGenerate(t *testing.T) {
	items := Generate(GenerateOptions{Size: 50, Subjects: []string{"x", "y"}, Guessing: 0.2, Seed: 7})
	require.Len(t, items, 50)
	require.NoError(t, ValidateBank(items))
	assert.Equal(t, "x", items[0].PrimarySubject())
	assert.Equal(t, "y", items[1].PrimarySubject())

	again := Generate(GenerateOptions{Size: 50, Subjects: []string{"x", "y"}, Guessing: 0.2, Seed: 7})
	assert.Equal(t, items, again)
}
