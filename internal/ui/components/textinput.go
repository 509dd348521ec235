package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// Charset restricts which runes an AnswerInput accepts.
type Charset int

const (
	AnyChars Charset = iota
	IntegerChars
	DecimalChars
	FractionChars
)

func (c Charset) allows(r rune) bool {
	digit := r >= '0' && r <= '9'
	switch c {
	case IntegerChars:
		return digit || r == '-'
	case DecimalChars:
		return digit || r == '-' || r == '.'
	case FractionChars:
		return digit || r == '-' || r == '/' || r == ' '
	default:
		return true
	}
}

// AnswerInput is a single-line answer field that drops keystrokes outside
// its charset.
type AnswerInput struct {
	Model   textinput.Model
	Charset Charset
}

// NewAnswerInput creates a focused input.
func NewAnswerInput(placeholder string, charset Charset, limit int) AnswerInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	if limit > 0 {
		ti.CharLimit = limit
	}
	return AnswerInput{Model: ti, Charset: charset}
}

func (a AnswerInput) Init() tea.Cmd {
	return a.Model.Focus()
}

func (a AnswerInput) Update(msg tea.Msg) (AnswerInput, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		key := []rune(kmsg.String())
		if len(key) == 1 && !a.Charset.allows(key[0]) {
			return a, nil
		}
	}
	var cmd tea.Cmd
	a.Model, cmd = a.Model.Update(msg)
	return a, cmd
}

func (a AnswerInput) View() string {
	return a.Model.View()
}

// Value returns the trimmed input.
func (a AnswerInput) Value() string {
	return strings.TrimSpace(a.Model.Value())
}
