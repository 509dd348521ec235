package components

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/ui/theme"
)

// Choices is a single-select option list. It never knows the key; grading
// happens in the engine.
type Choices struct {
	Options  []string
	Selected int
	Chosen   bool
}

func NewChoices(options []string) Choices {
	return Choices{Options: options}
}

// Update moves the cursor with arrows or j/k. Enter, or a digit naming an
// option, marks the choice made.
func (c Choices) Update(msg tea.Msg) Choices {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || c.Chosen {
		return c
	}
	switch key := kmsg.String(); key {
	case "up", "k":
		c.Selected = max(c.Selected-1, 0)
	case "down", "j":
		c.Selected = min(c.Selected+1, len(c.Options)-1)
	case "enter":
		c.Chosen = len(c.Options) > 0
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(c.Options) {
			c.Selected = n - 1
			c.Chosen = true
		}
	}
	return c
}

// Answer is the 1-based index of the selection, the form the key grader
// accepts for multiple choice.
func (c Choices) Answer() string {
	return strconv.Itoa(c.Selected + 1)
}

func (c Choices) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		line := fmt.Sprintf("  %d) %s", i+1, opt)
		if i == c.Selected {
			line = theme.Selected.Render(fmt.Sprintf("> %d) %s", i+1, opt))
		} else {
			line = theme.Body.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
