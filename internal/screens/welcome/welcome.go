// Package welcome asks who is taking the test before it starts.
package welcome

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptest/internal/router"
	"github.com/abhisek/adaptest/internal/screen"
	"github.com/abhisek/adaptest/internal/ui/components"
	"github.com/abhisek/adaptest/internal/ui/layout"
	"github.com/abhisek/adaptest/internal/ui/theme"
)

// examineeIDLimit caps the length of a typed examinee id.
const examineeIDLimit = 64

// WelcomeScreen reads an examinee id and hands over to the test screen.
type WelcomeScreen struct {
	next         func(examineeID string) screen.Screen
	input        components.AnswerInput
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that replaces itself with next(id) once an
// id is entered.
func New(next func(examineeID string) screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{
		next:  next,
		input: components.NewAnswerInput("your name or id", components.AnyChars, examineeIDLimit),
	}
}

func (w *WelcomeScreen) Title() string { return "Welcome" }

func (w *WelcomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Start"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return w.input.Init()
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if w.transitioned {
		return w, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		id := w.input.Value()
		if id == "" {
			return w, nil
		}
		w.transitioned = true
		s := w.next(id)
		return w, func() tea.Msg { return router.ReplaceScreenMsg{Screen: s} }
	}
	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return w, cmd
}

func (w *WelcomeScreen) View(width, height int) string {
	sections := []string{
		RenderBanner(width),
		"",
		theme.Body.Render("Each answer tunes the next question to your level."),
		theme.Dim.Render("The test ends as soon as your score is measured precisely."),
		"",
		theme.Selected.Render("Who is taking the test?"),
		w.input.View(),
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
