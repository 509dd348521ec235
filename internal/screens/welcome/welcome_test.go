package welcome

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/router"
	"github.com/abhisek/adaptest/internal/screen"
)

type stubScreen struct{ examinee string }

func (s *stubScreen) Init() tea.Cmd                          { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                   { return "exam" }
func (s *stubScreen) Title() string                          { return "Exam" }

func newTestWelcome() (*WelcomeScreen, *[]string) {
	var calls []string
	w := New(func(id string) screen.Screen {
		calls = append(calls, id)
		return &stubScreen{examinee: id}
	})
	return w, &calls
}

func typeText(w *WelcomeScreen, text string) {
	for _, r := range text {
		w.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func pressEnter(w *WelcomeScreen) tea.Cmd {
	_, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	return cmd
}

func TestEnterWithEmptyIDDoesNothing(t *testing.T) {
	w, calls := newTestWelcome()
	if cmd := pressEnter(w); cmd != nil {
		t.Error("expected no command for an empty id")
	}
	if len(*calls) != 0 {
		t.Errorf("factory called %d times", len(*calls))
	}
}

func TestEnterReplacesWithExam(t *testing.T) {
	w, calls := newTestWelcome()
	typeText(w, "ada")

	cmd := pressEnter(w)
	if cmd == nil {
		t.Fatal("expected a replace command")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	if got := msg.Screen.(*stubScreen).examinee; got != "ada" {
		t.Errorf("examinee = %q, want ada", got)
	}
	if len(*calls) != 1 {
		t.Errorf("factory called %d times, want 1", len(*calls))
	}
}

func TestTransitionHappensOnce(t *testing.T) {
	w, calls := newTestWelcome()
	typeText(w, "ada")
	pressEnter(w)
	if cmd := pressEnter(w); cmd != nil {
		t.Error("expected no second transition")
	}
	if len(*calls) != 1 {
		t.Errorf("factory called %d times, want 1", len(*calls))
	}
}

func TestViewShowsPrompt(t *testing.T) {
	w, _ := newTestWelcome()
	view := w.View(80, 24)
	if !strings.Contains(view, "Who is taking the test?") {
		t.Error("missing prompt")
	}
	if !strings.Contains(RenderBanner(30), "A D A P T E S T") {
		t.Error("expected compact banner on a narrow terminal")
	}
}
