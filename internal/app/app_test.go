package app

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/screen"
	"github.com/abhisek/adaptest/internal/screens/exam"
	"github.com/abhisek/adaptest/internal/screens/welcome"
	"github.com/abhisek/adaptest/internal/ui/layout"
)

type stubScreen struct {
	open bool
	keys []string
}

func (s *stubScreen) Init() tea.Cmd { return nil }

func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		s.keys = append(s.keys, k.String())
	}
	return s, nil
}

func (s *stubScreen) View(int, int) string { return "stub body" }
func (s *stubScreen) Title() string        { return "Stub" }
func (s *stubScreen) Status() string       { return "θ +1.00" }

func (s *stubScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Enter", Description: "Submit"}}
}

func (s *stubScreen) OpenSession() (string, bool) { return "s-1", s.open }

func TestAppViewComposesFrame(t *testing.T) {
	m := newAppModel(&stubScreen{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(AppModel)

	v := m.View()
	if !v.AltScreen {
		t.Error("expected alt screen")
	}
}

func TestAppTooSmall(t *testing.T) {
	m := newAppModel(&stubScreen{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	m = updated.(AppModel)
	if m.width != 20 || m.height != 5 {
		t.Errorf("size not recorded: %dx%d", m.width, m.height)
	}
	if !layout.IsTooSmall(m.width, m.height) {
		t.Error("expected too small")
	}
	if !strings.Contains(layout.RenderMinSizeMessage(m.width, m.height), "too small") {
		t.Error("expected size message")
	}
}

func TestAppCtrlCQuits(t *testing.T) {
	m := newAppModel(&stubScreen{})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestAppForwardsKeys(t *testing.T) {
	s := &stubScreen{}
	m := newAppModel(s)
	m.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	if len(s.keys) != 1 || s.keys[0] != "a" {
		t.Errorf("expected key forwarded, got %v", s.keys)
	}
}

func TestAppOpenSession(t *testing.T) {
	s := &stubScreen{open: true}
	m := newAppModel(s)
	if id, open := m.openSession(); !open || id != "s-1" {
		t.Errorf("openSession() = %q, %v", id, open)
	}
	s.open = false
	if _, open := m.openSession(); open {
		t.Error("expected closed session")
	}
}

func TestHeaderShowsStatus(t *testing.T) {
	h := layout.RenderHeader("Question 3", "θ +1.00", 100)
	for _, want := range []string{"Adaptest", "Question 3", "θ +1.00"} {
		if !strings.Contains(h, want) {
			t.Errorf("header missing %q", want)
		}
	}
}

func TestInitialScreenAsksForExaminee(t *testing.T) {
	s := initialScreen(context.Background(), exam.Options{})
	if _, ok := s.(*welcome.WelcomeScreen); !ok {
		t.Errorf("expected welcome screen, got %T", s)
	}
	s = initialScreen(context.Background(), exam.Options{ExamineeID: "ada"})
	if _, ok := s.(*exam.ExamScreen); !ok {
		t.Errorf("expected exam screen, got %T", s)
	}
}
