// Package app runs the terminal test-taking UI.
package app

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/router"
	"github.com/abhisek/adaptest/internal/screen"
	"github.com/abhisek/adaptest/internal/screens/exam"
	"github.com/abhisek/adaptest/internal/screens/welcome"
	"github.com/abhisek/adaptest/internal/stopping"
	"github.com/abhisek/adaptest/internal/ui/layout"
)

// closeTimeout bounds the cleanup of a session left open at exit.
const closeTimeout = 5 * time.Second

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

func newAppModel(initial screen.Screen) AppModel {
	return AppModel{router: router.New(initial)}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, m.router.Update(msg)
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	var status string
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	hints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		hints = hp.KeyHints()
	}

	header := layout.RenderHeader(active.Title(), status, m.width)
	footer := layout.RenderFooter(hints, m.width)
	content := m.router.View(m.width, layout.ContentHeight(header, footer, m.height))
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func initialScreen(ctx context.Context, opts exam.Options) screen.Screen {
	if opts.ExamineeID != "" {
		return exam.New(ctx, opts)
	}
	return welcome.New(func(examineeID string) screen.Screen {
		o := opts
		o.ExamineeID = examineeID
		return exam.New(ctx, o)
	})
}

// openSession reports a session the active screen left unfinished.
func (m AppModel) openSession() (string, bool) {
	if o, ok := m.router.Active().(interface{ OpenSession() (string, bool) }); ok {
		return o.OpenSession()
	}
	return "", false
}

// Run takes one adaptive test in the terminal, asking for the examinee id
// first when opts has none. A session still open when the program exits is
// ended as aborted.
func Run(ctx context.Context, opts exam.Options) error {
	p := tea.NewProgram(newAppModel(initialScreen(ctx, opts)))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}

	m, ok := final.(AppModel)
	if !ok {
		return nil
	}
	id, open := m.openSession()
	if !open {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if _, err := opts.Engine.End(ctx, id, stopping.ReasonAborted); err != nil {
		return fmt.Errorf("abort session %s: %w", id, err)
	}
	return nil
}
