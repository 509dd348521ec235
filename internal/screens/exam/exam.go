// Package exam is the screen an examinee takes an adaptive test on.
package exam

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/router"
	"github.com/abhisek/adaptest/internal/screen"
	"github.com/abhisek/adaptest/internal/screens/summary"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
	"github.com/abhisek/adaptest/internal/ui/components"
	"github.com/abhisek/adaptest/internal/ui/layout"
)

// Engine is the part of the session controller the screen drives.
type Engine interface {
	Start(ctx context.Context, examineeID string, tc session.TestConfig) (string, error)
	NextItem(ctx context.Context, sessionID string) (*session.Next, error)
	Submit(ctx context.Context, sessionID, itemID, raw string, latency time.Duration) (*session.Submission, error)
	End(ctx context.Context, sessionID string, reason stopping.Reason) (*session.Result, error)
}

// Options configure the screen.
type Options struct {
	Engine     Engine
	ExamineeID string
	Test       session.TestConfig

	// TargetSE and TimeLimit only drive the progress display; the engine
	// enforces the actual rules.
	TargetSE  float64
	TimeLimit time.Duration

	Now func() time.Time
}

type phase int

const (
	phaseStarting phase = iota
	phaseLoading
	phaseAnswering
	phaseGrading
	phaseFeedback
	phaseEnding
)

// ExamScreen implements screen.Screen for a running test.
type ExamScreen struct {
	ctx  context.Context
	opts Options

	phase     phase
	sessionID string
	item      *session.Delivery
	shownAt   time.Time
	startedAt time.Time
	elapsed   time.Duration

	input   components.AnswerInput
	choices components.Choices

	last     *session.Submission
	theta    float64
	se       float64
	startSE  float64
	correct  int
	answered int

	confirmQuit bool
	errMsg      string
}

var _ screen.Screen = (*ExamScreen)(nil)
var _ screen.KeyHintProvider = (*ExamScreen)(nil)
var _ screen.StatusProvider = (*ExamScreen)(nil)

// New creates the screen. The test starts when Init runs.
func New(ctx context.Context, opts Options) *ExamScreen {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ExamScreen{ctx: ctx, opts: opts}
}

func (s *ExamScreen) Init() tea.Cmd {
	return tea.Batch(s.startCmd(), tickCmd())
}

func (s *ExamScreen) Title() string {
	if s.item == nil {
		return "Adaptive test"
	}
	return fmt.Sprintf("Question %d", s.item.Sequence)
}

func (s *ExamScreen) Status() string {
	if s.sessionID == "" {
		return ""
	}
	return fmt.Sprintf("θ %+.2f  SE %.2f", s.theta, s.se)
}

// OpenSession returns the id of a session that is still live, so the caller
// can close it if the program exits mid-test.
func (s *ExamScreen) OpenSession() (string, bool) {
	return s.sessionID, s.sessionID != "" && s.phase != phaseEnding
}

func (s *ExamScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Exit"}}
	case s.confirmQuit:
		return []layout.KeyHint{
			{Key: "Y", Description: "End test"},
			{Key: "N", Description: "Keep going"},
		}
	case s.phase == phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Next question"}}
	case s.phase == phaseAnswering && s.item.Content.Format == itembank.FormatMultipleChoice:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "1-9", Description: "Pick"},
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "End test"},
		}
	case s.phase == phaseAnswering:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "End test"},
		}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (s *ExamScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		return s.handleStarted(msg)
	case nextMsg:
		return s.handleNext(msg)
	case submittedMsg:
		return s.handleSubmitted(msg)
	case endedMsg:
		return s.handleEnded(msg)
	case tickMsg:
		return s.handleTick(msg)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseAnswering && !s.confirmQuit && s.item.Content.Format != itembank.FormatMultipleChoice {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ExamScreen) handleStarted(msg startedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.sessionID = msg.SessionID
	s.startedAt = s.opts.Now()
	s.phase = phaseLoading
	return s, s.nextCmd()
}

func (s *ExamScreen) handleNext(msg nextMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	if msg.Next.Final != nil {
		return s.finish(msg.Next.Final)
	}

	d := msg.Next.Item
	s.item = d
	s.theta, s.se = d.Theta, d.SE
	if s.startSE == 0 {
		s.startSE = d.SE
	}
	s.phase = phaseAnswering
	s.shownAt = s.opts.Now()

	if d.Content.Format == itembank.FormatMultipleChoice {
		s.choices = components.NewChoices(d.Content.Choices)
		return s, nil
	}
	s.input = components.NewAnswerInput("Type your answer...", charsetFor(d.Content.Format), 200)
	return s, s.input.Init()
}

func (s *ExamScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.last = msg.Submission
	s.theta, s.se = msg.Submission.Theta, msg.Submission.SE
	s.answered = msg.Submission.Answered
	if msg.Submission.Correct {
		s.correct++
	}
	s.phase = phaseFeedback
	return s, nil
}

func (s *ExamScreen) handleEnded(msg endedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	return s.finish(msg.Result)
}

func (s *ExamScreen) finish(res *session.Result) (screen.Screen, tea.Cmd) {
	s.phase = phaseEnding
	next := summary.New(res)
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *ExamScreen) handleTick(msg tickMsg) (screen.Screen, tea.Cmd) {
	if s.phase == phaseEnding || s.errMsg != "" {
		return s, nil
	}
	if !s.startedAt.IsZero() {
		s.elapsed = time.Time(msg).Sub(s.startedAt)
	}
	return s, tickCmd()
}

func (s *ExamScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, tea.Quit
	}

	if s.confirmQuit {
		switch key {
		case "y", "Y":
			s.confirmQuit = false
			s.phase = phaseEnding
			return s, s.endCmd(stopping.ReasonExamineeEnded)
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	switch s.phase {
	case phaseFeedback:
		if key == "esc" {
			s.confirmQuit = true
			return s, nil
		}
		s.phase = phaseLoading
		s.last = nil
		return s, s.nextCmd()

	case phaseAnswering:
		if key == "esc" {
			s.confirmQuit = true
			return s, nil
		}
		if s.item.Content.Format == itembank.FormatMultipleChoice {
			s.choices = s.choices.Update(msg)
			if s.choices.Chosen {
				return s.submit(s.choices.Answer())
			}
			return s, nil
		}
		if key == "enter" {
			if s.input.Value() == "" {
				return s, nil
			}
			return s.submit(s.input.Value())
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ExamScreen) submit(raw string) (screen.Screen, tea.Cmd) {
	s.phase = phaseGrading
	latency := s.opts.Now().Sub(s.shownAt)
	return s, s.submitCmd(s.item.Content.ItemID, raw, latency)
}

func charsetFor(f itembank.Format) components.Charset {
	switch f {
	case itembank.FormatInteger:
		return components.IntegerChars
	case itembank.FormatDecimal:
		return components.DecimalChars
	case itembank.FormatFraction:
		return components.FractionChars
	default:
		return components.AnyChars
	}
}
