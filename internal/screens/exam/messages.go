package exam

import (
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

type startedMsg struct {
	SessionID string
	Err       error
}

type nextMsg struct {
	Next *session.Next
	Err  error
}

type submittedMsg struct {
	Submission *session.Submission
	Err        error
}

type endedMsg struct {
	Result *session.Result
	Err    error
}

// tickMsg drives the clock once a second.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (s *ExamScreen) startCmd() tea.Cmd {
	ctx, eng, opts := s.ctx, s.opts.Engine, s.opts
	return func() tea.Msg {
		id, err := eng.Start(ctx, opts.ExamineeID, opts.Test)
		return startedMsg{SessionID: id, Err: err}
	}
}

func (s *ExamScreen) nextCmd() tea.Cmd {
	ctx, eng, id := s.ctx, s.opts.Engine, s.sessionID
	return func() tea.Msg {
		next, err := eng.NextItem(ctx, id)
		return nextMsg{Next: next, Err: err}
	}
}

func (s *ExamScreen) submitCmd(itemID, raw string, latency time.Duration) tea.Cmd {
	ctx, eng, id := s.ctx, s.opts.Engine, s.sessionID
	return func() tea.Msg {
		sub, err := eng.Submit(ctx, id, itemID, raw, latency)
		return submittedMsg{Submission: sub, Err: err}
	}
}

func (s *ExamScreen) endCmd(reason stopping.Reason) tea.Cmd {
	ctx, eng, id := s.ctx, s.opts.Engine, s.sessionID
	return func() tea.Msg {
		res, err := eng.End(ctx, id, reason)
		return endedMsg{Result: res, Err: err}
	}
}
