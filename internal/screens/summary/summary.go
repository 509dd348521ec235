// Package summary renders the result of a finished test.
package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptest/internal/screen"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
	"github.com/abhisek/adaptest/internal/ui/layout"
	"github.com/abhisek/adaptest/internal/ui/theme"
)

// maxRows caps the response table.
const maxRows = 12

// SummaryScreen shows a session result.
type SummaryScreen struct {
	result *session.Result
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)
var _ screen.StatusProvider = (*SummaryScreen)(nil)

func New(result *session.Result) *SummaryScreen {
	return &SummaryScreen{result: result}
}

func (s *SummaryScreen) Init() tea.Cmd { return nil }

func (s *SummaryScreen) Title() string { return "Result" }

func (s *SummaryScreen) Status() string {
	return fmt.Sprintf("θ %+.2f  SE %.2f", s.result.Theta, s.result.SE)
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Enter", Description: "Exit"}}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc", "q":
			return s, tea.Quit
		}
	}
	return s, nil
}

// ReasonText describes why a test ended.
func ReasonText(r stopping.Reason) string {
	switch r {
	case stopping.ReasonPrecisionAchieved:
		return "Your ability was measured precisely enough."
	case stopping.ReasonConfidenceNarrow:
		return "The confidence interval became narrow enough."
	case stopping.ReasonMaximumReached:
		return "You answered the maximum number of questions."
	case stopping.ReasonTimeLimitExceeded:
		return "Time ran out."
	case stopping.ReasonItemPoolExhausted:
		return "No more suitable questions were available."
	case stopping.ReasonExamineeEnded:
		return "You ended the test."
	case stopping.ReasonAborted:
		return "The test was aborted."
	default:
		return string(r)
	}
}

func (s *SummaryScreen) View(width, height int) string {
	r := s.result
	var b strings.Builder

	b.WriteString(theme.Centered(theme.Title, width, "Test complete"))
	b.WriteString("\n")
	b.WriteString(theme.Centered(theme.Dim, width, ReasonText(r.Reason)))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Ability %+.2f   SE %.3f   95%% CI [%+.2f, %+.2f]", r.Theta, r.SE, r.CILow, r.CIHigh)
	b.WriteString(theme.Centered(theme.Body.Bold(true), width, stats))
	b.WriteString("\n")
	counts := fmt.Sprintf("Answered %d   Correct %d   Accuracy %.0f%%   Time %s",
		r.Answered, r.Correct, r.Accuracy*100, FormatDuration(r.Duration.Seconds()))
	b.WriteString(theme.Centered(theme.Body, width, counts))
	b.WriteString("\n\n")

	if len(r.Responses) == 0 {
		return b.String()
	}

	// Only the tail fits on small terminals.
	rows := r.Responses
	if limit := min(maxRows, max(height-8, 1)); len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	first := len(r.Responses) - len(rows)

	var table strings.Builder
	table.WriteString(theme.Dim.Render(fmt.Sprintf("%-4s %-14s %-5s   %8s %7s", "#", "item", "", "θ", "SE")))
	table.WriteString("\n")
	for i, resp := range rows {
		mark := theme.Correct.Render("right")
		if !resp.Correct {
			mark = theme.Incorrect.Render("wrong")
		}
		table.WriteString(fmt.Sprintf("%-4d %-14s %s   %+8.2f %7.3f\n",
			first+i+1, truncate(resp.ItemID, 14), mark, resp.ThetaAfter, resp.SEAfter))
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, table.String()))
	return b.String()
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(secs float64) string {
	total := max(int(secs), 0)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
