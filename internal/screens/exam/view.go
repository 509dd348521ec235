package exam

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/screens/summary"
	"github.com/abhisek/adaptest/internal/ui/components"
	"github.com/abhisek/adaptest/internal/ui/theme"
)

func (s *ExamScreen) View(width, height int) string {
	switch {
	case s.errMsg != "":
		return renderError(width, s.errMsg)
	case s.confirmQuit:
		return renderQuitConfirm(width)
	case s.phase == phaseStarting, s.phase == phaseLoading && s.item == nil:
		return "\n\n" + theme.Centered(theme.Dim, width, "Preparing your test...")
	case s.phase == phaseFeedback:
		return s.renderFeedback(width)
	}
	return s.renderItem(width)
}

func (s *ExamScreen) infoLine(width int) string {
	clock := summary.FormatDuration(s.elapsed.Seconds())
	if s.opts.TimeLimit > 0 {
		clock = summary.FormatDuration((s.opts.TimeLimit - s.elapsed).Seconds()) + " left"
	}
	left := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  Answered %d  Correct %d", s.answered, s.correct))
	right := theme.Dim.Render(clock + "  ")

	line := left
	if pad := width - lipgloss.Width(left) - lipgloss.Width(right); pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}

	meter := components.PrecisionMeter{
		SE:       s.se,
		StartSE:  s.startSE,
		TargetSE: s.opts.TargetSE,
		Width:    min(width-4, 60),
	}
	return line + "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, meter.View()) + "\n" +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width, 0)))
}

func (s *ExamScreen) renderItem(width int) string {
	if s.item == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.infoLine(width))
	b.WriteString("\n\n")

	prompt := lipgloss.NewStyle().
		Width(min(width-8, 72)).
		Foreground(theme.Text).
		Bold(true).
		Render(s.item.Content.Prompt)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, prompt))
	b.WriteString("\n\n")

	if s.item.Content.Format == itembank.FormatMultipleChoice {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.choices.View()))
	} else {
		b.WriteString(theme.Centered(lipgloss.NewStyle(), width, "Answer: "+s.input.View()))
	}

	if s.phase == phaseGrading {
		b.WriteString("\n\n")
		b.WriteString(theme.Centered(theme.Hint, width, "Checking..."))
	}
	if s.item.Redelivered {
		b.WriteString("\n\n")
		b.WriteString(theme.Centered(theme.Hint, width, "Picking up where you left off."))
	}
	return b.String()
}

func (s *ExamScreen) renderFeedback(width int) string {
	var b strings.Builder
	b.WriteString(s.infoLine(width))
	b.WriteString("\n\n\n")

	if s.last != nil && s.last.Correct {
		b.WriteString(theme.Centered(theme.Correct, width, "Correct!"))
	} else {
		b.WriteString(theme.Centered(theme.Incorrect, width, "Not quite"))
	}
	b.WriteString("\n\n")
	if s.last != nil && s.last.Fallback {
		b.WriteString(theme.Centered(theme.Hint, width, "Ability estimate held steady for this answer."))
		b.WriteString("\n")
	}
	b.WriteString(theme.Centered(theme.Dim, width, "Press any key for the next question"))
	return b.String()
}

func renderQuitConfirm(width int) string {
	return "\n\n" + theme.Centered(theme.Warning, width, "End the test now?") + "\n\n" +
		theme.Centered(theme.Dim, width, "Your result so far will be saved.")
}

func renderError(width int, msg string) string {
	return "\n\n" + theme.Centered(theme.Incorrect, width, "Something went wrong") + "\n\n" +
		theme.Centered(theme.Body, width, msg)
}
