package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptest/internal/ui/theme"
)

// PrecisionMeter shows how close the standard error is to its target.
type PrecisionMeter struct {
	SE       float64
	StartSE  float64
	TargetSE float64
	Width    int
}

// Fraction is the share of the distance from StartSE to TargetSE covered,
// in [0, 1]. Without a target it is 0.
func (p PrecisionMeter) Fraction() float64 {
	if p.TargetSE <= 0 || p.StartSE <= p.TargetSE {
		return 0
	}
	f := (p.StartSE - p.SE) / (p.StartSE - p.TargetSE)
	return min(max(f, 0), 1)
}

func (p PrecisionMeter) View() string {
	label := theme.Body.Render(fmt.Sprintf("SE %.3f", p.SE))
	if p.TargetSE <= 0 {
		return label
	}
	barWidth := max(p.Width-lipgloss.Width(label)-12, 4)
	filled := int(float64(barWidth) * p.Fraction())

	bar := lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
	return label + "  " + bar + theme.Dim.Render(fmt.Sprintf("  → %.2f", p.TargetSE))
}
