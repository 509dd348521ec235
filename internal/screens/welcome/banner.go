package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/adaptest/internal/ui/theme"
)

const bannerArt = `
  ▄▀█ █▀▄ ▄▀█ █▀█ ▀█▀ █▀▀ █▀ ▀█▀
  █▀█ █▄▀ █▀█ █▀▀  █  ██▄ ▄█  █ `

const bannerCompact = "A D A P T E S T"

// RenderBanner returns the banner in the primary color, or a one-line
// version for terminals narrower than 40 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 40 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
