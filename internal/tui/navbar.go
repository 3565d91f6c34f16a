package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// renderTopBar lays out a left and a right label across width.
func renderTopBar(left, right string, width int) string {
	leftStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := " " + leftStyle.Render(left)
	r := rightStyle.Render(right)
	gap := width - lipgloss.Width(l) - lipgloss.Width(r) - 1
	if gap < 1 {
		gap = 1
	}
	return l + strings.Repeat(" ", gap) + r + " "
}

// renderBadge draws the badge as a colored block.
func renderBadge(s BadgeState) string {
	text := s.Text
	if strings.TrimSpace(text) == "" {
		text = " "
	}
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if s.Color != "" {
		style = style.Background(lipgloss.Color(s.Color))
	}
	fg := contrastColor(s.Color)
	if s.TextColor != nil {
		fg = *s.TextColor
	}
	return style.Foreground(lipgloss.Color(fg)).Render(text)
}

// contrastColor picks black or white text for a background color. Colors
// that are not hex codes get white.
func contrastColor(bg string) string {
	c, err := colorful.Hex(bg)
	if err != nil {
		return "#fff"
	}
	l, _, _ := c.Lab()
	if l > 0.5 {
		return "#000"
	}
	return "#fff"
}
