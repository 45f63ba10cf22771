package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary  = lipgloss.Color("#10B981") // emerald
	colorWarn     = lipgloss.Color("#F59E0B") // amber
	colorMuted    = lipgloss.Color("#6B7280") // gray
	colorSubtle   = lipgloss.Color("#374151") // dark gray
	colorText     = lipgloss.Color("#F9FAFB") // near white
	colorProtein  = lipgloss.Color("#60A5FA") // blue
	colorCarbs    = lipgloss.Color("#FBBF24") // amber
	colorFat      = lipgloss.Color("#F472B6") // pink
	colorFiber    = lipgloss.Color("#A3E635") // lime
	colorCalories = lipgloss.Color("#F97316") // orange

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			PaddingBottom(1)

	styleDateNav = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Padding(0, 1)

	styleMealHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginTop(1)

	styleItemName = lipgloss.NewStyle().
			Foreground(colorText)

	styleKcal = lipgloss.NewStyle().
			Foreground(colorCalories)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	styleWarn = lipgloss.NewStyle().
			Foreground(colorWarn)

	styleSelected = lipgloss.NewStyle().
			Background(colorSubtle).
			Foreground(colorPrimary).
			Bold(true)

	styleTab = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(colorMuted)

	styleTabActive = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(colorPrimary).
			Bold(true).
			Underline(true)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	styleInput = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	styleDimmed = lipgloss.NewStyle().
			Foreground(colorMuted)
)

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
