package ui

import "github.com/charmbracelet/lipgloss"

const (
	themeLight  = "light"
	themeDark   = "dark"
	themeWinter = "winter"
)

var themeOrder = []string{themeLight, themeDark, themeWinter}

type palette struct {
	accent, text, muted, done, high, medium, low, overdue string
}

var palettes = map[string]palette{
	themeLight:  {accent: "#d68c45", text: "#4a2c17", muted: "#a47551", done: "#8b9a6b", high: "#c0392b", medium: "#d68c45", low: "#6b8e23", overdue: "#c0392b"},
	themeDark:   {accent: "#f0b27a", text: "#f5d5a8", muted: "#9c7a5b", done: "#7f8c6a", high: "#ff6b5b", medium: "#f0b27a", low: "#a3c46c", overdue: "#ff6b5b"},
	themeWinter: {accent: "#5dade2", text: "#1b4f72", muted: "#85a9c1", done: "#95a5a6", high: "#c0392b", medium: "#5dade2", low: "#48c9b0", overdue: "#c0392b"},
}

type theme struct {
	name     string
	title    lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	done     lipgloss.Style
	selected lipgloss.Style
	priority map[string]lipgloss.Style
	overdue  lipgloss.Style
	toast    lipgloss.Style
	errText  lipgloss.Style
}

func themeNamed(name string) theme {
	p, ok := palettes[name]
	if !ok {
		name = themeLight
		p = palettes[themeLight]
	}
	return theme{
		name:     name,
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		text:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.text)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.muted)),
		done:     lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color(p.done)),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.accent)),
		priority: map[string]lipgloss.Style{
			"high":   lipgloss.NewStyle().Foreground(lipgloss.Color(p.high)),
			"medium": lipgloss.NewStyle().Foreground(lipgloss.Color(p.medium)),
			"low":    lipgloss.NewStyle().Foreground(lipgloss.Color(p.low)),
		},
		overdue: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.overdue)),
		toast:   lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.accent)),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color(p.high)),
	}
}

// nextTheme cycles light -> dark -> winter -> light.
func nextTheme(name string) string {
	for i, n := range themeOrder {
		if n == name {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeLight
}
