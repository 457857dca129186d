package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the colors of the viewer. Colors adapt to the terminal
// background (Dracula on dark terminals).
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor

	Selected lipgloss.Style
	Active   lipgloss.Style
}

// DefaultTheme builds the theme for a renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1FA8C"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#8BE9FD"},
		Text:      lipgloss.AdaptiveColor{Light: "#000000", Dark: "#f8f8f2"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Muted:     lipgloss.AdaptiveColor{Light: "#999999", Dark: "#6272A4"},
		Border:    lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5555"},
		Bar:       lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: "#282A36"},
	}
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E6E0FF", Dark: "#44475A"}).
		Bold(true)
	t.Active = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#50FA7B"}).
		Bold(true)
	return t
}

// Styles derived from a theme. Built once per model.
type styles struct {
	header      lipgloss.Style
	headerTitle lipgloss.Style
	footer      lipgloss.Style
	key         lipgloss.Style
	disabled    lipgloss.Style
	panel       lipgloss.Style
	focused     lipgloss.Style
	errorBanner lipgloss.Style
	muted       lipgloss.Style
	status      lipgloss.Style
}

func newStyles(t Theme) styles {
	r := t.Renderer
	return styles{
		header:      r.NewStyle().Foreground(t.Subtext).Padding(0, 1),
		headerTitle: r.NewStyle().Foreground(t.Primary).Bold(true).Padding(0, 1),
		footer:      r.NewStyle().Background(t.Bar).Foreground(t.Text),
		key:         r.NewStyle().Foreground(t.Highlight).Bold(true),
		disabled:    r.NewStyle().Foreground(t.Muted).Faint(true),
		panel:       r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border),
		focused:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary),
		errorBanner: r.NewStyle().Foreground(t.Error).Bold(true).Padding(0, 1),
		muted:       r.NewStyle().Foreground(t.Muted),
		status:      r.NewStyle().Foreground(t.Secondary),
	}
}
