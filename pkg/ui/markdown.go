package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	gstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer renders help pages for the content pane.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	useTheme bool
	theme    *Theme
}

// NewMarkdownRenderer creates a renderer with glamour's automatic style.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width}
	mr.rebuild()
	return mr
}

// NewMarkdownRendererWithTheme creates a renderer styled after theme.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width, useTheme: true, theme: &theme}
	mr.rebuild()
	return mr
}

func (mr *MarkdownRenderer) rebuild() {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(mr.width)}
	if mr.useTheme && mr.theme != nil {
		opts = append(opts, glamour.WithStyles(buildStyleFromTheme(*mr.theme, mr.IsDarkMode())))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		r = nil
	}
	mr.renderer = r
}

// Render renders markdown. Without a renderer the input is returned as is.
func (mr *MarkdownRenderer) Render(md string) (string, error) {
	if mr.renderer == nil {
		return md, nil
	}
	return mr.renderer.Render(md)
}

// SetWidth re-creates the renderer for a new wrap width.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 || width == mr.width {
		return
	}
	mr.width = width
	mr.rebuild()
}

// SetWidthWithTheme switches to theme styling and a new width.
func (mr *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width > 0 {
		mr.width = width
	}
	mr.useTheme = true
	mr.theme = &theme
	mr.rebuild()
}

// IsDarkMode reports whether the terminal has a dark background
func (mr *MarkdownRenderer) IsDarkMode() bool {
	if mr.theme != nil && mr.theme.Renderer != nil {
		return mr.theme.Renderer.HasDarkBackground()
	}
	return lipgloss.HasDarkBackground()
}

func extractHex(c lipgloss.AdaptiveColor, dark bool) string {
	if dark {
		return c.Dark
	}
	return c.Light
}

func buildStyleFromTheme(theme Theme, dark bool) ansi.StyleConfig {
	base := gstyles.LightStyleConfig
	if dark {
		base = gstyles.DarkStyleConfig
	}
	cfg := base

	str := func(s string) *string { return &s }
	yes := true

	cfg.Document.Color = str(extractHex(theme.Text, dark))
	cfg.Heading.Color = str(extractHex(theme.Primary, dark))
	cfg.Heading.Bold = &yes
	cfg.H1.Color = str(extractHex(theme.Primary, dark))
	cfg.H1.BackgroundColor = nil
	cfg.Link.Color = str(extractHex(theme.Highlight, dark))
	cfg.LinkText.Color = str(extractHex(theme.Highlight, dark))
	cfg.Code.Color = str(extractHex(theme.Secondary, dark))
	cfg.HorizontalRule.Color = str(extractHex(theme.Border, dark))
	cfg.BlockQuote.Color = str(extractHex(theme.Subtext, dark))
	return cfg
}
