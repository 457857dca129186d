package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies the pane the quick reference is shown for.
type Context int

const (
	ContextMenu Context = iota
	ContextContent
	ContextSearch
)

// ContextHelpContent holds the quick reference for each pane.
// Content should fit on one screen without scrolling.
var ContextHelpContent = map[Context]string{
	ContextMenu:    contextHelpMenu,
	ContextContent: contextHelpContent,
	ContextSearch:  contextHelpSearch,
}

// GetContextHelp returns the quick reference for ctx, or the generic one.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the quick reference modal, centered in a
// width x height area. The global keys follow the pane specific ones.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)
	if content != contextHelpGeneric {
		content += "\n\n" + contextHelpGeneric
	}
	r := theme.Renderer

	modalWidth := 52
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpMenu = `Table of contents

  j/k       Move up/down
  l/h       Expand / collapse
  E/C       Expand / collapse all
  Enter     Open page or save document
  G         Jump to bottom
  Tab       Focus the page`

const contextHelpContent = `Help page

  j/k       Scroll
  PgDn/PgUp Page down/up
  y         Copy page address
  s         Save page to disk
  Tab       Focus the menu`

const contextHelpSearch = `Search results

  j/k       Move up/down
  Enter     Open result
  x         Clear selection
  /         New search
  Esc       Back to the menu`

const contextHelpGeneric = `Navigation

  g         Home
  b         Previous page
  f         Next page
  /         Search
  r         Reload help content
  q         Quit`
