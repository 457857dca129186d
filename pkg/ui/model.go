// Package ui implements the hv terminal viewer: the table of contents on the
// left, the selected help page on the right.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/helpview/pkg/client"
	"github.com/vanderheijden86/helpview/pkg/history"
	"github.com/vanderheijden86/helpview/pkg/i18n"
	"github.com/vanderheijden86/helpview/pkg/menu"
	"github.com/vanderheijden86/helpview/pkg/model"
	"github.com/vanderheijden86/helpview/pkg/page"
)

// HelpService is what the viewer needs from the help services.
// *client.Client satisfies it.
type HelpService interface {
	BundleLoader
	Searcher
	FetchPage(ctx context.Context, u string) (*client.Page, error)
	Download(ctx context.Context, u, dir string) (string, error)
	PageURL(u string) string
}

// Options configure the viewer.
type Options struct {
	Language    string
	DownloadDir string

	// OnLoad receives every bundle the model loads itself (startup and
	// manual reload), e.g. to seed BackgroundWorker.SetHash.
	OnLoad func(*client.Bundle)
}

type loadState int

const (
	stateLoading loadState = iota
	stateReady
	stateFailed
)

type focus int

const (
	focusMenu focus = iota
	focusContent
	focusSearch
)

type bundleLoadedMsg struct {
	bundle *client.Bundle
	err    error
}

type pageLoadedMsg struct {
	url string
	gen uint64 // history generation the fetch was issued for
	doc *page.Document
	err error
}

type downloadDoneMsg struct {
	url  string
	path string
	err  error
}

type clipboardMsg struct {
	url string
	err error
}

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// controller receives menu activations. Page navigation goes straight into
// the history; downloads are queued for the model to run.
type controller struct {
	hist      *history.History
	downloads []string
}

func (c *controller) Navigate(url string) { c.hist.Navigate(url) }
func (c *controller) Download(url string) { c.downloads = append(c.downloads, url) }

func (c *controller) takeDownloads() []string {
	out := c.downloads
	c.downloads = nil
	return out
}

// Model is the root bubbletea model of the viewer.
type Model struct {
	svc    HelpService
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	theme   Theme
	st      styles
	state   loadState
	loadErr error
	spinner spinner.Model

	tree *menu.Tree
	tr   *i18n.Table
	ctrl *controller

	menu     MenuModel
	search   SearchModel
	viewport viewport.Model
	renderer *MarkdownRenderer

	focused     focus
	pageURL     string // url being shown, "" for none
	pageGen     uint64 // history generation pageURL was loaded for
	pageTitle   string
	pageDoc     *page.Document
	pageErr     error
	pageLoading bool

	showHelp  bool // quick reference overlay
	status    string
	width     int
	height    int
	ready     bool
	menuWidth int
}

// NewModel creates the viewer. Requests share a context that is cancelled
// when the viewer quits.
func NewModel(svc HelpService, opts Options) Model {
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	return Model{
		svc:      svc,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		theme:    theme,
		st:       newStyles(theme),
		state:    stateLoading,
		spinner:  sp,
		tr:       i18n.New(opts.Language),
		ctrl:     &controller{hist: history.New()},
		menu:     NewMenuModel(theme),
		search:   NewSearchModel(theme, i18n.KeySearch),
		viewport: viewport.New(80, 20),
		renderer: NewMarkdownRendererWithTheme(78, theme),
	}
}

// Init starts loading the help bundle.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

// Close cancels every in-flight request.
func (m Model) Close() {
	m.cancel()
}

func (m Model) loadCmd() tea.Cmd {
	svc, ctx, lang := m.svc, m.ctx, m.opts.Language
	return func() tea.Msg {
		b, err := svc.LoadAll(ctx, lang)
		return bundleLoadedMsg{bundle: b, err: err}
	}
}

func (m Model) fetchPageCmd(url string) tea.Cmd {
	svc, ctx, gen := m.svc, m.ctx, m.pageGen
	return func() tea.Msg {
		p, err := svc.FetchPage(ctx, url)
		if err != nil {
			return pageLoadedMsg{url: url, gen: gen, err: err}
		}
		doc, err := toDocument(p)
		return pageLoadedMsg{url: url, gen: gen, doc: doc, err: err}
	}
}

func (m Model) downloadCmd(url string) tea.Cmd {
	svc, ctx, dir := m.svc, m.ctx, m.opts.DownloadDir
	return func() tea.Msg {
		path, err := svc.Download(ctx, url, dir)
		return downloadDoneMsg{url: url, path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	if m.pageURL == "" {
		return nil
	}
	full := m.svc.PageURL(m.pageURL)
	return func() tea.Msg {
		return clipboardMsg{url: full, err: clipboardWrite(full)}
	}
}

// toDocument converts a fetched page for display.
func toDocument(p *client.Page) (*page.Document, error) {
	ct := strings.ToLower(p.ContentType)
	switch {
	case p.IsHTML():
		return page.ToMarkdown(bytes.NewReader(p.Body), p.URL)
	case strings.HasPrefix(ct, "text/") || (ct == "" && utf8.Valid(p.Body)):
		return page.FromPlainText(string(p.Body)), nil
	default:
		return &page.Document{Markdown: "_This document cannot be shown here. Press **s** to save it._"}, nil
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bundleLoadedMsg:
		if msg.err != nil {
			m.state = stateFailed
			m.loadErr = msg.err
			return m, nil
		}
		if !m.applyBundle(msg.bundle) {
			return m, nil
		}
		if m.opts.OnLoad != nil {
			m.opts.OnLoad(msg.bundle)
		}
		return m, m.syncPage()

	case BundleReadyMsg:
		if !m.applyBundle(msg.Bundle) {
			return m, nil
		}
		m.status = "Help content reloaded"
		return m, m.syncPage()

	case BundleErrorMsg:
		m.status = "Reload failed: " + msg.Err.Error()
		return m, nil

	case pageLoadedMsg:
		if msg.url != m.pageURL || msg.gen != m.pageGen {
			return m, nil // superseded
		}
		m.pageLoading = false
		m.pageErr = msg.err
		m.pageDoc = msg.doc
		m.pageTitle = ""
		if msg.doc != nil {
			m.pageTitle = msg.doc.Title
		}
		m.renderPage()
		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.status = "Download failed: " + msg.err.Error()
		} else {
			m.status = "Saved " + msg.path
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Copied " + msg.url
		}
		return m, nil

	case searchResultMsg:
		if m.search.apply(msg, m.menu.Leaves()) && msg.err != nil {
			m.status = "Search failed, showing local matches: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyBundle installs a loaded bundle. History survives; a bundle whose
// tree cannot be built puts the viewer in the failed state.
func (m *Model) applyBundle(b *client.Bundle) bool {
	if b == nil {
		return false
	}
	tree, err := menu.Build(b.Entries, m.ctrl)
	if err != nil {
		m.state = stateFailed
		m.loadErr = err
		return false
	}
	if b.Translations != nil {
		m.tr = b.Translations
	}
	m.tree = tree
	m.menu.SetTree(tree)
	m.search.SetPlaceholder(m.tr.Get(i18n.KeySearch))
	m.state = stateReady
	m.loadErr = nil
	return true
}

// syncPage loads the page the history points at, or the home page when
// nothing is selected.
func (m *Model) syncPage() tea.Cmd {
	var cmds []tea.Cmd
	for _, u := range m.ctrl.takeDownloads() {
		m.status = "Downloading " + u + "…"
		cmds = append(cmds, m.downloadCmd(u))
	}

	target := m.ctrl.hist.Current()
	if target == "" && m.tree != nil {
		target = m.tree.HomeURL
	}
	m.menu.SetActive(target)
	gen := m.ctrl.hist.Generation()
	if target == m.pageURL && gen == m.pageGen {
		return tea.Batch(cmds...)
	}

	m.pageURL = target
	m.pageGen = gen
	m.pageErr = nil
	m.pageDoc = nil
	m.pageTitle = ""
	if target == "" {
		m.pageLoading = false
		m.renderPage()
		return tea.Batch(cmds...)
	}
	m.menu.Reveal(target)
	m.pageLoading = true
	m.renderPage()
	cmds = append(cmds, m.fetchPageCmd(target))
	return tea.Batch(cmds...)
}

func (m *Model) renderPage() {
	var content string
	switch {
	case m.pageErr != nil:
		content = m.st.errorBanner.Render("Could not load page: " + m.pageErr.Error())
	case m.pageLoading:
		content = m.st.muted.Render("Loading " + m.pageURL + "…")
	case m.pageDoc != nil:
		out, err := m.renderer.Render(m.pageDoc.Markdown)
		if err != nil {
			out = m.pageDoc.Markdown
		}
		content = out
	default:
		content = m.st.muted.Render(m.tr.Get(i18n.KeyHeaderBottom))
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return *m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	if m.search.Focused() {
		switch key {
		case "enter", "tab", "esc":
			wasActive := m.search.Active()
			m.focused = focusMenu
			cmd := m.search.Submit(m.ctx, m.svc)
			if wasActive && !m.search.Active() {
				// Emptied search deselects the result.
				m.ctrl.hist.Clear()
				return m, tea.Batch(cmd, m.syncPage())
			}
			return m, cmd
		}
		return m, m.search.Update(msg)
	}

	switch m.state {
	case stateLoading:
		if key == "q" {
			return m.quit()
		}
		return m, nil
	case stateFailed:
		switch key {
		case "q":
			return m.quit()
		case "r":
			m.state = stateLoading
			m.loadErr = nil
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		}
		return m, nil
	}

	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch key {
	case "q":
		return m.quit()
	case "?":
		m.showHelp = true
		return m, nil
	case "tab":
		if m.focused == focusMenu {
			m.focused = focusContent
		} else {
			m.focused = focusMenu
		}
		return m, nil
	case "/":
		m.focused = focusSearch
		return m, m.search.Focus()
	case "b", "backspace", "alt+left":
		if m.ctrl.hist.Back() {
			return m, m.syncPage()
		}
		return m, nil
	case "f", "alt+right":
		if m.ctrl.hist.Forward() {
			return m, m.syncPage()
		}
		return m, nil
	case "g", "home":
		if m.tree != nil && m.tree.HomeURL != "" {
			m.ctrl.hist.Home(m.tree.HomeURL)
		}
		return m, m.syncPage()
	case "x":
		m.ctrl.hist.Clear()
		return m, m.syncPage()
	case "y":
		return m, m.copyCmd()
	case "s":
		if m.pageURL == "" {
			return m, nil
		}
		m.status = "Downloading " + m.pageURL + "…"
		return m, m.downloadCmd(m.pageURL)
	case "r":
		m.status = "Reloading…"
		return m, m.loadCmd()
	case "esc":
		if m.search.Active() {
			m.search.Close()
		}
		return m, nil
	}

	if m.focused == focusContent {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.search.Active() {
		switch key {
		case "j", "down":
			m.search.MoveDown()
		case "k", "up":
			m.search.MoveUp()
		case "enter", " ":
			if hit, ok := m.search.Selected(); ok {
				return m, m.openHit(hit)
			}
		}
		return m, nil
	}

	switch key {
	case "j", "down":
		m.menu.MoveDown()
	case "k", "up":
		m.menu.MoveUp()
	case "pgdown", "ctrl+d":
		m.menu.PageDown()
	case "pgup", "ctrl+u":
		m.menu.PageUp()
	case "G", "end":
		m.menu.JumpToBottom()
	case "l", "right":
		m.menu.ExpandOrMoveToChild()
	case "h", "left":
		m.menu.CollapseOrJumpToParent()
	case "E":
		m.menu.ExpandAll()
	case "C":
		m.menu.CollapseAll()
	case "enter", " ":
		node := m.menu.Selected()
		if node == nil {
			return m, nil
		}
		if !node.IsLeaf() {
			m.menu.ToggleExpand()
		}
		if node.Activate() {
			return m, m.syncPage()
		}
	}
	return m, nil
}

func (m *Model) openHit(hit model.SearchHit) tea.Cmd {
	if hit.URL == "" {
		return nil
	}
	if hit.Type == model.TypeDownload {
		m.ctrl.Download(hit.URL)
	} else {
		m.ctrl.Navigate(hit.URL)
	}
	return m.syncPage()
}

func (m *Model) layout() {
	m.menuWidth = m.width * 35 / 100
	if m.menuWidth < 24 {
		m.menuWidth = 24
	}
	if m.menuWidth > 48 {
		m.menuWidth = 48
	}
	if m.menuWidth > m.width/2 {
		m.menuWidth = m.width / 2
	}

	bodyHeight := max(m.height-3, 3) // header and footer
	m.menu.SetSize(m.menuWidth-2, max(bodyHeight-4, 1))
	m.search.SetWidth(m.menuWidth - 2)

	contentWidth := max(m.width-m.menuWidth-2, 10)
	m.viewport.Width = contentWidth
	m.viewport.Height = max(bodyHeight-3, 1)
	m.renderer.SetWidth(contentWidth - 2)
	m.renderPage()
}

// View renders the viewer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.state {
	case stateLoading:
		msg := m.spinner.View() + " Loading help…"
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
	case stateFailed:
		banner := m.st.errorBanner.Render("Error: " + m.loadErr.Error())
		hint := m.st.muted.Render("r: retry • q: quit")
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), "", banner, hint)
	}

	if m.showHelp {
		return RenderContextHelp(m.helpContext(), m.theme, m.width, m.height)
	}

	bodyHeight := max(m.height-3, 3)

	left := m.search.InputView() + "\n" +
		m.st.muted.Render(strings.Repeat("─", max(m.menuWidth-2, 1))) + "\n"
	menuFocused := m.focused == focusMenu
	if m.search.Active() {
		left += m.search.ResultsView(max(bodyHeight-4, 1), menuFocused, m.pageURL)
	} else {
		left += m.menu.View(menuFocused)
	}

	leftStyle, rightStyle := m.st.panel, m.st.panel
	if menuFocused || m.focused == focusSearch {
		leftStyle = m.st.focused
	} else {
		rightStyle = m.st.focused
	}

	title := m.pageTitle
	if title == "" {
		title = m.pageURL
	}
	right := m.st.headerTitle.Render(runewidth.Truncate(title, max(m.viewport.Width-2, 1), "…")) + "\n" + m.viewport.View()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Width(m.menuWidth-2).Height(bodyHeight-2).Render(left),
		rightStyle.Width(m.viewport.Width).Height(bodyHeight-2).Render(right),
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) helpContext() Context {
	switch {
	case m.focused == focusContent:
		return ContextContent
	case m.search.Active():
		return ContextSearch
	default:
		return ContextMenu
	}
}

func (m Model) renderHeader() string {
	title := m.tr.Title()
	if title == "" {
		title = "Help"
	}
	sub := m.tr.Get(i18n.KeyHeaderTop) + " " + m.tr.Get(i18n.KeyHeaderBottom)
	return m.st.headerTitle.Render(title) + "\n" +
		m.st.header.Render(runewidth.Truncate(sub, max(m.width-2, 1), "…"))
}

func (m Model) renderFooter() string {
	button := func(key, label string, enabled bool) string {
		if !enabled {
			return m.st.disabled.Render(key + " " + label)
		}
		return m.st.key.Render(key) + " " + label
	}
	hist := m.ctrl.hist
	home := m.tree != nil && m.tree.HomeURL != ""

	parts := []string{
		button("g", m.tr.Get(i18n.KeyHome), home),
		button("b", "◀ "+m.tr.Get(i18n.KeyPrevious), hist.CanBack()),
		button("f", m.tr.Get(i18n.KeyNext)+" ▶", hist.CanForward()),
		button("/", m.tr.Get(i18n.KeySearch), true),
	}
	left := " " + strings.Join(parts, "  ")

	right := "? keys • tab focus • q quit "
	if m.status != "" {
		right = m.status + " "
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = runewidth.Truncate(right, max(m.width-lipgloss.Width(left)-1, 0), "…")
		gap = 1
	}
	if m.status != "" {
		right = m.st.status.Render(right)
	}
	return m.st.footer.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// CurrentURL returns the url of the page being shown
func (m Model) CurrentURL() string { return m.pageURL }

// Tree returns the menu tree, nil before loading finished
func (m Model) Tree() *menu.Tree { return m.tree }

// History returns the navigation history
func (m Model) History() *history.History { return m.ctrl.hist }

// Status returns the last status line message
func (m Model) Status() string { return m.status }

// LoadError returns the error that stopped loading, if any
func (m Model) LoadError() error { return m.loadErr }

// Loading reports whether the loading screen is shown
func (m Model) Loading() bool { return m.state == stateLoading }

// SearchResults returns the hits shown instead of the menu, nil when the
// search is not active.
func (m Model) SearchResults() []model.SearchHit {
	if !m.search.Active() {
		return nil
	}
	return m.search.Results()
}

// HelpVisible reports whether the quick reference is shown
func (m Model) HelpVisible() bool { return m.showHelp }

// SearchActive reports whether search results replace the menu
func (m Model) SearchActive() bool { return m.search.Active() }

// PageTitle returns the title of the page being shown
func (m Model) PageTitle() string { return m.pageTitle }

// String describes the model state for debugging.
func (m Model) String() string {
	return fmt.Sprintf("ui.Model{state:%d page:%q history:%d}", m.state, m.pageURL, m.ctrl.hist.Len())
}
