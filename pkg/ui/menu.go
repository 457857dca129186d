package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/helpview/pkg/menu"
	"github.com/vanderheijden86/helpview/pkg/model"
)

// menuItem wraps a menu node with view state.
type menuItem struct {
	node     *menu.Node
	parent   *menuItem
	children []*menuItem
	depth    int
	expanded bool
	key      string // label path
}

// MenuModel is the table of contents pane.
type MenuModel struct {
	tree   *menu.Tree
	roots  []*menuItem
	flat   []*menuItem // visible items in display order
	byKey  map[string]*menuItem
	cursor int
	offset int // index of the first rendered item

	active string // url of the page being shown

	width  int
	height int
	theme  Theme
}

// NewMenuModel creates an empty menu.
func NewMenuModel(theme Theme) MenuModel {
	return MenuModel{theme: theme, byKey: make(map[string]*menuItem)}
}

// SetSize updates the pane dimensions.
func (m *MenuModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// SetTree replaces the menu contents. Expand state and the cursor survive
// when the same folders and pages exist in the new tree.
func (m *MenuModel) SetTree(tree *menu.Tree) {
	previous := make(map[string]bool)
	for key, item := range m.byKey {
		previous[key] = item.expanded
	}
	selected := ""
	if item := m.selectedItem(); item != nil {
		selected = item.key
	}

	m.tree = tree
	m.roots = nil
	m.byKey = make(map[string]*menuItem)
	if tree != nil {
		for _, n := range tree.Roots {
			m.roots = append(m.roots, m.wrap(n, nil, 0))
		}
	}

	for key, expanded := range previous {
		if item, ok := m.byKey[key]; ok && len(item.children) > 0 {
			item.expanded = expanded
		}
	}
	m.rebuildFlat()

	m.cursor = 0
	if selected != "" {
		m.selectKey(selected)
	}
	m.ensureVisible()
}

func (m *MenuModel) wrap(n *menu.Node, parent *menuItem, depth int) *menuItem {
	item := &menuItem{node: n, parent: parent, depth: depth, key: n.Label}
	if parent != nil {
		item.key = parent.key + "/" + n.Label
	}
	if _, dup := m.byKey[item.key]; !dup {
		m.byKey[item.key] = item
	}
	for _, child := range n.Children {
		item.children = append(item.children, m.wrap(child, item, depth+1))
	}
	return item
}

func (m *MenuModel) rebuildFlat() {
	m.flat = m.flat[:0]
	var add func(items []*menuItem)
	add = func(items []*menuItem) {
		for _, item := range items {
			m.flat = append(m.flat, item)
			if item.expanded {
				add(item.children)
			}
		}
	}
	add(m.roots)

	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *MenuModel) selectedItem() *menuItem {
	if m.cursor >= 0 && m.cursor < len(m.flat) {
		return m.flat[m.cursor]
	}
	return nil
}

// Selected returns the node under the cursor, or nil.
func (m *MenuModel) Selected() *menu.Node {
	if item := m.selectedItem(); item != nil {
		return item.node
	}
	return nil
}

func (m *MenuModel) selectKey(key string) bool {
	for i, item := range m.flat {
		if item.key == key {
			m.cursor = i
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down.
func (m *MenuModel) MoveDown() {
	if m.cursor < len(m.flat)-1 {
		m.cursor++
	}
	m.ensureVisible()
}

// MoveUp moves the cursor up.
func (m *MenuModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
	m.ensureVisible()
}

// PageDown moves the cursor down by half a pane.
func (m *MenuModel) PageDown() {
	m.cursor += m.pageSize()
	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

// PageUp moves the cursor up by half a pane.
func (m *MenuModel) PageUp() {
	m.cursor -= m.pageSize()
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

func (m *MenuModel) pageSize() int {
	if size := m.height / 2; size >= 1 {
		return size
	}
	return 5
}

// JumpToTop moves the cursor to the first item.
func (m *MenuModel) JumpToTop() {
	m.cursor = 0
	m.ensureVisible()
}

// JumpToBottom moves the cursor to the last item.
func (m *MenuModel) JumpToBottom() {
	if len(m.flat) > 0 {
		m.cursor = len(m.flat) - 1
	}
	m.ensureVisible()
}

// ToggleExpand expands or collapses the folder under the cursor.
func (m *MenuModel) ToggleExpand() {
	item := m.selectedItem()
	if item == nil || len(item.children) == 0 {
		return
	}
	item.expanded = !item.expanded
	m.rebuildFlat()
	m.ensureVisible()
}

// ExpandOrMoveToChild expands a collapsed folder, or moves into an
// expanded one.
func (m *MenuModel) ExpandOrMoveToChild() {
	item := m.selectedItem()
	if item == nil || len(item.children) == 0 {
		return
	}
	if !item.expanded {
		item.expanded = true
		m.rebuildFlat()
		} else {
		m.cursor++ // first child follows its parent
	}
	m.ensureVisible()
}

// CollapseOrJumpToParent collapses an expanded folder, or moves to the
// parent of anything else.
func (m *MenuModel) CollapseOrJumpToParent() {
	item := m.selectedItem()
	if item == nil {
		return
	}
	if len(item.children) > 0 && item.expanded {
		item.expanded = false
		m.rebuildFlat()
		} else if item.parent != nil {
		for i, other := range m.flat {
			if other == item.parent {
				m.cursor = i
				break
			}
		}
	}
	m.ensureVisible()
}

// ExpandAll expands every folder.
func (m *MenuModel) ExpandAll() { m.setExpandedAll(true) }

// CollapseAll collapses every folder.
func (m *MenuModel) CollapseAll() { m.setExpandedAll(false) }

func (m *MenuModel) setExpandedAll(expanded bool) {
	for _, item := range m.byKey {
		if len(item.children) > 0 {
			item.expanded = expanded
		}
	}
	m.rebuildFlat()
	m.ensureVisible()
}

// SetActive marks the item showing url. It does not move the cursor.
func (m *MenuModel) SetActive(url string) {
	m.active = url
}

// Active returns the url of the highlighted item
func (m *MenuModel) Active() string {
	return m.active
}

// Reveal expands the folders above the item for url and moves the cursor
// onto it. Returns false when no item has that url.
func (m *MenuModel) Reveal(url string) bool {
	if m.tree == nil {
		return false
	}
	trail := m.tree.Find(url)
	if len(trail) == 0 {
		return false
	}

	var target *menuItem
	items := m.roots
	for _, n := range trail {
		target = nil
		for _, item := range items {
			if item.node == n {
				target = item
				break
			}
		}
		if target == nil {
			return false
		}
		if n != trail[len(trail)-1] {
			target.expanded = true
		}
		items = target.children
	}

	m.rebuildFlat()
	for i, item := range m.flat {
		if item == target {
			m.cursor = i
		}
	}
	m.ensureVisible()
	return true
}

// ensureVisible scrolls so the cursor is inside the rendered window.
func (m *MenuModel) ensureVisible() {
	visible := m.height
	if visible <= 0 {
		visible = 20
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if last := len(m.flat) - visible; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *MenuModel) visibleRange() (start, end int) {
	visible := m.height
	if visible <= 0 {
		visible = 20
	}
	start = m.offset
	end = start + visible
	if end > len(m.flat) {
		end = len(m.flat)
	}
	if start > end {
		start = end
	}
	return start, end
}

// View renders the visible part of the menu.
func (m *MenuModel) View(focused bool) string {
	if len(m.flat) == 0 {
		return m.theme.Renderer.NewStyle().Foreground(m.theme.Muted).Render("No help topics.")
	}

	start, end := m.visibleRange()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.flat[i]
		line := m.renderItem(item)
		switch {
		case i == m.cursor && focused:
			line = m.theme.Selected.Render(line)
		case item.node.URL != "" && item.node.URL == m.active:
			line = m.theme.Active.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *MenuModel) renderItem(item *menuItem) string {
	prefix := m.treePrefix(item)
	indicator := "•"
	if len(item.children) > 0 {
		indicator = "▸"
		if item.expanded {
			indicator = "▾"
		}
	}
	head := prefix + indicator + " " + typeGlyph(item.node.Type) + " "

	maxLabel := m.width - runewidth.StringWidth(head)
	if maxLabel < 8 {
		maxLabel = 8
	}
	return head + runewidth.Truncate(item.node.Label, maxLabel, "…")
}

// treePrefix draws the branch lines above an item.
func (m *MenuModel) treePrefix(item *menuItem) string {
	if item.depth == 0 {
		return ""
	}
	var parts []string
	for a := item.parent; a != nil && a.depth > 0; a = a.parent {
		if m.hasSiblingsBelow(a) {
			parts = append([]string{"│ "}, parts...)
		} else {
			parts = append([]string{"  "}, parts...)
		}
	}
	if m.hasSiblingsBelow(item) {
		parts = append(parts, "├ ")
	} else {
		parts = append(parts, "└ ")
	}
	return strings.Join(parts, "")
}

func (m *MenuModel) hasSiblingsBelow(item *menuItem) bool {
	siblings := m.roots
	if item.parent != nil {
		siblings = item.parent.children
	}
	for i, s := range siblings {
		if s == item {
			return i < len(siblings)-1
		}
	}
	return false
}

func typeGlyph(t model.ItemType) string {
	switch t {
	case model.TypeFolder:
		return "▤"
	case model.TypeDownload:
		return "⤓"
	default:
		return "▢"
	}
}

// NodeCount returns the number of visible items
func (m *MenuModel) NodeCount() int { return len(m.flat) }

// RootCount returns the number of top-level items
func (m *MenuModel) RootCount() int { return len(m.roots) }

// Leaves returns every node with an action
func (m *MenuModel) Leaves() []*menu.Node {
	if m.tree == nil {
		return nil
	}
	return m.tree.Leaves()
}
