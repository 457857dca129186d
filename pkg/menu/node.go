package menu

import "github.com/vanderheijden86/helpview/pkg/model"

// Navigator receives node activations. The navigation controller of the
// viewer implements it.
type Navigator interface {
	Navigate(url string)
	Download(url string)
}

// ActionKind describes what activating a node does
type ActionKind int

const (
	ActionNone     ActionKind = iota // Folder without a page: only expands/collapses
	ActionNavigate                   // Show the page in the content pane
	ActionDownload                   // Save the document to disk
)

// Node is one entry of the rendered menu.
type Node struct {
	ID       *int // Set for entries that can hold children
	Label    string
	Icon     string
	Type     model.ItemType
	URL      string
	Action   ActionKind
	Children []*Node // nil for leaves, non-nil (possibly empty) for entries with an id

	nav Navigator
}

func newNode(entry model.Entry, nav Navigator) *Node {
	n := &Node{
		ID:    entry.ID,
		Label: entry.Name,
		Icon:  entry.Icon,
		Type:  entry.Type,
		URL:   entry.URL,
		nav:   nav,
	}
	if entry.HasID() {
		n.Children = []*Node{}
	}

	switch {
	case entry.Type == model.TypeDownload && entry.URL != "":
		n.Action = ActionDownload
	case entry.URL != "":
		n.Action = ActionNavigate
	}
	return n
}

// IsLeaf reports whether the node has no children slot
func (n *Node) IsLeaf() bool {
	return n.Children == nil
}

// HasChildren reports whether the node currently holds children
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Activate runs the node's action. Returns false when there is nothing to do.
func (n *Node) Activate() bool {
	if n.nav == nil {
		return false
	}
	switch n.Action {
	case ActionNavigate:
		n.nav.Navigate(n.URL)
	case ActionDownload:
		n.nav.Download(n.URL)
	default:
		return false
	}
	return true
}

// Walk visits every node depth-first in display order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(t.Roots, 0)
}

// Find returns the chain of nodes from the top level down to the first node
// whose url equals url, or nil if there is none.
func (t *Tree) Find(url string) []*Node {
	if url == "" {
		return nil
	}
	var find func(nodes []*Node, trail []*Node) []*Node
	find = func(nodes []*Node, trail []*Node) []*Node {
		for _, n := range nodes {
			next := append(trail[:len(trail):len(trail)], n)
			if n.URL == url {
				return next
			}
			if found := find(n.Children, next); found != nil {
				return found
			}
		}
		return nil
	}
	return find(t.Roots, nil)
}

// Leaves returns every node with an action, in display order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Action != ActionNone {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Count returns the total number of nodes.
func (t *Tree) Count() int {
	count := 0
	t.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}
