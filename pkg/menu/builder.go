// Package menu turns the flat help content listing into the nested menu tree.
package menu

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/helpview/pkg/model"
)

var (
	// ErrMalformedHierarchy is returned when parent references loop or point
	// at an entry that never became a node.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
	// ErrUnknownParent is returned when an entry references a parent id that
	// was not registered by any preceding entry.
	ErrUnknownParent = errors.New("unknown parent")
	// ErrDuplicateID is returned when two entries share an id.
	ErrDuplicateID = errors.New("duplicate id")
)

// HierarchyError wraps a build failure with the offending entry.
type HierarchyError struct {
	Index    int    // Position of the entry in the input
	Name     string // Entry label
	ParentID int    // Parent the entry referenced
	Err      error  // One of the sentinel errors above
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("entry %d (%q, parent %d): %v", e.Index, e.Name, e.ParentID, e.Err)
}

func (e *HierarchyError) Unwrap() error {
	return e.Err
}

// ParentTable maps an entry id to the id of its parent.
// The root sentinel terminates every chain.
type ParentTable map[int]int

// Path returns the ancestor ids of an entry, ordered from the top level down
// to the direct parent. Entries without an id start at their parent.
func (p ParentTable) Path(id *int, parentID int) ([]int, error) {
	var path []int
	visited := make(map[int]bool)

	cur := parentID
	if id != nil {
		next, ok := p[*id]
		if !ok {
			return nil, ErrUnknownParent
		}
		visited[*id] = true
		cur = next
	}

	for cur != model.RootID {
		if visited[cur] {
			return nil, ErrMalformedHierarchy
		}
		visited[cur] = true
		path = append(path, cur)

		next, ok := p[cur]
		if !ok {
			return nil, ErrUnknownParent
		}
		cur = next
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Tree is the result of Build.
type Tree struct {
	Roots   []*Node
	HomeURL string
	Parents ParentTable
}

// Build converts the flat entry list into a menu forest in a single pass.
//
// Every entry with an id is registered in the parent table before its own
// path is resolved, so the ancestor walk only needs entries seen so far.
// Siblings keep their input order. nav receives node activations and may be nil.
func Build(entries []model.Entry, nav Navigator) (*Tree, error) {
	t := &Tree{Parents: make(ParentTable)}

	for i, entry := range entries {
		if entry.IsRoot() {
			if t.HomeURL == "" {
				t.HomeURL = entry.URL
			}
			continue
		}

		fail := func(err error) (*Tree, error) {
			return nil, &HierarchyError{Index: i, Name: entry.Name, ParentID: entry.ParentID, Err: err}
		}

		if entry.HasID() {
			id := *entry.ID
			if id == model.RootID {
				return fail(ErrMalformedHierarchy)
			}
			if _, exists := t.Parents[id]; exists {
				return fail(ErrDuplicateID)
			}
			t.Parents[id] = entry.ParentID
		}

		path, err := t.Parents.Path(entry.ID, entry.ParentID)
		if err != nil {
			return fail(err)
		}

		siblings := &t.Roots
		for _, segment := range path {
			parent := findByID(*siblings, segment)
			if parent == nil || parent.Children == nil {
				return fail(ErrMalformedHierarchy)
			}
			siblings = &parent.Children
		}

		*siblings = append(*siblings, newNode(entry, nav))
	}

	if t.HomeURL == "" {
		for _, root := range t.Roots {
			if root.URL != "" {
				t.HomeURL = root.URL
				break
			}
		}
	}

	return t, nil
}

func findByID(nodes []*Node, id int) *Node {
	for _, n := range nodes {
		if n.ID != nil && *n.ID == id {
			return n
		}
	}
	return nil
}
