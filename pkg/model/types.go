package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

// RootID is the id of the sentinel entry at the top of every help tree.
const RootID = -1

// ItemType categorizes a help entry
type ItemType string

const (
	TypeFolder   ItemType = "folder"
	TypeFile     ItemType = "file"
	TypeDownload ItemType = "download"
)

// IsValid returns true if the item type is one of the known values
func (t ItemType) IsValid() bool {
	switch t {
	case TypeFolder, TypeFile, TypeDownload:
		return true
	}
	return false
}

// EntryKind distinguishes the root sentinel from regular help items.
type EntryKind int

const (
	KindItem EntryKind = iota
	KindRoot
)

func (k EntryKind) String() string {
	if k == KindRoot {
		return "root"
	}
	return "item"
}

// Entry is one element of the flat content listing returned by the help server.
//
// The listing is a tagged union: exactly one Root entry (id -1, no parent)
// followed by Item entries that reference their parent by id. Leaf items that
// can never contain children carry no id of their own.
type Entry struct {
	Kind     EntryKind
	ID       *int     // nil for leaf content items
	ParentID int      // meaningful for KindItem only
	Name     string
	Type     ItemType // empty for a root without a home page
	Icon     string
	URL      string
}

// NewRoot returns the sentinel entry. url is the home page, may be empty.
func NewRoot(url string) Entry {
	id := RootID
	e := Entry{Kind: KindRoot, ID: &id, ParentID: RootID, Name: "ROOT", URL: url}
	if url != "" {
		e.Type = TypeFile
	}
	return e
}

// NewFolder returns an item entry with its own id.
func NewFolder(id, parentID int, name string) Entry {
	return Entry{Kind: KindItem, ID: &id, ParentID: parentID, Name: name, Type: TypeFolder}
}

// NewLeaf returns an item entry without id.
func NewLeaf(parentID int, name string, typ ItemType, url string) Entry {
	return Entry{Kind: KindItem, ParentID: parentID, Name: name, Type: typ, URL: url}
}

// IsRoot reports whether the entry is the root sentinel
func (e Entry) IsRoot() bool {
	return e.Kind == KindRoot
}

// HasID reports whether the entry carries its own id (and may have children)
func (e Entry) HasID() bool {
	return e.ID != nil
}

// wireEntry mirrors the JSON shape. Pointers record field presence.
type wireEntry struct {
	ID       *int     `json:"id,omitempty"`
	ParentID *int     `json:"parentID,omitempty"`
	Name     string   `json:"name"`
	Type     ItemType `json:"type,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// UnmarshalJSON decodes an entry, deciding the variant from field presence:
// an object with parentID is an item, an object with id -1 and no parentID
// is the root.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.ParentID != nil:
		*e = Entry{
			Kind:     KindItem,
			ID:       w.ID,
			ParentID: *w.ParentID,
			Name:     w.Name,
			Type:     w.Type,
			Icon:     w.Icon,
			URL:      w.URL,
		}
	case w.ID != nil && *w.ID == RootID:
		*e = NewRoot(w.URL)
		if w.Name != "" {
			e.Name = w.Name
		}
		e.Icon = w.Icon
	default:
		return fmt.Errorf("entry %q has neither parentID nor root id", w.Name)
	}
	return nil
}

// MarshalJSON encodes the entry in the server wire format
func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{
		ID:   e.ID,
		Name: e.Name,
		Type: e.Type,
		Icon: e.Icon,
		URL:  e.URL,
	}
	if e.Kind == KindRoot {
		id := RootID
		w.ID = &id
	} else {
		pid := e.ParentID
		w.ParentID = &pid
	}
	return json.Marshal(w)
}

// SearchHit is one result row of the search endpoint
type SearchHit struct {
	Name string   `json:"name"`
	Type ItemType `json:"type"`
	Icon string   `json:"icon,omitempty"`
	URL  string   `json:"url"`
}

// TranslationPayload is the body of the translation endpoint
type TranslationPayload struct {
	Language     string            `json:"language,omitempty"`
	AsProperties map[string]string `json:"asProperties,omitempty"`
}
