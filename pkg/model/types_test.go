package model

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestItemType_IsValid(t *testing.T) {
	tests := []struct {
		name string
		typ  ItemType
		want bool
	}{
		{"Folder", TypeFolder, true},
		{"File", TypeFile, true},
		{"Download", TypeDownload, true},
		{"Unknown", "link", false},
		{"Empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsValid(); got != tt.want {
				t.Errorf("ItemType.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryUnmarshal_RootAndItems(t *testing.T) {
	data := `[
		{"id": -1, "name": "ROOT"},
		{"id": 1, "type": "folder", "name": "General", "parentID": -1},
		{"type": "file", "name": "Contacts", "url": "/c.html", "parentID": 1}
	]`

	var entries []Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if !entries[0].IsRoot() {
		t.Errorf("expected first entry to be root, got %v", entries[0].Kind)
	}
	if entries[0].URL != "" {
		t.Errorf("expected root without url, got %q", entries[0].URL)
	}

	folder := entries[1]
	if folder.IsRoot() || !folder.HasID() || *folder.ID != 1 || folder.ParentID != -1 {
		t.Errorf("unexpected folder entry: %+v", folder)
	}

	leaf := entries[2]
	if leaf.HasID() {
		t.Errorf("expected leaf without id, got %d", *leaf.ID)
	}
	if leaf.ParentID != 1 || leaf.URL != "/c.html" || leaf.Type != TypeFile {
		t.Errorf("unexpected leaf entry: %+v", leaf)
	}
}

func TestEntryUnmarshal_RootWithHome(t *testing.T) {
	var e Entry
	if err := json.Unmarshal([]byte(`{"id":-1,"name":"HOME","type":"file","url":"/structure/index.html"}`), &e); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !e.IsRoot() {
		t.Fatal("expected root entry")
	}
	if e.URL != "/structure/index.html" {
		t.Errorf("expected home url, got %q", e.URL)
	}
	if e.Name != "HOME" {
		t.Errorf("expected name HOME, got %q", e.Name)
	}
}

func TestEntryUnmarshal_RejectsUntagged(t *testing.T) {
	var e Entry
	err := json.Unmarshal([]byte(`{"id":4,"name":"Orphan"}`), &e)
	if err == nil {
		t.Fatal("expected error for entry without parentID")
	}
	if !strings.Contains(err.Error(), "Orphan") {
		t.Errorf("expected error to name the entry, got %v", err)
	}
}

func TestEntryMarshal_WireShape(t *testing.T) {
	root, err := json.Marshal(NewRoot(""))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(root), "parentID") {
		t.Errorf("root must not carry parentID: %s", root)
	}

	leaf, err := json.Marshal(NewLeaf(-1, "Top", TypeFile, "/top.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(leaf), `"parentID":-1`) {
		t.Errorf("top-level leaf must carry parentID -1: %s", leaf)
	}
	if strings.Contains(string(leaf), `"id"`) {
		t.Errorf("leaf must not carry an id: %s", leaf)
	}
}
