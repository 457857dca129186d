package i18n

import "testing"

func TestGetFallsBackToKey(t *testing.T) {
	tbl := New("de")
	tbl.Set(KeySearch, "Suche")
	tbl.Set(KeyHome, "")

	tests := []struct {
		key  string
		want string
	}{
		{KeySearch, "Suche"},
		{KeyHome, KeyHome}, // empty translation falls back
		{KeyNext, KeyNext}, // missing falls back
	}
	for _, tt := range tests {
		if got := tbl.Get(tt.key); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestNilAndZeroTable(t *testing.T) {
	var nilTable *Table
	if got := nilTable.Get("x"); got != "x" {
		t.Errorf("nil table Get = %q, want x", got)
	}
	if nilTable.Title() != "" || nilTable.Len() != 0 {
		t.Error("expected nil table to be empty")
	}

	var zero Table
	zero.Set("a", "b")
	if zero.Get("a") != "b" {
		t.Error("expected zero value table to accept Set")
	}
}

func TestMergeAndTitle(t *testing.T) {
	tbl := New("en")
	tbl.Merge(nil)
	if tbl.Len() != 0 {
		t.Fatalf("expected empty payload to add nothing, got %d", tbl.Len())
	}

	tbl.Merge(map[string]string{
		KeyHeaderTop: "You are in the help system of Showcase.",
		"Previous":   "Back",
	})
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", tbl.Len())
	}
	if got := tbl.Title(); got != "You are in the help system of Showcase." {
		t.Errorf("unexpected title %q", got)
	}
	if tbl.Language() != "en" {
		t.Errorf("unexpected language %q", tbl.Language())
	}
}

func TestMapIsCopy(t *testing.T) {
	tbl := New("en")
	tbl.Set("Home", "Start")

	m := tbl.Map()
	m["Home"] = "changed"
	if tbl.Get("Home") != "Start" {
		t.Error("expected Map to return a copy")
	}

	var nilTable *Table
	if len(nilTable.Map()) != 0 {
		t.Error("expected empty map for nil table")
	}
}
