// Package i18n holds the translation strings delivered by the help server.
package i18n

import (
	"sort"
	"strings"
)

// Keys used by the viewer chrome.
const (
	KeyHeaderTop    = "You are in the help system of APPLICATION."
	KeyHeaderBottom = "The table of contents supplies an overview of all topics."
	KeySearch       = "Search"
	KeyHome         = "Home"
	KeyPrevious     = "Previous"
	KeyNext         = "Next"
)

// titleMarker identifies the translation key whose value names the window.
const titleMarker = "help system"

// Table maps source strings to their translation. The zero value is usable.
type Table struct {
	language string
	entries  map[string]string
}

// New returns a table for the given language code
func New(language string) *Table {
	return &Table{language: language, entries: make(map[string]string)}
}

// Set stores one translation
func (t *Table) Set(key, value string) {
	if t.entries == nil {
		t.entries = make(map[string]string)
	}
	t.entries[key] = value
}

// Merge stores every translation in props, overriding existing keys.
// A nil map is an empty payload and leaves the table unchanged.
func (t *Table) Merge(props map[string]string) {
	for k, v := range props {
		t.Set(k, v)
	}
}

// Get returns the translation for key, or the key itself when missing
// or translated to an empty string.
func (t *Table) Get(key string) string {
	if t == nil {
		return key
	}
	if v, ok := t.entries[key]; ok && v != "" {
		return v
	}
	return key
}

// Title returns the translated window title, taken from the first key (in
// sorted order) that mentions the help system. Empty when none.
func (t *Table) Title() string {
	if t == nil {
		return ""
	}
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		if strings.Contains(k, titleMarker) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return t.entries[keys[0]]
}

// Language returns the language code of the table
func (t *Table) Language() string {
	if t == nil {
		return ""
	}
	return t.language
}

// Len returns the number of stored translations
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Map returns a copy of all translations
func (t *Table) Map() map[string]string {
	out := make(map[string]string)
	if t == nil {
		return out
	}
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}
