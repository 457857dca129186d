// Package structure builds the help content listing from a help root: a
// directory whose structure/ subdirectory holds the pages, one directory per
// folder of the table of contents.
package structure

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vanderheijden86/helpview/pkg/model"
)

const (
	indexFile     = "index.html"
	styleFile     = "structure.css"
	iconDir       = "images/tree"
	homeEntryName = "HOME"
)

// Translator maps display names. *i18n.Table satisfies it.
type Translator interface {
	Get(key string) string
}

// Walker lists the entries below a help root.
type Walker struct {
	// Root is the help root, the parent of the structure directory.
	Root string
	// URLBase is the directory urls are relative to, the document root of
	// the content server. Defaults to Root.
	URLBase string
	// Translate renames entries. Optional.
	Translate Translator
}

// StructureDir returns the directory that is listed
func (w *Walker) StructureDir() string {
	return filepath.Join(w.Root, "structure")
}

// Entries returns the flat content listing: the root entry first, then every
// folder followed by its contents, depth-first. Folder ids are assigned in
// visiting order starting at 1.
func (w *Walker) Entries() ([]model.Entry, error) {
	dir := w.StructureDir()
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat structure directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	home := model.NewRoot("")
	home.Name = homeEntryName
	if index := filepath.Join(dir, indexFile); isFile(index) {
		if u, err := w.URL(index); err == nil {
			home.URL = u
			home.Type = model.TypeFile
		}
	}

	entries := []model.Entry{home}
	nextID := 1
	if err := w.walk(dir, model.RootID, &nextID, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (w *Walker) walk(dir string, parentID int, nextID *int, out *[]model.Entry) error {
	list, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	names := make([]string, 0, len(list))
	for _, e := range list {
		if accept(e.Name()) {
			names = append(names, e.Name())
		}
	}
	SortNames(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue // vanished or dangling link
		}

		if !info.IsDir() {
			entry, err := w.fileEntry(path)
			if err != nil {
				return err
			}
			entry.ParentID = parentID
			*out = append(*out, entry)
			continue
		}

		id := *nextID
		*nextID++

		folder := model.NewFolder(id, parentID, w.translate(ConvertName(name, true)))
		folder.Icon = w.icon(ConvertName(name, false), "folder")
		if index := filepath.Join(path, indexFile); isFile(index) {
			if u, err := w.URL(index); err == nil {
				folder.URL = u
			}
		}
		*out = append(*out, folder)

		if err := w.walk(path, id, nextID, out); err != nil {
			return err
		}
	}
	return nil
}

// FileEntry describes a single page or document, the shape search results use.
func (w *Walker) FileEntry(path string) (model.SearchHit, error) {
	e, err := w.fileEntry(path)
	if err != nil {
		return model.SearchHit{}, err
	}
	return model.SearchHit{Name: e.Name, Type: e.Type, Icon: e.Icon, URL: e.URL}, nil
}

func (w *Walker) fileEntry(path string) (model.Entry, error) {
	name := filepath.Base(path)
	u, err := w.URL(path)
	if err != nil {
		return model.Entry{}, err
	}

	typ := model.TypeDownload
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".html" || ext == ".htm" {
		typ = model.TypeFile
	}

	e := model.NewLeaf(0, w.translate(ConvertName(name, false)), typ, u)
	if ext := filepath.Ext(name); len(ext) > 1 {
		e.Icon = w.icon(ext[1:], "file")
	} else {
		e.Icon = w.icon("", "file")
	}
	return e, nil
}

// URL returns the browser path of a file below URLBase, each segment
// percent-encoded.
func (w *Walker) URL(path string) (string, error) {
	base := w.URLBase
	if base == "" {
		base = w.Root
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, base)
	}
	var b strings.Builder
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		b.WriteByte('/')
		b.WriteString(EncodeURLPart(part))
	}
	return b.String(), nil
}

// icon returns the url of images/tree/<name>.png, falling back to the
// generic icon, or "" when neither exists.
func (w *Walker) icon(name, fallback string) string {
	for _, candidate := range []string{name, fallback} {
		if candidate == "" {
			continue
		}
		file := filepath.Join(w.Root, filepath.FromSlash(iconDir), strings.ToLower(candidate)+".png")
		if !isFile(file) {
			continue
		}
		if u, err := w.URL(file); err == nil {
			return u
		}
	}
	return ""
}

func (w *Walker) translate(name string) string {
	if w.Translate == nil {
		return name
	}
	return w.Translate.Get(name)
}

func accept(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.EqualFold(name, indexFile) &&
		!strings.EqualFold(name, styleFile)
}

// ConvertName turns a file or directory name into a label.
//
//	01_Common                       -> Common
//	TK Sites$apps.sites.Sites.html  -> TK Sites.html (keepExt) / TK Sites
//	Information.doc                 -> Information.doc (keepExt) / Information
func ConvertName(name string, keepExt bool) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		name = name[i+1:]
	}

	quick := strings.IndexByte(name, '$')
	if keepExt {
		if quick > 0 {
			if dot := strings.LastIndexByte(name, '.'); dot > quick {
				return name[:quick] + name[dot:]
			}
			return name[:quick]
		}
		return name
	}

	if quick > 0 {
		return name[:quick]
	}
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		return name[:dot]
	}
	return name
}

// SortNames orders directory entries: names with a numeric "NN_" prefix
// first by that number, the rest case-insensitively.
func SortNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, okI := sortPrefix(names[i])
		pj, okJ := sortPrefix(names[j])
		switch {
		case okI && okJ:
			if pi != pj {
				return pi < pj
			}
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		case okI != okJ:
			return okI
		default:
			return strings.ToLower(names[i]) < strings.ToLower(names[j])
		}
	})
}

func sortPrefix(name string) (int, bool) {
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EncodeURLPart percent-encodes one path segment. Letters, digits and
// $-_.!'(), stay as they are; every other byte of the UTF-8 form is escaped.
func EncodeURLPart(part string) string {
	const hex = "0123456789abcdef"
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		c := part[i]
		if isURLSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURLSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("$-_.!'(),/", c) >= 0
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
