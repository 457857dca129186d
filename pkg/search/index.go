// Package search keeps a full-text index of a help structure in SQLite.
package search

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/helpview/pkg/page"
)

// DefaultLimit caps the number of hits per query.
const DefaultLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path     TEXT PRIMARY KEY,
    name     TEXT NOT NULL,
    title    TEXT NOT NULL DEFAULT '',
    contents TEXT NOT NULL DEFAULT '',
    modified INTEGER NOT NULL DEFAULT 0
);
`

// Index is a searchable snapshot of the files below a directory.
type Index struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	dir  string // last indexed directory
}

// Open creates or opens an index. An empty path keeps the index in memory.
func Open(path string) (*Index, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db, path: dsn}, nil
}

// Close releases the database
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Dir returns the directory of the last successful Rebuild
func (ix *Index) Dir() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dir
}

type document struct {
	path     string
	name     string
	title    string
	contents string
	modified int64
}

// Rebuild replaces the index with the files below dir. Readers see either
// the old or the new set, never a mix. Returns the number of indexed files.
func (ix *Index) Rebuild(ctx context.Context, dir string) (int, error) {
	docs, err := collect(ctx, dir)
	if err != nil {
		return 0, err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (path, name, title, contents, modified) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.path, strings.ToLower(d.name), strings.ToLower(d.title), strings.ToLower(d.contents), d.modified); err != nil {
			return 0, fmt.Errorf("index %s: %w", d.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	ix.mu.Lock()
	ix.dir = dir
	ix.mu.Unlock()
	return len(docs), nil
}

// collect reads every indexable file below dir. Unreadable files are
// skipped with a warning.
func collect(ctx context.Context, dir string) ([]document, error) {
	var docs []document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Printf("warning: search index: %v", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if path != dir && !accept(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		doc, err := read(path)
		if err != nil {
			log.Printf("warning: search index: skipping %s: %v", path, err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return docs, nil
}

func accept(name string) bool {
	return !strings.HasPrefix(name, ".") && !strings.EqualFold(name, "structure.css")
}

// read extracts the searchable text of one file. HTML contributes its
// visible text, other UTF-8 text files their content, everything else
// only its name.
func read(path string) (document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return document{}, err
	}
	doc := document{path: path, name: filepath.Base(path), modified: info.ModTime().Unix()}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return document{}, err
		}
		text, err := page.ExtractText(bytes.NewReader(data))
		if err != nil {
			return document{}, err
		}
		doc.title = text.Title
		doc.contents = text.Body
	case ".txt", ".md", ".csv", ".xml", ".properties":
		data, err := os.ReadFile(path)
		if err != nil {
			return document{}, err
		}
		if utf8.Valid(data) {
			doc.contents = strings.Join(strings.Fields(string(data)), " ")
		}
	}
	return doc, nil
}

// Search returns the paths of files whose name, title or text contains term,
// case-insensitively, without duplicates and in path order.
func (ix *Index) Search(ctx context.Context, term string, limit int) ([]string, error) {
	term = strings.Trim(strings.TrimSpace(term), "*")
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Columns are stored lower-cased; LIKE only folds ASCII.
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	rows, err := ix.db.QueryContext(ctx, `
		SELECT path FROM documents
		WHERE name LIKE ?1 ESCAPE '\' OR title LIKE ?1 ESCAPE '\' OR contents LIKE ?1 ESCAPE '\'
		ORDER BY path
		LIMIT ?2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of indexed files
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
