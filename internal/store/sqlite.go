package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore reads a content tree from a SQLite database produced by
// SQLiteWriter (cmd/build). The database is treated as immutable; all
// queries are point lookups on the primary key or the parent index.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens a store database created by SQLiteWriter.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetNode implements Store.
func (s *SQLiteStore) GetNode(ctx context.Context, path string) (*Node, error) {
	path = Normalize(path)
	n := &Node{Path: path}
	err := s.db.QueryRowContext(ctx,
		"SELECT type FROM nodes WHERE path = ?", path).Scan(&n.Type)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select node %s: %w", path, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, value FROM props WHERE path = ? ORDER BY name, idx", path)
	if err != nil {
		return nil, fmt.Errorf("select props %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan prop %s: %w", path, err)
		}
		if n.Properties == nil {
			n.Properties = map[string][]string{}
		}
		n.Properties[name] = append(n.Properties[name], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate props %s: %w", path, err)
	}

	caps, err := s.db.QueryContext(ctx,
		"SELECT name FROM caps WHERE path = ? ORDER BY name", path)
	if err != nil {
		return nil, fmt.Errorf("select caps %s: %w", path, err)
	}
	defer func() { _ = caps.Close() }()
	for caps.Next() {
		var name string
		if err := caps.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cap %s: %w", path, err)
		}
		n.Capabilities = append(n.Capabilities, name)
	}
	if err := caps.Err(); err != nil {
		return nil, fmt.Errorf("iterate caps %s: %w", path, err)
	}

	children, err := s.db.QueryContext(ctx,
		"SELECT name FROM nodes WHERE parent = ? ORDER BY ord", path)
	if err != nil {
		return nil, fmt.Errorf("select children %s: %w", path, err)
	}
	defer func() { _ = children.Close() }()
	for children.Next() {
		var name string
		if err := children.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan child %s: %w", path, err)
		}
		n.Children = append(n.Children, name)
	}
	if err := children.Err(); err != nil {
		return nil, fmt.Errorf("iterate children %s: %w", path, err)
	}
	return n, nil
}

// Walk implements Store. Children are visited in stored order (the ord
// column), which preserves configuration order for mapping rules.
func (s *SQLiteStore) Walk(ctx context.Context, root string, fn WalkFunc) error {
	n, err := s.GetNode(ctx, root)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, name := range n.Children {
		if err := s.Walk(ctx, Join(n.Path, name), fn); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // dangling child link
			}
			return err
		}
	}
	return nil
}

// SQLiteWriter builds a store database. All writes happen in a single
// transaction committed by Close.
type SQLiteWriter struct {
	db  *sql.DB
	tx  *sql.Tx
	ord map[string]int // parent path → next child ordinal
}

// NewSQLiteWriter creates (or overwrites the content of) a store database.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			path TEXT PRIMARY KEY,
			parent TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			ord INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent, ord);
		CREATE TABLE IF NOT EXISTS props (
			path TEXT NOT NULL,
			name TEXT NOT NULL,
			idx INTEGER NOT NULL,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_props_path ON props(path);
		CREATE TABLE IF NOT EXISTS caps (
			path TEXT NOT NULL,
			name TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_caps_path ON caps(path);
		DELETE FROM nodes; DELETE FROM props; DELETE FROM caps;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create store schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin store tx: %w", err)
	}
	return &SQLiteWriter{db: db, tx: tx, ord: map[string]int{}}, nil
}

// WriteNode inserts one node. Parents must be written before children so
// that sibling order follows write order.
func (w *SQLiteWriter) WriteNode(n *Node) error {
	path := Normalize(n.Path)
	parent := Parent(path)
	if path == "/" {
		parent = "" // keep the root out of its own child list
	}
	ord := w.ord[parent]
	w.ord[parent] = ord + 1
	if _, err := w.tx.Exec(
		"INSERT OR REPLACE INTO nodes (path, parent, name, type, ord) VALUES (?, ?, ?, ?, ?)",
		path, parent, Base(path), n.Type, ord); err != nil {
		return fmt.Errorf("insert node %s: %w", path, err)
	}
	for name, values := range n.Properties {
		for i, v := range values {
			if _, err := w.tx.Exec(
				"INSERT INTO props (path, name, idx, value) VALUES (?, ?, ?, ?)",
				path, name, i, v); err != nil {
				return fmt.Errorf("insert prop %s/%s: %w", path, name, err)
			}
		}
	}
	for _, c := range n.Capabilities {
		if _, err := w.tx.Exec(
			"INSERT INTO caps (path, name) VALUES (?, ?)", path, c); err != nil {
			return fmt.Errorf("insert cap %s/%s: %w", path, c, err)
		}
	}
	return nil
}

// Close commits the transaction and closes the database.
func (w *SQLiteWriter) Close() error {
	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("commit store tx: %w", err)
	}
	return w.db.Close()
}
