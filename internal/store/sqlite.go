package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is a Store backed by an embedded SQLite database.
//
// The standalone CLI uses it as the host-application stand-in: the
// documents table is the registry of "open" documents and the rules
// table holds each document's rule text. WAL mode keeps reads cheap
// while the daemon writes.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the rule database at path.
// The caller MUST call Close when done.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// initSchema creates the tables if they don't exist. Idempotent.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id        TEXT PRIMARY KEY,
		path      TEXT NOT NULL,
		name      TEXT NOT NULL,
		extension TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rules (
		doc_id TEXT NOT NULL,
		name   TEXT NOT NULL,
		text   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (doc_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_rules_doc ON rules(doc_id);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RegisterDocument adds or updates a document in the registry.
func (s *SQLiteStore) RegisterDocument(doc Document) error {
	_, err := s.conn.Exec(`
		INSERT INTO documents (id, path, name, extension)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			name = excluded.name,
			extension = excluded.extension`,
		doc.ID, doc.Path, doc.Name, doc.Extension)
	if err != nil {
		return fmt.Errorf("failed to register document %s: %w", doc.ID, err)
	}
	return nil
}

// ListDocuments returns every registered document ordered by id.
func (s *SQLiteStore) ListDocuments() ([]Document, error) {
	rows, err := s.conn.Query(`SELECT id, path, name, extension FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Path, &doc.Name, &doc.Extension); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// ListRules implements Store.ListRules.
func (s *SQLiteStore) ListRules(doc Document) ([]Rule, error) {
	rows, err := s.conn.Query(`SELECT name, text FROM rules WHERE doc_id = ? ORDER BY name`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for %s: %w", doc.ID, err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Name, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// GetRule implements Store.GetRule.
func (s *SQLiteStore) GetRule(doc Document, name string) (Rule, bool, error) {
	var r Rule
	err := s.conn.QueryRow(`SELECT name, text FROM rules WHERE doc_id = ? AND name = ?`,
		doc.ID, name).Scan(&r.Name, &r.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, false, nil
	}
	if err != nil {
		return Rule{}, false, fmt.Errorf("failed to get rule %s: %w", name, err)
	}
	return r, true, nil
}

// SetRuleText implements Store.SetRuleText.
func (s *SQLiteStore) SetRuleText(doc Document, name, text string) error {
	res, err := s.conn.Exec(`UPDATE rules SET text = ? WHERE doc_id = ? AND name = ?`,
		text, doc.ID, name)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of rule %s: %w", name, err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// AddRule implements Store.AddRule.
func (s *SQLiteStore) AddRule(doc Document, name, text string) error {
	if _, found, err := s.GetRule(doc, name); err != nil {
		return err
	} else if found {
		return ErrRuleExists
	}
	if _, err := s.conn.Exec(`INSERT INTO rules (doc_id, name, text) VALUES (?, ?, ?)`,
		doc.ID, name, text); err != nil {
		return fmt.Errorf("failed to add rule %s: %w", name, err)
	}
	return nil
}

// DeleteRule implements Store.DeleteRule.
func (s *SQLiteStore) DeleteRule(doc Document, name string) error {
	res, err := s.conn.Exec(`DELETE FROM rules WHERE doc_id = ? AND name = ?`, doc.ID, name)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of rule %s: %w", name, err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}
