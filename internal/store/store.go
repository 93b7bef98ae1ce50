// Package store persists cached document texts, answer feedback and the
// record of loaded passage files in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS document_texts (
		document_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		query TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		helpful INTEGER NOT NULL,
		correction TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_document ON feedback(document_id);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetText returns the cached text of a document, or "" if none is stored.
func (s *Store) GetText(ctx context.Context, documentID string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM document_texts WHERE document_id = ?`, documentID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return text, err
}

// PutText stores or replaces the cached text of a document.
func (s *Store) PutText(ctx context.Context, documentID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_texts (document_id, text, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		documentID, text, time.Now().UTC(),
	)
	return err
}

// DeleteText removes the cached text of a document.
func (s *Store) DeleteText(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_texts WHERE document_id = ?`, documentID)
	return err
}

// GetImportedFileHash returns the hash recorded for path, or "" if the file
// was never loaded.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records that path was loaded with the given hash.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}
