package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for indexed treebank documents.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Trees are persisted only as canonical bracketed notation. The constituents
// table is a derived index rebuilt from it on every (re)index.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  text_path       TEXT,
  text            TEXT NOT NULL,
  hash            TEXT,
  tree_count      INTEGER DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trees (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  ordinal         INTEGER NOT NULL,
  bracketed       TEXT NOT NULL,
  start_offset    INTEGER NOT NULL,
  end_offset      INTEGER NOT NULL,
  root_label      TEXT,
  node_count      INTEGER
);

CREATE TABLE IF NOT EXISTS constituents (
  id              INTEGER PRIMARY KEY,
  tree_id         INTEGER NOT NULL REFERENCES trees(id),
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  parent_id       INTEGER REFERENCES constituents(id),
  label           TEXT NOT NULL,
  start_offset    INTEGER NOT NULL,
  end_offset      INTEGER NOT NULL,
  depth           INTEGER NOT NULL,
  is_leaf         BOOLEAN DEFAULT FALSE,
  token           TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_trees_document ON trees(document_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_trees_offsets ON trees(document_id, start_offset, end_offset);
CREATE INDEX IF NOT EXISTS idx_constituents_tree ON constituents(tree_id);
CREATE INDEX IF NOT EXISTS idx_constituents_document ON constituents(document_id);
CREATE INDEX IF NOT EXISTS idx_constituents_label ON constituents(label);
CREATE INDEX IF NOT EXISTS idx_constituents_span ON constituents(document_id, start_offset, end_offset);
CREATE INDEX IF NOT EXISTS idx_constituents_parent ON constituents(parent_id);
`

// DeleteDocumentData transactionally removes the trees and constituents of a
// document, keeping the document row. Deletes in reverse-dependency order to
// respect FK constraints.
func (s *Store) DeleteDocumentData(documentID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentDataTx(tx, documentID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDocuments removes documents and everything derived from them.
func (s *Store) DeleteDocuments(documentIDs []int64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := placeholderList(len(documentIDs))
	args := int64sToArgs(documentIDs)
	for _, q := range []string{
		"DELETE FROM constituents WHERE document_id IN (" + placeholders + ")",
		"DELETE FROM trees WHERE document_id IN (" + placeholders + ")",
		"DELETE FROM documents WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
	}
	return tx.Commit()
}

func deleteDocumentDataTx(tx *sql.Tx, documentID int64) error {
	for _, q := range []string{
		"DELETE FROM constituents WHERE document_id = ?",
		"DELETE FROM trees WHERE document_id = ?",
		"UPDATE documents SET tree_count = 0 WHERE id = ?",
	} {
		if _, err := tx.Exec(q, documentID); err != nil {
			return fmt.Errorf("delete document data: %w", err)
		}
	}
	return nil
}
