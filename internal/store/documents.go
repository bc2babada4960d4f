package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- Document operations ---

func (s *Store) InsertDocument(d *Document) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO documents (path, text_path, text, hash, tree_count, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
		d.Path, d.TextPath, d.Text, d.Hash, d.TreeCount, d.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// SetTreeCount records how many trees were committed for a document.
func (s *Store) SetTreeCount(documentID int64, n int) error {
	if _, err := s.db.Exec("UPDATE documents SET tree_count = ? WHERE id = ?", n, documentID); err != nil {
		return fmt.Errorf("set tree count: %w", err)
	}
	return nil
}

// SetDocumentText replaces the stored text of a document. Used when the text
// is synthesized from the trees after the document row was created.
func (s *Store) SetDocumentText(documentID int64, text string) error {
	if _, err := s.db.Exec("UPDATE documents SET text = ? WHERE id = ?", text, documentID); err != nil {
		return fmt.Errorf("set document text: %w", err)
	}
	return nil
}

const documentCols = "id, path, text_path, text, hash, tree_count, last_indexed"

func scanDocument(sc scanner) (*Document, error) {
	d := &Document{}
	if err := sc.Scan(&d.ID, &d.Path, &d.TextPath, &d.Text, &d.Hash, &d.TreeCount, &d.LastIndexed); err != nil {
		return nil, err
	}
	return d, nil
}

// DocumentByPath returns the document indexed from path, or nil if none.
func (s *Store) DocumentByPath(path string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow("SELECT "+documentCols+" FROM documents WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by path: %w", err)
	}
	return d, nil
}

// DocumentByID returns the document with the given ID, or nil if none.
func (s *Store) DocumentByID(id int64) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow("SELECT "+documentCols+" FROM documents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by id: %w", err)
	}
	return d, nil
}

// Documents returns all documents ordered by path.
func (s *Store) Documents() ([]*Document, error) {
	rows, err := s.db.Query("SELECT " + documentCols + " FROM documents ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Tree operations ---

func (s *Store) InsertTree(t *TreeRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO trees (document_id, ordinal, bracketed, start_offset, end_offset, root_label, node_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.DocumentID, t.Ordinal, t.Bracketed, t.StartOffset, t.EndOffset, t.RootLabel, t.NodeCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tree: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return id, nil
}

const treeCols = "id, document_id, ordinal, bracketed, start_offset, end_offset, root_label, node_count"

func scanTree(sc scanner) (*TreeRecord, error) {
	t := &TreeRecord{}
	if err := sc.Scan(&t.ID, &t.DocumentID, &t.Ordinal, &t.Bracketed,
		&t.StartOffset, &t.EndOffset, &t.RootLabel, &t.NodeCount); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) queryTrees(query string, args ...any) ([]*TreeRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trees []*TreeRecord
	for rows.Next() {
		t, err := scanTree(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		trees = append(trees, t)
	}
	return trees, rows.Err()
}

// TreesByDocument returns the trees of a document in document order.
func (s *Store) TreesByDocument(documentID int64) ([]*TreeRecord, error) {
	return s.queryTrees("SELECT "+treeCols+" FROM trees WHERE document_id = ? ORDER BY ordinal", documentID)
}

// TreeByID returns the tree with the given ID, or nil if none.
func (s *Store) TreeByID(id int64) (*TreeRecord, error) {
	t, err := scanTree(s.db.QueryRow("SELECT "+treeCols+" FROM trees WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tree by id: %w", err)
	}
	return t, nil
}

// TreeCovering returns the first tree of a document whose root span contains
// [start, end), or nil if none does.
func (s *Store) TreeCovering(documentID int64, start, end int) (*TreeRecord, error) {
	trees, err := s.queryTrees(
		"SELECT "+treeCols+` FROM trees
		 WHERE document_id = ? AND start_offset <= ? AND end_offset >= ?
		 ORDER BY ordinal LIMIT 1`,
		documentID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("tree covering: %w", err)
	}
	if len(trees) == 0 {
		return nil, nil
	}
	return trees[0], nil
}

// --- Constituent operations ---

func (s *Store) InsertConstituent(c *Constituent) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO constituents (tree_id, document_id, parent_id, label, start_offset, end_offset, depth, is_leaf, token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TreeID, c.DocumentID, c.ParentID, c.Label, c.StartOffset, c.EndOffset, c.Depth, c.IsLeaf, c.Token,
	)
	if err != nil {
		return 0, fmt.Errorf("insert constituent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

// ConstituentCols is the column list for constituent queries, exported for
// use by QueryBuilder.
const ConstituentCols = "id, tree_id, document_id, parent_id, label, start_offset, end_offset, depth, is_leaf, token"

// ScanConstituentRow scans a single row selected with ConstituentCols.
func ScanConstituentRow(sc interface{ Scan(...any) error }) (*Constituent, error) {
	c := &Constituent{}
	var token sql.NullString
	if err := sc.Scan(&c.ID, &c.TreeID, &c.DocumentID, &c.ParentID, &c.Label,
		&c.StartOffset, &c.EndOffset, &c.Depth, &c.IsLeaf, &token); err != nil {
		return nil, err
	}
	c.Token = token.String
	return c, nil
}

func (s *Store) queryConstituents(query string, args ...any) ([]*Constituent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Constituent
	for rows.Next() {
		c, err := ScanConstituentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan constituent: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConstituentsByTree returns the constituents of a tree in preorder.
func (s *Store) ConstituentsByTree(treeID int64) ([]*Constituent, error) {
	return s.queryConstituents("SELECT "+ConstituentCols+" FROM constituents WHERE tree_id = ? ORDER BY id", treeID)
}

// ConstituentsBySpan returns every constituent of a document whose span is
// exactly [start, end), shallowest first.
func (s *Store) ConstituentsBySpan(documentID int64, start, end int) ([]*Constituent, error) {
	return s.queryConstituents(
		"SELECT "+ConstituentCols+` FROM constituents
		 WHERE document_id = ? AND start_offset = ? AND end_offset = ?
		 ORDER BY depth, id`,
		documentID, start, end,
	)
}

// ConstituentsByLabel returns constituents carrying label across all
// documents, in document and preorder order.
func (s *Store) ConstituentsByLabel(label string, limit, offset int) ([]*Constituent, error) {
	return s.queryConstituents(
		"SELECT "+ConstituentCols+` FROM constituents WHERE label = ?
		 ORDER BY document_id, id LIMIT ? OFFSET ?`,
		label, limit, offset,
	)
}

// CountConstituentsByLabel returns the total for ConstituentsByLabel.
func (s *Store) CountConstituentsByLabel(label string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM constituents WHERE label = ?", label).Scan(&n); err != nil {
		return 0, fmt.Errorf("count constituents by label: %w", err)
	}
	return n, nil
}

// LabelCounts returns constituent counts per label, most frequent first.
// limit <= 0 returns every label.
func (s *Store) LabelCounts(limit int) ([]LabelCount, error) {
	query := "SELECT label, COUNT(*) AS n FROM constituents GROUP BY label ORDER BY n DESC, label"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("label counts: %w", err)
	}
	defer rows.Close()
	var out []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// Counts returns the number of documents, trees and constituents.
func (s *Store) Counts() (documents, trees, constituents int, err error) {
	err = s.db.QueryRow(
		`SELECT (SELECT COUNT(*) FROM documents),
		        (SELECT COUNT(*) FROM trees),
		        (SELECT COUNT(*) FROM constituents)`,
	).Scan(&documents, &trees, &constituents)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("counts: %w", err)
	}
	return documents, trees, constituents, nil
}

// --- Metadata ---

// GetMetadata returns the value stored under key, or "" if unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return v.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
