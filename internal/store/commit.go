package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive, AUTOINCREMENT) IDs, and all FK references within the batch
// are rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Trees (depend on document_id only, which is already real)
//  2. Constituents (depend on tree_id and parent_id; parents precede
//     children because constituents are buffered in preorder)
//
// The document's tree_count is updated in the same transaction.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	treesPerDoc := make(map[int64]int)

	// 1. Trees
	for _, t := range batch.Trees {
		realID, err := insertTreeTx(tx, &t)
		if err != nil {
			return fmt.Errorf("commit batch: tree %d: %w", t.Ordinal, err)
		}
		fakeToReal[t.ID] = realID
		treesPerDoc[t.DocumentID]++
	}

	// 2. Constituents
	for _, c := range batch.Constituents {
		if c.TreeID < 0 {
			realID, ok := fakeToReal[c.TreeID]
			if !ok {
				return fmt.Errorf("commit batch: constituent %q has tree_id=%d not in fakeToReal map (have %d trees)", c.Label, c.TreeID, len(batch.Trees))
			}
			c.TreeID = realID
		}
		if c.ParentID != nil && *c.ParentID < 0 {
			realID, ok := fakeToReal[*c.ParentID]
			if !ok {
				return fmt.Errorf("commit batch: constituent %q has parent_id=%d before its parent", c.Label, *c.ParentID)
			}
			c.ParentID = &realID
		}
		realID, err := insertConstituentTx(tx, &c)
		if err != nil {
			return fmt.Errorf("commit batch: constituent %q: %w", c.Label, err)
		}
		fakeToReal[c.ID] = realID
	}

	for docID, n := range treesPerDoc {
		if _, err := tx.Exec("UPDATE documents SET tree_count = tree_count + ? WHERE id = ?", n, docID); err != nil {
			return fmt.Errorf("commit batch: tree count: %w", err)
		}
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertTreeTx(tx *sql.Tx, t *TreeRecord) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO trees (document_id, ordinal, bracketed, start_offset, end_offset, root_label, node_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.DocumentID, t.Ordinal, t.Bracketed, t.StartOffset, t.EndOffset, t.RootLabel, t.NodeCount,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertConstituentTx(tx *sql.Tx, c *Constituent) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO constituents (tree_id, document_id, parent_id, label, start_offset, end_offset, depth, is_leaf, token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TreeID, c.DocumentID, c.ParentID, c.Label, c.StartOffset, c.EndOffset, c.Depth, c.IsLeaf, c.Token,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
