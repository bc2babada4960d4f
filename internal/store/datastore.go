package store

// DataStore is the interface for index-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel indexing)
// implement this interface.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertTree(t *TreeRecord) (int64, error)
	InsertConstituent(c *Constituent) (int64, error)

	TreesByDocument(documentID int64) ([]*TreeRecord, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
