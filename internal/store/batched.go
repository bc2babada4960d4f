package store

import "sync"

// BatchedStore buffers index inserts in memory using fake (negative) IDs. It
// implements DataStore so a decode worker can write to it without knowing
// whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Trees        []TreeRecord
	Constituents []Constituent

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertTree(t *TreeRecord) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	t.ID = fakeID
	b.Trees = append(b.Trees, *t)
	return fakeID, nil
}

func (b *BatchedStore) InsertConstituent(c *Constituent) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Constituents = append(b.Constituents, *c)
	return fakeID, nil
}

// TreesByDocument returns trees for a document, merging any buffered (not yet
// committed) trees with those already in the database.
func (b *BatchedStore) TreesByDocument(documentID int64) ([]*TreeRecord, error) {
	dbTrees, err := b.store.TreesByDocument(documentID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Trees {
		if b.Trees[i].DocumentID == documentID {
			dbTrees = append(dbTrees, &b.Trees[i])
		}
	}
	return dbTrees, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Trees) + len(b.Constituents)
}
