package treebank

import (
	"github.com/jward/treebank/internal/runtime"
	"github.com/jward/treebank/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// API. External consumers use these names; no conversion is needed.

type Store = store.Store
type Document = store.Document
type TreeRecord = store.TreeRecord
type Constituent = store.Constituent
type LabelCount = store.LabelCount

// Row is one record emitted by a feature script.
type Row = runtime.Row
