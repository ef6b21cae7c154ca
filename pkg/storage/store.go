package storage

import (
	"github.com/burrowdb/burrow/pkg/types"
)

// Direction selects the iteration order of a range scan.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// HighSentinel is the default exclusive upper bound of a range scan. It sorts
// above any key the API accepts.
const HighSentinel = "\uFFF0"

// Unbounded disables the result count limit of a range scan. It is negative
// so that an explicit limit of 0 keeps its literal meaning: no results.
const Unbounded = -1

// Store is the typed column-family facade over the embedded engine. All
// methods are safe for concurrent use and identify a column family by its
// internal (namespaced) name.
type Store interface {
	// Column family lifecycle.
	CFExists(cf string) bool
	CreateCF(cf string) error
	DropCF(cf string) error

	// Single-document operations. Values are JSON-serializable; Get decodes
	// into out.
	Get(cf, key string, out any) error
	Has(cf, key string) (bool, error)
	Insert(cf, key string, value any) error
	Delete(cf, key string) error

	// BatchInsert commits all pairs atomically or none of them.
	BatchInsert(cf string, pairs []types.KeyValue) error

	// Ordered range scans. from is inclusive, to exclusive, limit caps the
	// result count (Unbounded for no cap).
	GetRange(cf, from, to string, limit int, dir Direction) ([]any, error)
	GetRangeWithKeys(cf, from, to string, limit int, dir Direction) ([]types.KeyValue, error)

	// JSONPath queries over every document in the column family. Results
	// preserve iteration order.
	Query(cf, path string) ([]any, error)
	QueryWithKeys(cf, path string) ([]types.KeyValue, error)

	// Snapshot export and ingest.
	CreateBackup(cf, filePath string) error
	RestoreBackup(cf, filePath string) error

	// Size reports the approximate storage footprint of a column family.
	Size(cf string) (types.CollectionSize, error)

	Close() error
}
