package types

import "time"

// Operation identifies the kind of mutation that produced an event.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event is a transient mutation notification delivered to subscribers of a
// collection. Events are never persisted; a subscriber only sees mutations
// that happen while it is connected.
type Event struct {
	Operation Operation `json:"operation"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
}

// KeyValue pairs a document with the key it is stored under. Range and query
// endpoints return these when the caller asks for keys.
type KeyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Secret is the record stored in the secrets column family under a
// collection's internal name. The secret itself is stored as a hex-encoded
// SHA-256 of the plaintext; the plaintext is returned to the client exactly
// once, at collection creation.
type Secret struct {
	CreatedAt string `json:"created_at"`
	Secret    string `json:"secret"`
}

// OperationStatus is the state of a backup or restore job.
type OperationStatus string

const (
	StatusInProgress OperationStatus = "in_progress"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
)

// BackupRecord describes one backup job. Records live in the global backups
// column family and in the per-collection "-backups" sibling, keyed by ID.
type BackupRecord struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     OperationStatus `json:"status"`
	URL        string          `json:"url,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RestoreRecord describes one restore job, stored in the restores column
// family keyed by ID.
type RestoreRecord struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     OperationStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
}

// QueryRequest is the body of POST /api/{collection}. It encodes either a
// range scan (From/To/Limit/Order) or a JSONPath query, never both. Keys
// defaults to true and selects {key,value} output over bare values.
type QueryRequest struct {
	From  *string `json:"from,omitempty"`
	To    *string `json:"to,omitempty"`
	Limit *int    `json:"limit,omitempty"`
	Order string  `json:"order,omitempty"`
	Query *string `json:"query,omitempty"`
	Keys  *bool   `json:"keys,omitempty"`
}

// WantKeys reports whether the response should include keys.
func (q *QueryRequest) WantKeys() bool {
	return q.Keys == nil || *q.Keys
}

// IsJSONPath reports whether the request carries a JSONPath query.
func (q *QueryRequest) IsJSONPath() bool {
	return q.Query != nil && *q.Query != ""
}

// CollectionSize reports the approximate storage footprint of a collection.
// The field names keep the wire contract of the original engine.
type CollectionSize struct {
	SSTBytes      int64 `json:"sst_bytes"`
	MemTableBytes int64 `json:"mem_table_bytes"`
	BlobBytes     int64 `json:"blob_bytes"`
}

// OperationResponse acknowledges an accepted backup or restore job.
type OperationResponse struct {
	Message    string `json:"message"`
	ID         string `json:"id"`
	Collection string `json:"collection"`
}
