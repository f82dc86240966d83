package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoredRecord is a registered record as persisted by a Store.
type StoredRecord struct {
	ID         uuid.UUID         `json:"id"`
	ImportID   uuid.UUID         `json:"importId"`
	RecordType RecordType        `json:"recordType"`
	Identifier string            `json:"identifier"`
	Fields     map[string]string `json:"fields"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ImportBatch is one entry in the import history.
type ImportBatch struct {
	ID         uuid.UUID  `json:"id"`
	RecordType RecordType `json:"recordType"`
	FileName   string     `json:"fileName"`
	Inserted   int        `json:"inserted"`
	Skipped    int        `json:"skipped"`
	Errors     int        `json:"errors"`
	DurationMs int64      `json:"durationMs"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Store persists registered records. Implementations must be safe for
// concurrent use and must keep identifiers unique per record type.
type Store interface {
	// ExistingIdentifiers returns the subset of ids already registered for rt.
	ExistingIdentifiers(ctx context.Context, rt RecordType, ids []string) ([]string, error)

	// InsertBatch inserts recs atomically and returns how many were written.
	InsertBatch(ctx context.Context, rt RecordType, importID uuid.UUID, recs []Record) (int, error)

	// List returns one page of records for rt, newest first, plus the total count.
	List(ctx context.Context, rt RecordType, limit, offset int) ([]StoredRecord, int64, error)

	// Count returns the number of registered records for rt.
	Count(ctx context.Context, rt RecordType) (int64, error)

	// RecordImport adds an entry to the import history, replacing any
	// earlier entry with the same ID.
	RecordImport(ctx context.Context, batch ImportBatch) error

	// ListImports returns the most recent imports for rt, newest first.
	// An empty rt lists every record type.
	ListImports(ctx context.Context, rt RecordType, limit int) ([]ImportBatch, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
