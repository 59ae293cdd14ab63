package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RawRecord is one harvested person as returned by the detail endpoint.
type RawRecord struct {
	// ID is assigned by the store on first insert and stable across upserts.
	ID int64
	// Source is the registry id of the portal the record came from.
	Source string
	// Slug is the portal's identifier for the person and the store's natural key.
	Slug string
	Name string
	Unit string
	Role string
	// Email is the first address in the detail payload, if any.
	Email string
	// URL is the detail endpoint the payload was fetched from.
	URL string
	// Payload is the verbatim detail JSON.
	Payload   json.RawMessage
	UpdatedAt time.Time
}

// Store persists raw records and the derived rows built from them.
type Store interface {
	// EnsureSchema creates missing tables and indexes. It is safe to call repeatedly.
	EnsureSchema(ctx context.Context) error
	// UpsertRecord inserts rec or updates the row with the same slug in place, returning its id.
	UpsertRecord(ctx context.Context, rec RawRecord) (int64, error)
	// RecordIDs lists every raw record id in ascending order.
	RecordIDs(ctx context.Context) ([]int64, error)
	// Record loads one raw record or returns ErrNotFound.
	Record(ctx context.Context, id int64) (RawRecord, error)
	// CountRecords counts raw records for a source, or all records when source is empty.
	CountRecords(ctx context.Context, source string) (int, error)
	// DeleteDerived removes every derived row of a record across all derived tables.
	DeleteDerived(ctx context.Context, recordID int64) error
	// InsertDerived writes one derived row for a record.
	InsertDerived(ctx context.Context, recordID int64, row Row) error
	// CountDerived counts rows of one derived entity.
	CountDerived(ctx context.Context, entity Entity) (int, error)
	Close() error
}
