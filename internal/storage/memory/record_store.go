// Package memory provides in-memory store implementations for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

// RecordStore implements store.Store in memory.
type RecordStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]store.RawRecord
	bySlug  map[string]int64
	derived map[int64][]store.Row

	// FailUpsert, when set, is consulted before every upsert; a non-nil error aborts it.
	FailUpsert func(store.RawRecord) error
	// FailInsert, when set, is consulted before every derived insert.
	FailInsert func(recordID int64, row store.Row) error
	// FailDelete, when set, is consulted before every derived delete.
	FailDelete func(recordID int64) error
}

var _ store.Store = (*RecordStore)(nil)

// NewRecordStore constructs an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[int64]store.RawRecord),
		bySlug:  make(map[string]int64),
		derived: make(map[int64][]store.Row),
	}
}

// EnsureSchema is a no-op.
func (s *RecordStore) EnsureSchema(context.Context) error { return nil }

// UpsertRecord inserts or updates a record keyed by slug.
func (s *RecordStore) UpsertRecord(_ context.Context, rec store.RawRecord) (int64, error) {
	if rec.Slug == "" {
		return 0, errors.New("slug is required")
	}
	if s.FailUpsert != nil {
		if err := s.FailUpsert(rec); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlug[rec.Slug]
	if !ok {
		s.nextID++
		id = s.nextID
		s.bySlug[rec.Slug] = id
	}
	rec.ID = id
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.records[id] = rec
	return id, nil
}

// RecordIDs lists record ids ascending.
func (s *RecordStore) RecordIDs(context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Record loads one record.
func (s *RecordStore) Record(_ context.Context, id int64) (store.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return store.RawRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// CountRecords counts records of a source, or all when source is empty.
func (s *RecordStore) CountRecords(_ context.Context, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if source == "" {
		return len(s.records), nil
	}
	n := 0
	for _, rec := range s.records {
		if rec.Source == source {
			n++
		}
	}
	return n, nil
}

// DeleteDerived drops the derived rows of a record.
func (s *RecordStore) DeleteDerived(_ context.Context, recordID int64) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(recordID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.derived, recordID)
	return nil
}

// InsertDerived appends a derived row.
func (s *RecordStore) InsertDerived(_ context.Context, recordID int64, row store.Row) error {
	if _, ok := store.TableFor(row.Entity()); !ok {
		return fmt.Errorf("unknown entity %q", row.Entity())
	}
	if s.FailInsert != nil {
		if err := s.FailInsert(recordID, row); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return store.ErrNotFound
	}
	s.derived[recordID] = append(s.derived[recordID], row)
	return nil
}

// CountDerived counts rows of one entity across records.
func (s *RecordStore) CountDerived(_ context.Context, entity store.Entity) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rows := range s.derived {
		for _, row := range rows {
			if row.Entity() == entity {
				n++
			}
		}
	}
	return n, nil
}

// Derived returns a copy of the derived rows of a record in insertion order.
func (s *RecordStore) Derived(recordID int64) []store.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Row(nil), s.derived[recordID]...)
}

// Close is a no-op.
func (s *RecordStore) Close() error { return nil }
