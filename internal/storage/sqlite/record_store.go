// Package sqlite provides a single-file SQLite store for local harvests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

// RecordStore implements store.Store on SQLite.
type RecordStore struct {
	db      *sql.DB
	inserts map[store.Entity]string
}

var _ store.Store = (*RecordStore)(nil)

// Open opens (or creates) the database at path. ":memory:" yields a private in-memory database.
func Open(ctx context.Context, path string) (*RecordStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	inserts := make(map[store.Entity]string, len(store.Tables))
	for _, t := range store.Tables {
		cols := append([]string{"record_id"}, t.ColumnNames()...)
		inserts[t.Entity] = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.Entity, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}
	return &RecordStore{db: db, inserts: inserts}, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates missing tables.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const upsertRecord = `
INSERT INTO raw_records (source, slug, name, unit, role, email, url, payload, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET
	source = excluded.source,
	name = excluded.name,
	unit = excluded.unit,
	role = excluded.role,
	email = excluded.email,
	url = excluded.url,
	payload = excluded.payload,
	updated_at = excluded.updated_at
RETURNING id`

// UpsertRecord inserts or updates a record by slug.
func (s *RecordStore) UpsertRecord(ctx context.Context, rec store.RawRecord) (int64, error) {
	if rec.Slug == "" {
		return 0, fmt.Errorf("slug is required")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, upsertRecord,
		rec.Source, rec.Slug, rec.Name, rec.Unit, rec.Role, rec.Email, rec.URL,
		string(rec.Payload), rec.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert record %s: %w", rec.Slug, err)
	}
	return id, nil
}

// RecordIDs lists record ids ascending.
func (s *RecordStore) RecordIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM raw_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	return ids, nil
}

// Record loads one record.
func (s *RecordStore) Record(ctx context.Context, id int64) (store.RawRecord, error) {
	var (
		rec     store.RawRecord
		payload string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, slug, name, unit, role, email, url, payload, updated_at
		FROM raw_records WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Source, &rec.Slug, &rec.Name, &rec.Unit, &rec.Role, &rec.Email, &rec.URL, &payload, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.RawRecord{}, store.ErrNotFound
		}
		return store.RawRecord{}, fmt.Errorf("get record %d: %w", id, err)
	}
	rec.Payload = []byte(payload)
	return rec, nil
}

// CountRecords counts records of a source, or all when source is empty.
func (s *RecordStore) CountRecords(ctx context.Context, source string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_records WHERE (? = '' OR source = ?)`, source, source,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteDerived removes the derived rows of a record in one transaction.
func (s *RecordStore) DeleteDerived(ctx context.Context, recordID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete derived: %w", err)
	}
	for _, t := range store.Tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE record_id = ?", t.Entity), recordID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete %s for record %d: %w", t.Entity, recordID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete derived: %w", err)
	}
	return nil
}

// InsertDerived writes one derived row.
func (s *RecordStore) InsertDerived(ctx context.Context, recordID int64, row store.Row) error {
	query, ok := s.inserts[row.Entity()]
	if !ok {
		return fmt.Errorf("unknown entity %q", row.Entity())
	}
	args := append([]any{recordID}, row.Values()...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s for record %d: %w", row.Entity(), recordID, err)
	}
	return nil
}

// CountDerived counts rows of one entity.
func (s *RecordStore) CountDerived(ctx context.Context, entity store.Entity) (int, error) {
	if _, ok := store.TableFor(entity); !ok {
		return 0, fmt.Errorf("unknown entity %q", entity)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", entity)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", entity, err)
	}
	return n, nil
}

func schema() []string {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS raw_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS raw_records_source_idx ON raw_records (source)`,
	}
	for _, t := range store.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			typ := "TEXT NOT NULL DEFAULT ''"
			if c.Kind == store.IntColumn {
				typ = "INTEGER"
			}
			cols = append(cols, fmt.Sprintf("\t%s %s", c.Name, typ))
		}
		stmts = append(stmts,
			fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id INTEGER NOT NULL REFERENCES raw_records (id) ON DELETE CASCADE,
%s
)`, t.Entity, strings.Join(cols, ",\n")),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_record_idx ON %s (record_id)`, t.Entity, t.Entity),
		)
	}
	return stmts
}
