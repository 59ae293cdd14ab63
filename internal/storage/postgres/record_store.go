// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

// RecordStoreConfig controls the Postgres connection pool.
type RecordStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// RecordStore implements store.Store on Postgres.
type RecordStore struct {
	pool    pool
	inserts map[store.Entity]string
}

var _ store.Store = (*RecordStore)(nil)

// NewRecordStore connects a pool using cfg.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewRecordStoreWithPool(p)
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	inserts := make(map[store.Entity]string, len(store.Tables))
	for _, t := range store.Tables {
		inserts[t.Entity] = insertQuery(t)
	}
	return &RecordStore{pool: p, inserts: inserts}, nil
}

func insertQuery(t store.Table) string {
	cols := append([]string{"record_id"}, t.ColumnNames()...)
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Entity, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureSchema creates the raw and derived tables if they are missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const upsertRecord = `
INSERT INTO raw_records (source, slug, name, unit, role, email, url, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (slug) DO UPDATE SET
	source = EXCLUDED.source,
	name = EXCLUDED.name,
	unit = EXCLUDED.unit,
	role = EXCLUDED.role,
	email = EXCLUDED.email,
	url = EXCLUDED.url,
	payload = EXCLUDED.payload,
	updated_at = EXCLUDED.updated_at
RETURNING id`

// UpsertRecord inserts or updates a record by slug.
func (s *RecordStore) UpsertRecord(ctx context.Context, rec store.RawRecord) (int64, error) {
	if rec.Slug == "" {
		return 0, fmt.Errorf("slug is required")
	}
	var id int64
	err := s.pool.QueryRow(ctx, upsertRecord,
		rec.Source, rec.Slug, rec.Name, rec.Unit, rec.Role, rec.Email, rec.URL,
		[]byte(rec.Payload), rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert record %s: %w", rec.Slug, err)
	}
	return id, nil
}

// RecordIDs lists record ids ascending.
func (s *RecordStore) RecordIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM raw_records ORDER BY id`)
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
	query := `
		SELECT id, source, slug, name, unit, role, email, url, payload, updated_at
		FROM raw_records
		WHERE id = $1`
	var (
		rec     store.RawRecord
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Source, &rec.Slug, &rec.Name, &rec.Unit,
		&rec.Role, &rec.Email, &rec.URL, &payload, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.RawRecord{}, store.ErrNotFound
		}
		return store.RawRecord{}, fmt.Errorf("get record %d: %w", id, err)
	}
	rec.Payload = payload
	return rec, nil
}

// CountRecords counts records of a source, or all when source is empty.
func (s *RecordStore) CountRecords(ctx context.Context, source string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM raw_records WHERE ($1 = '' OR source = $1)`, source,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteDerived removes the derived rows of a record in one transaction.
func (s *RecordStore) DeleteDerived(ctx context.Context, recordID int64) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete derived: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	for _, t := range store.Tables {
		if _, err = tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE record_id = $1", t.Entity), recordID); err != nil {
			return fmt.Errorf("delete %s for record %d: %w", t.Entity, recordID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
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
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
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
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", entity)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", entity, err)
	}
	return n, nil
}

func schema() []string {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS raw_records (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
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
	id BIGSERIAL PRIMARY KEY,
	record_id BIGINT NOT NULL REFERENCES raw_records (id) ON DELETE CASCADE,
%s
)`, t.Entity, strings.Join(cols, ",\n")),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_record_idx ON %s (record_id)`, t.Entity, t.Entity),
		)
	}
	return stmts
}
