package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

func openMemory(t *testing.T) *RecordStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestEnsureSchemaIsRepeatable(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestUpsertKeepsOneRowPerSlug(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openMemory(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := store.RawRecord{
		Source: "IFB", Slug: "ana", Name: "Ana", Role: "Professor",
		Payload: []byte(`{"a":1}`), UpdatedAt: now,
	}

	id1, err := s.UpsertRecord(ctx, rec)
	require.NoError(t, err)
	rec.Name = "Ana Souza"
	rec.Payload = []byte(`{"a":2}`)
	rec.UpdatedAt = now.Add(time.Hour)
	id2, err := s.UpsertRecord(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	n, err := s.CountRecords(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.Record(ctx, id1)
	require.NoError(t, err)
	require.Equal(t, "Ana Souza", got.Name)
	require.JSONEq(t, `{"a":2}`, string(got.Payload))
	require.True(t, got.UpdatedAt.Equal(now.Add(time.Hour)))

	_, err = s.Record(ctx, id1+100)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDerivedRowsRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openMemory(t)
	id, err := s.UpsertRecord(ctx, store.RawRecord{Source: "IFB", Slug: "ana", Payload: []byte(`{}`), UpdatedAt: time.Now()})
	require.NoError(t, err)

	year := 2015
	require.NoError(t, s.InsertDerived(ctx, id, store.Education{Level: "Mestrado", Course: "Física", StartYear: &year}))
	require.NoError(t, s.InsertDerived(ctx, id, store.Publication{Kind: store.PublicationArticle, Title: "Sobre ondas", CoauthorCount: 2}))

	var end sql.NullInt64
	require.NoError(t, s.db.QueryRow(`SELECT end_year FROM education WHERE record_id = ?`, id).Scan(&end))
	require.False(t, end.Valid, "absent year must be stored as NULL")

	n, err := s.CountDerived(ctx, store.EntityEducation)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.DeleteDerived(ctx, id))
	for _, e := range store.Entities() {
		n, err := s.CountDerived(ctx, e)
		require.NoError(t, err)
		require.Zero(t, n, e)
	}
}

func TestInsertDerivedRequiresRecord(t *testing.T) {
	t.Parallel()

	s := openMemory(t)
	err := s.InsertDerived(context.Background(), 404, store.Award{Name: "x"})
	require.Error(t, err, "foreign key should reject orphan rows")
}

func TestCountRecordsBySource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openMemory(t)
	for _, r := range []store.RawRecord{
		{Source: "IFB", Slug: "a"}, {Source: "IFB", Slug: "b"}, {Source: "IFAC", Slug: "c"},
	} {
		r.Payload = []byte(`{}`)
		r.UpdatedAt = time.Now()
		_, err := s.UpsertRecord(ctx, r)
		require.NoError(t, err)
	}
	n, err := s.CountRecords(ctx, "IFB")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ids, err := s.RecordIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 3)
}
