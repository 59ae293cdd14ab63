package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

func newMockStore(t *testing.T) (*RecordStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)
	return s, mock
}

func TestUpsertRecordReturnsID(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()
	rec := store.RawRecord{
		Source:    "IFB",
		Slug:      "ana-souza",
		Name:      "Ana Souza",
		Unit:      "Campus Brasília",
		Role:      "Professor EBTT",
		Email:     "ana@ifb.edu.br",
		URL:       "https://integra.ifb.edu.br/api/portfolio/pessoa/s/ana-souza",
		Payload:   []byte(`{"dadosGerais":{}}`),
		UpdatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO raw_records").
		WithArgs(rec.Source, rec.Slug, rec.Name, rec.Unit, rec.Role, rec.Email, rec.URL, []byte(rec.Payload), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.UpsertRecord(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecordRequiresSlug(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	_, err := s.UpsertRecord(context.Background(), store.RawRecord{Source: "IFB"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, source, slug").WithArgs(int64(3)).WillReturnError(pgx.ErrNoRows)

	_, err := s.Record(context.Background(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordIDs(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id FROM raw_records ORDER BY id").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(5)))

	ids, err := s.RecordIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 5}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDerivedUsesTableColumns(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	year := 2019
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO awards (record_id, name, year, institution) VALUES ($1, $2, $3, $4)")).
		WithArgs(int64(7), "Prêmio Jovem Pesquisador", &year, "CNPq").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertDerived(context.Background(), 7, store.Award{Name: "Prêmio Jovem Pesquisador", Year: &year, Institution: "CNPq"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDerivedCommitsAcrossTables(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBegin()
	for _, table := range store.Tables {
		mock.ExpectExec("DELETE FROM " + string(table.Entity)).
			WithArgs(int64(9)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
	}
	mock.ExpectCommit()

	require.NoError(t, s.DeleteDerived(context.Background(), 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDerivedRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM general_info").WithArgs(int64(9)).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	require.Error(t, s.DeleteDerived(context.Background(), 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaCreatesEveryTable(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	stmts := schema()
	require.Len(t, stmts, 2+2*len(store.Tables))
	for range stmts {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDerivedRejectsUnknownEntity(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	_, err := s.CountDerived(context.Background(), store.Entity("projects"))
	require.Error(t, err)

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))
	n, err := s.CountDerived(context.Background(), store.EntityPublication)
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
