package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/integra-harvester/internal/app"
	"github.com/JakeFAU/integra-harvester/internal/config"
	"github.com/JakeFAU/integra-harvester/internal/source"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// portal serves a fake Integra deployment: n people, the first `teachers` of them with a
// teaching role, and detail failures for every slug in failing.
type portal struct {
	n, teachers int
	failing     map[string]bool
	details     atomic.Int64
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/portfolio/pessoa/data":
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		length, _ := strconv.Atoi(r.URL.Query().Get("length"))
		rows := []map[string]string{}
		for i := start; i < min(start+length, p.n); i++ {
			role := "Técnico Administrativo"
			if i < p.teachers {
				role = "Professor do Ensino Básico, Técnico e Tecnológico"
			}
			rows = append(rows, map[string]string{
				"slug": fmt.Sprintf("p%03d", i), "nome": fmt.Sprintf("Pessoa %d", i),
				"campusNome": "Campus Plano Piloto", "cargo": role,
			})
		}
		_ = json.NewEncoder(w).Encode([]any{map[string]int{"total": p.n}, rows})
	case strings.HasPrefix(r.URL.Path, "/api/portfolio/pessoa/s/"):
		p.details.Add(1)
		slug := strings.TrimPrefix(r.URL.Path, "/api/portfolio/pessoa/s/")
		if p.failing[slug] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dadosGerais": map[string]any{
				"nomeCompleto": "Nome " + slug,
				"emails":       []any{map[string]string{"email": slug + "@ifb.edu.br"}},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(backend string) config.Config {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.HTTP.Backend = backend
	cfg.HTTP.InsecureSkipVerify = false
	cfg.HTTP.TimeoutSeconds = 5
	cfg.HTTP.RetryBaseDelaySeconds = 0
	cfg.Harvest.PageDelayMs = 0
	cfg.Harvest.BatchDelayMs = 0
	cfg.Logging.Development = false
	return cfg
}

func newApp(t *testing.T, cfg config.Config, baseURL string) *app.App {
	t.Helper()
	registry := source.NewRegistry([]source.Source{{ID: "IFB", BaseURL: baseURL, Region: "DF"}})
	a, err := app.New(context.Background(), cfg, app.WithRegistry(registry))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestHarvestAndNormalizeEndToEnd(t *testing.T) {
	for _, backend := range []string{config.BackendColly, config.BackendResty} {
		t.Run(backend, func(t *testing.T) {
			failing := map[string]bool{}
			for i := range 5 {
				failing[fmt.Sprintf("p%03d", i*10)] = true
			}
			p := &portal{n: 120, teachers: 80, failing: failing}
			srv := httptest.NewServer(p)
			t.Cleanup(srv.Close)

			ctx := context.Background()
			a := newApp(t, testConfig(backend), srv.URL)

			report, err := a.Harvest(ctx, nil)
			require.NoError(t, err)
			require.NotEmpty(t, report.RunID)
			require.Len(t, report.Sources, 1)
			stats := report.Sources[0]
			require.Equal(t, 120, stats.Listed)
			require.Equal(t, 80, stats.Candidates)
			require.Equal(t, 75, stats.DetailsCollected)
			require.Equal(t, 75, stats.Saved)
			require.Equal(t, 75, report.Saved)
			require.Zero(t, report.Failed)
			// Three attempts for each failing detail.
			require.Equal(t, int64(75+5*3), p.details.Load())

			n, err := a.Store().CountRecords(ctx, "IFB")
			require.NoError(t, err)
			require.Equal(t, 75, n)

			nstats, err := a.NormalizeAll(ctx)
			require.NoError(t, err)
			require.Equal(t, 75, nstats.Processed)
			rows, err := a.Store().CountDerived(ctx, store.EntityGeneralInfo)
			require.NoError(t, err)
			require.Equal(t, 75, rows)

			id, err := a.Store().RecordIDs(ctx)
			require.NoError(t, err)
			rec, err := a.Store().Record(ctx, id[0])
			require.NoError(t, err)
			require.Equal(t, "p001", rec.Slug)
			require.Equal(t, "p001@ifb.edu.br", rec.Email)
			require.Equal(t, srv.URL+"/api/portfolio/pessoa/s/p001", rec.URL)
		})
	}
}

func TestHarvestIsIdempotent(t *testing.T) {
	p := &portal{n: 30, teachers: 20}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	ctx := context.Background()
	a := newApp(t, testConfig(config.BackendResty), srv.URL)

	for range 2 {
		report, err := a.Harvest(ctx, []string{"IFB"})
		require.NoError(t, err)
		require.Equal(t, 20, report.Saved)
	}
	n, err := a.Store().CountRecords(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 20, n)

	for range 2 {
		_, err := a.NormalizeAll(ctx)
		require.NoError(t, err)
	}
	rows, err := a.Store().CountDerived(ctx, store.EntityGeneralInfo)
	require.NoError(t, err)
	require.Equal(t, 20, rows)
}

func TestHarvestRejectsOnlyUnknownSources(t *testing.T) {
	a := newApp(t, testConfig(config.BackendColly), "http://127.0.0.1:1")
	report, err := a.Harvest(context.Background(), []string{"NOPE"})
	require.Error(t, err)
	require.Equal(t, []string{"NOPE"}, report.Unknown)
}

func TestStatusIsIdleOutsideRuns(t *testing.T) {
	a := newApp(t, testConfig(config.BackendColly), "http://127.0.0.1:1")
	require.Equal(t, app.PhaseIdle, a.Status().Phase)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(config.BackendColly)
	cfg.Store.Driver = "mysql"
	_, err := app.New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewOpensSQLite(t *testing.T) {
	cfg := testConfig(config.BackendColly)
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.DSN = t.TempDir() + "/integra.db"
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

func TestServeWithoutAddressReturns(t *testing.T) {
	a := newApp(t, testConfig(config.BackendColly), "http://127.0.0.1:1")
	require.NoError(t, a.Serve(context.Background()))
}
