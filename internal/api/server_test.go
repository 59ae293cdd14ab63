package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/integra-harvester/internal/source"
	"github.com/JakeFAU/integra-harvester/internal/storage/memory"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

func testRegistry() *source.Registry {
	return source.NewRegistry([]source.Source{
		{ID: "IFB", BaseURL: "https://integra.ifb.edu.br", Region: "DF"},
		{ID: "IFG", BaseURL: "https://integra.ifg.edu.br", Region: "GO"},
	})
}

func newTestServer(t *testing.T, st store.Store, status func() any) *Server {
	t.Helper()
	s, err := NewServer(Deps{Store: st, Registry: testRegistry(), Status: status})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewServerRequiresStoreAndRegistry(t *testing.T) {
	_, err := NewServer(Deps{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, memory.NewRecordStore(), nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	rec := get(t, newTestServer(t, failingStore{memory.NewRecordStore()}, nil), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(t, newTestServer(t, memory.NewRecordStore(), nil), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, memory.NewRecordStore(), nil)
	get(t, s, "/healthz")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRunStatus(t *testing.T) {
	rec := get(t, newTestServer(t, memory.NewRecordStore(), nil), "/v1/status")
	require.Equal(t, http.StatusNotFound, rec.Code)

	s := newTestServer(t, memory.NewRecordStore(), func() any {
		return map[string]any{"run_id": "r1", "phase": "harvest"}
	})
	rec = get(t, s, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"run_id":"r1","phase":"harvest"}`, rec.Body.String())
}

func TestListSourcesCountsRecords(t *testing.T) {
	st := memory.NewRecordStore()
	for _, slug := range []string{"a", "b"} {
		_, err := st.UpsertRecord(context.Background(), store.RawRecord{Source: "IFB", Slug: slug, Payload: []byte(`{}`)})
		require.NoError(t, err)
	}
	rec := get(t, newTestServer(t, st, nil), "/v1/sources")
	require.Equal(t, http.StatusOK, rec.Code)

	var body sourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	require.Equal(t, []sourceView{
		{ID: "IFB", BaseURL: "https://integra.ifb.edu.br", Region: "DF", Records: 2},
		{ID: "IFG", BaseURL: "https://integra.ifg.edu.br", Region: "GO"},
	}, body.Sources)
}

func TestGetSource(t *testing.T) {
	s := newTestServer(t, memory.NewRecordStore(), nil)
	rec := get(t, s, "/v1/sources/IFG")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"IFG"`)

	rec = get(t, s, "/v1/sources/NOPE")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntities(t *testing.T) {
	st := memory.NewRecordStore()
	id, err := st.UpsertRecord(context.Background(), store.RawRecord{Source: "IFB", Slug: "a", Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, st.InsertDerived(context.Background(), id, store.Award{Name: "x"}))

	rec := get(t, newTestServer(t, st, nil), "/v1/entities")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entities map[string]int `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Entities["awards"])
	require.Len(t, body.Entities, len(store.Tables))
}

func TestStoreErrorsAreInternal(t *testing.T) {
	rec := get(t, newTestServer(t, failingStore{memory.NewRecordStore()}, nil), "/v1/sources")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, memory.NewRecordStore(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type failingStore struct {
	*memory.RecordStore
}

func (failingStore) CountRecords(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}
