package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/logging"
	"github.com/JakeFAU/integra-harvester/internal/source"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

const statsTimeout = 3 * time.Second

// StatsHandler exposes read-only totals of the store.
type StatsHandler struct {
	store    store.Store
	registry *source.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStatsHandler wires the store and registry.
func NewStatsHandler(st store.Store, registry *source.Registry, logger *zap.Logger) *StatsHandler {
	logger = logging.OrNop(logger)
	return &StatsHandler{
		store:    st,
		registry: registry,
		timeout:  statsTimeout,
		logger:   logger,
	}
}

type sourceView struct {
	ID      string `json:"id"`
	BaseURL string `json:"base_url"`
	Region  string `json:"region"`
	Records int    `json:"records"`
}

type sourcesResponse struct {
	Sources []sourceView `json:"sources"`
	Total   int          `json:"total"`
}

// Ready answers 200 when the store responds.
func (h *StatsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := h.store.CountRecords(ctx, ""); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ListSources returns every registered source with its stored record count.
func (h *StatsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := sourcesResponse{Sources: make([]sourceView, 0, len(h.registry.All()))}
	for _, src := range h.registry.All() {
		n, err := h.store.CountRecords(ctx, src.ID)
		if err != nil {
			h.storeError(w, err)
			return
		}
		resp.Sources = append(resp.Sources, sourceView{ID: src.ID, BaseURL: src.BaseURL, Region: src.Region, Records: n})
		resp.Total += n
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSource returns one source by id.
func (h *StatsHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := h.registry.Lookup(chi.URLParam(r, "source_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	n, err := h.store.CountRecords(ctx, src.ID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceView{ID: src.ID, BaseURL: src.BaseURL, Region: src.Region, Records: n})
}

// ListEntities returns the row count of every derived table.
func (h *StatsHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out := make(map[store.Entity]int, len(store.Tables))
	for _, e := range store.Entities() {
		n, err := h.store.CountDerived(ctx, e)
		if err != nil {
			h.storeError(w, err)
			return
		}
		out[e] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

func (h *StatsHandler) storeError(w http.ResponseWriter, err error) {
	h.logger.Error("store query failed", zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "store query timed out")
		return
	}
	writeError(w, http.StatusInternalServerError, "store query failed")
}
