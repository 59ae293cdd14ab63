package harvest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/source"
)

// Harvester runs list, filter and detail for one source.
type Harvester struct {
	src    source.Source
	client *Client
	walker *ListingWalker
	filter *RoleFilter
	fanout *DetailFanout
	logger *zap.Logger
}

// NewHarvester wires the per-source components around fetcher.
func NewHarvester(src source.Source, fetcher Fetcher, cfg Config, opts ...Option) *Harvester {
	o := buildOptions(opts)
	logger := o.logger.With(zap.String("source", src.ID))
	scoped := append(append([]Option(nil), opts...), WithLogger(logger))
	client := NewClient(src.ID, fetcher, cfg, opts...)
	return &Harvester{
		src:    src,
		client: client,
		walker: NewListingWalker(client, src.BaseURL, cfg, scoped...),
		filter: NewRoleFilter(cfg.RoleTerms),
		fanout: NewDetailFanout(client, src.BaseURL, cfg, scoped...),
		logger: logger.Named("harvester"),
	}
}

// Run harvests the source. Each completed detail batch is submitted to sink (which may be nil).
func (h *Harvester) Run(ctx context.Context, sink BatchSink) ([]Detail, SourceStats) {
	start := time.Now()
	stats := SourceStats{Source: h.src.ID}
	defer func() {
		stats.RequestErrors = h.client.Errors()
		stats.MatchedRoles = h.filter.Matched()
		stats.UnmatchedRoles = h.filter.Unmatched()
		stats.Elapsed = time.Since(start)
	}()

	h.logger.Info("harvest started", zap.String("base_url", h.src.BaseURL))
	listing := h.walker.Walk(ctx)
	stats.TotalHint = listing.TotalHint
	stats.Listed = len(listing.People)
	if len(listing.People) == 0 {
		stats.Diagnostic = "no people listed"
		if listing.FirstPageFailed {
			stats.Diagnostic = "first listing page failed"
		}
		h.logger.Error("harvest produced no listing", zap.String("diagnostic", stats.Diagnostic))
		return nil, stats
	}

	candidates := h.filter.Filter(listing.People)
	stats.Candidates = len(candidates)
	if len(candidates) == 0 {
		stats.Diagnostic = "no role matched the configured terms"
		h.logger.Warn("no candidates after role filter",
			zap.Int("listed", stats.Listed),
			zap.Strings("unmatched_roles", h.filter.Unmatched()),
		)
		return nil, stats
	}

	var onBatch func([]Detail)
	if sink != nil {
		onBatch = func(batch []Detail) { sink.Submit(h.src, batch) }
	}
	res := h.fanout.Run(ctx, candidates, onBatch)
	stats.DetailsCollected = len(res.Details)
	stats.SkippedNoSlug = res.SkippedNoSlug
	if ctx.Err() != nil {
		stats.Diagnostic = "interrupted"
	}

	h.logger.Info("harvest finished",
		zap.Int("total_hint", stats.TotalHint),
		zap.Int("listed", stats.Listed),
		zap.Int("candidates", stats.Candidates),
		zap.Int("details", stats.DetailsCollected),
		zap.Int64("request_errors", h.client.Errors()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res.Details, stats
}
