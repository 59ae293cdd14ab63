package harvest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/integra-harvester/internal/metrics"
	"github.com/JakeFAU/integra-harvester/internal/source"
)

// Scheduler harvests many sources in sequential groups of at most MaxConcurrentSources.
type Scheduler struct {
	registry   *source.Registry
	newFetcher FetcherFactory
	cfg        Config
	opts       []Option
	logger     *zap.Logger
}

// NewScheduler builds a scheduler over registry. newFetcher is called once per harvested source.
func NewScheduler(registry *source.Registry, newFetcher FetcherFactory, cfg Config, opts ...Option) *Scheduler {
	o := buildOptions(opts)
	return &Scheduler{
		registry:   registry,
		newFetcher: newFetcher,
		cfg:        cfg,
		opts:       opts,
		logger:     o.logger.Named("scheduler"),
	}
}

// Run harvests the sources named by ids, or every registered source when ids is empty.
// Unknown ids are reported in the result and ignored. A harvester that panics is recorded as
// skipped and never affects its siblings.
func (s *Scheduler) Run(ctx context.Context, ids []string, sink BatchSink) Result {
	selected, unknown := s.registry.Select(ids)
	if len(unknown) > 0 {
		s.logger.Warn("ignoring unknown sources", zap.Strings("ids", unknown))
	}
	res := Result{
		Records: make(map[string][]Detail, len(selected)),
		Stats:   make(map[string]SourceStats, len(selected)),
		Unknown: unknown,
	}
	var mu sync.Mutex
	record := func(id string, details []Detail, stats SourceStats) {
		mu.Lock()
		defer mu.Unlock()
		res.Records[id] = details
		res.Stats[id] = stats
	}

	group := s.cfg.MaxConcurrentSources
	if group <= 0 {
		group = 1
	}
	for start := 0; start < len(selected); start += group {
		end := min(start+group, len(selected))
		if ctx.Err() != nil {
			for _, src := range selected[start:] {
				record(src.ID, nil, SourceStats{Source: src.ID, Skipped: true, Diagnostic: "interrupted before start"})
			}
			break
		}
		s.logger.Info("starting source group",
			zap.Int("group", start/group+1),
			zap.Int("sources", end-start),
		)
		var g errgroup.Group
		g.SetLimit(group)
		for _, src := range selected[start:end] {
			g.Go(func() error {
				details, stats := s.runOne(ctx, src, sink)
				record(src.ID, details, stats)
				return nil
			})
		}
		_ = g.Wait()
	}
	return res
}

func (s *Scheduler) runOne(ctx context.Context, src source.Source, sink BatchSink) (details []Detail, stats SourceStats) {
	metrics.IncActiveSources()
	defer metrics.DecActiveSources()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("harvester crashed", zap.String("source", src.ID), zap.Any("panic", r))
			details = nil
			stats = SourceStats{Source: src.ID, Skipped: true, Diagnostic: fmt.Sprintf("crashed: %v", r)}
		}
	}()
	h := NewHarvester(src, s.newFetcher(src), s.cfg, s.opts...)
	return h.Run(ctx, sink)
}
