package normalize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/logging"
	"github.com/JakeFAU/integra-harvester/internal/metrics"
	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// Outcome classifies one record pass.
type Outcome string

// Record outcomes.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeParseError  Outcome = "parse_error"
	OutcomeDeleteError Outcome = "delete_error"
	OutcomeLoadError   Outcome = "load_error"
)

// RecordReport describes one record pass.
type RecordReport struct {
	RecordID int64
	Outcome  Outcome
	// Rows counts stored rows per entity.
	Rows      map[store.Entity]int
	Filtered  int
	RowErrors int
}

// Stats aggregates a NormalizeAll run.
type Stats struct {
	Processed    int
	ParseErrors  int
	DeleteErrors int
	LoadErrors   int
	RowErrors    int
	Filtered     int
	// Rows counts stored rows per entity.
	Rows map[store.Entity]int
	// Coverage counts records with at least one row per entity.
	Coverage map[store.Entity]int
	Elapsed  time.Duration
}

func (s *Stats) add(r RecordReport) {
	switch r.Outcome {
	case OutcomeParseError:
		s.ParseErrors++
		return
	case OutcomeDeleteError:
		s.DeleteErrors++
		return
	case OutcomeLoadError:
		s.LoadErrors++
		return
	}
	s.Processed++
	s.RowErrors += r.RowErrors
	s.Filtered += r.Filtered
	for e, n := range r.Rows {
		s.Rows[e] += n
		if n > 0 {
			s.Coverage[e]++
		}
	}
}

// Option customizes a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logging.OrNop(logger)
	}
}

// Normalizer rewrites derived rows from raw payloads. It writes to the store from the calling
// goroutine only.
type Normalizer struct {
	store  store.Store
	filter affiliationFilter
	logger *zap.Logger
}

// New builds a Normalizer over st.
func New(st store.Store, cfg Config, opts ...Option) (*Normalizer, error) {
	if st == nil {
		return nil, fmt.Errorf("normalize: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Normalizer{
		store:  st,
		filter: newAffiliationFilter(cfg.Affiliation),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.Named("normalizer")
	return n, nil
}

// NormalizeAll normalizes every stored record in id order. Only a failure to list the records
// is returned; per-record failures are counted in Stats. A cancelled ctx stops before the next
// record.
func (n *Normalizer) NormalizeAll(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{
		Rows:     make(map[store.Entity]int, len(rules)),
		Coverage: make(map[store.Entity]int, len(rules)),
	}
	ids, err := n.store.RecordIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("normalize: %w", err)
	}
	n.logger.Info("normalization started", zap.Int("records", len(ids)))

	for i, id := range ids {
		if ctx.Err() != nil {
			n.logger.Warn("normalization interrupted", zap.Int("done", i), zap.Int("records", len(ids)))
			break
		}
		rec, err := n.store.Record(ctx, id)
		if err != nil {
			n.logger.Warn("load record failed", zap.Int64("record_id", id), zap.Error(err))
			metrics.ObserveNormalizedRecord(string(OutcomeLoadError))
			stats.add(RecordReport{RecordID: id, Outcome: OutcomeLoadError})
			continue
		}
		stats.add(n.NormalizeRecord(ctx, rec))
		if (i+1)%100 == 0 {
			n.logger.Info("normalization progress", zap.Int("done", i+1), zap.Int("records", len(ids)))
		}
	}

	stats.Elapsed = time.Since(start)
	n.logger.Info("normalization finished",
		zap.Int("processed", stats.Processed),
		zap.Int("parse_errors", stats.ParseErrors),
		zap.Int("delete_errors", stats.DeleteErrors),
		zap.Int("row_errors", stats.RowErrors),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// NormalizeRecord replaces the derived rows of rec. Failures are reported, never returned.
// The record is written with a context detached from cancellation so it is never left half
// rebuilt.
func (n *Normalizer) NormalizeRecord(ctx context.Context, rec store.RawRecord) RecordReport {
	report := RecordReport{RecordID: rec.ID, Rows: make(map[store.Entity]int, len(rules))}
	logger := n.logger.With(zap.Int64("record_id", rec.ID), zap.String("slug", rec.Slug))

	doc, err := shape.Decode(rec.Payload)
	if err != nil {
		logger.Warn("payload parse failed", zap.Error(err))
		report.Outcome = OutcomeParseError
		metrics.ObserveNormalizedRecord(string(report.Outcome))
		return report
	}

	wctx := context.WithoutCancel(ctx)
	if err := n.store.DeleteDerived(wctx, rec.ID); err != nil {
		logger.Warn("delete derived rows failed", zap.Error(err))
		report.Outcome = OutcomeDeleteError
		metrics.ObserveNormalizedRecord(string(report.Outcome))
		return report
	}

	for _, r := range rules {
		for _, row := range n.extract(r, doc, rec, logger) {
			if !n.filter.allows(row) {
				report.Filtered++
				metrics.ObserveDerivedRow(string(r.entity), metrics.OutcomeSkipped)
				continue
			}
			if err := n.store.InsertDerived(wctx, rec.ID, row); err != nil {
				logger.Warn("insert derived row failed", zap.String("entity", string(r.entity)), zap.Error(err))
				report.RowErrors++
				metrics.ObserveDerivedRow(string(r.entity), metrics.OutcomeFailed)
				continue
			}
			report.Rows[r.entity]++
			metrics.ObserveDerivedRow(string(r.entity), metrics.OutcomeSaved)
		}
	}
	report.Outcome = OutcomeOK
	metrics.ObserveNormalizedRecord(string(report.Outcome))
	return report
}

// extract runs one rule, turning a panic into an empty result for that rule.
func (n *Normalizer) extract(r rule, doc any, rec store.RawRecord, logger *zap.Logger) (rows []store.Row) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("extraction panicked", zap.String("entity", string(r.entity)), zap.Any("panic", p))
			rows = nil
		}
	}()
	return r.extract(doc, rec)
}
