// Package app wires configuration into long-lived services and exposes the two core
// operations: harvesting sources into the raw store and normalizing stored records.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/api"
	"github.com/JakeFAU/integra-harvester/internal/clock/system"
	"github.com/JakeFAU/integra-harvester/internal/config"
	collyfetcher "github.com/JakeFAU/integra-harvester/internal/fetcher/colly"
	restyfetcher "github.com/JakeFAU/integra-harvester/internal/fetcher/resty"
	"github.com/JakeFAU/integra-harvester/internal/harvest"
	"github.com/JakeFAU/integra-harvester/internal/id/uuid"
	"github.com/JakeFAU/integra-harvester/internal/logging"
	"github.com/JakeFAU/integra-harvester/internal/normalize"
	"github.com/JakeFAU/integra-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/integra-harvester/internal/source"
	"github.com/JakeFAU/integra-harvester/internal/storage/memory"
	"github.com/JakeFAU/integra-harvester/internal/storage/postgres"
	"github.com/JakeFAU/integra-harvester/internal/storage/sqlite"
	"github.com/JakeFAU/integra-harvester/internal/store"
	"github.com/JakeFAU/integra-harvester/internal/writer"
)

const maxConnLifetime = 30 * time.Minute

// IDGenerator issues run ids.
type IDGenerator interface {
	NewID() (string, error)
}

// App holds the shared services of one process. It is built once at startup.
type App struct {
	cfg      config.Config
	store    store.Store
	registry *source.Registry
	fetchers harvest.FetcherFactory
	limiter  *ratelimit.Limiter
	pauser   harvest.Pauser
	ids      IDGenerator
	clock    writer.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	current *RunStatus
	writer  *writer.Writer
}

// Option customizes an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.logger = logging.OrNop(logger)
	}
}

// WithStore replaces the store selected by store.driver.
func WithStore(st store.Store) Option {
	return func(a *App) { a.store = st }
}

// WithRegistry replaces the built-in source table.
func WithRegistry(r *source.Registry) Option {
	return func(a *App) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithFetcherFactory replaces the transport selected by http.backend.
func WithFetcherFactory(f harvest.FetcherFactory) Option {
	return func(a *App) {
		if f != nil {
			a.fetchers = f
		}
	}
}

// WithPauser replaces the timer used for harvest pauses.
func WithPauser(p harvest.Pauser) Option {
	return func(a *App) { a.pauser = p }
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(a *App) {
		if g != nil {
			a.ids = g
		}
	}
}

// New validates cfg, opens the store and prepares its schema.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{
		cfg:      cfg,
		registry: source.Default(),
		ids:      uuid.NewGenerator(),
		clock:    system.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetchers == nil {
		a.fetchers = newFetcherFactory(cfg.HTTP)
	}
	a.limiter = ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.RequestsPerSecond, Burst: cfg.HTTP.Burst})

	if a.store == nil {
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		a.store = st
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		_ = a.store.Close()
		return nil, fmt.Errorf("prepare store: %w", err)
	}
	a.logger.Info("application initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("http_backend", cfg.HTTP.Backend),
		zap.Int("sources", len(a.registry.All())),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		st, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: maxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case config.DriverMemory:
		return memory.NewRecordStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newFetcherFactory(cfg config.HTTPConfig) harvest.FetcherFactory {
	if cfg.Backend == config.BackendResty {
		return func(source.Source) harvest.Fetcher {
			return restyfetcher.New(restyfetcher.Config{
				UserAgent:          cfg.UserAgent,
				Headers:            cfg.Header(),
				Timeout:            cfg.Timeout(),
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			})
		}
	}
	return func(source.Source) harvest.Fetcher {
		return collyfetcher.New(collyfetcher.Config{
			UserAgent:          cfg.UserAgent,
			Headers:            cfg.Header(),
			Timeout:            cfg.Timeout(),
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			MaxBodySize:        cfg.MaxBodyBytes,
		})
	}
}

// Store returns the record store.
func (a *App) Store() store.Store { return a.store }

// Registry returns the source table.
func (a *App) Registry() *source.Registry { return a.registry }

// Close releases the store.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// SourceReport is the outcome of one source in a harvest run.
type SourceReport struct {
	harvest.SourceStats
	Saved  int
	Failed int
}

// HarvestReport summarizes a harvest run.
type HarvestReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Sources are ordered by id.
	Sources     []SourceReport
	Unknown     []string
	Saved       int
	Failed      int
	Interrupted bool
}

// Harvest runs the sources named by ids (all when empty) and persists every collected record.
// Re-running it updates records in place. A cancelled ctx stops new requests; batches already
// collected are still written before Harvest returns.
func (a *App) Harvest(ctx context.Context, ids []string) (HarvestReport, error) {
	if len(ids) == 0 {
		ids = a.cfg.Harvest.Sources
	}
	if _, unknown := a.registry.Select(ids); len(ids) > 0 && len(unknown) == len(ids) {
		return HarvestReport{Unknown: unknown}, fmt.Errorf("no known source among %v", ids)
	}
	runID, err := a.ids.NewID()
	if err != nil {
		return HarvestReport{}, err
	}
	logger := a.logger.With(zap.String("run_id", runID))
	report := HarvestReport{RunID: runID, StartedAt: a.clock.Now()}

	w := writer.New(ctx, a.store, writer.WithLogger(logger), writer.WithClock(a.clock))
	a.begin(RunStatus{RunID: runID, Phase: PhaseHarvest, StartedAt: report.StartedAt}, w)
	defer a.end()

	opts := []harvest.Option{harvest.WithLogger(logger)}
	if a.limiter.Enabled() {
		opts = append(opts, harvest.WithLimiter(a.limiter))
	}
	if a.pauser != nil {
		opts = append(opts, harvest.WithPauser(a.pauser))
	}
	scheduler := harvest.NewScheduler(a.registry, a.fetchers, a.cfg.HarvestSettings(), opts...)

	logger.Info("harvest run started", zap.Strings("sources", ids))
	res := scheduler.Run(ctx, ids, w)
	counts := w.Close()

	report.Unknown = res.Unknown
	report.Interrupted = ctx.Err() != nil
	for id, stats := range res.Stats {
		c := counts[id]
		report.Sources = append(report.Sources, SourceReport{SourceStats: stats, Saved: c.Saved, Failed: c.Failed})
		report.Saved += c.Saved
		report.Failed += c.Failed
	}
	sort.Slice(report.Sources, func(i, j int) bool { return report.Sources[i].Source < report.Sources[j].Source })
	report.FinishedAt = a.clock.Now()

	logger.Info("harvest run finished",
		zap.Int("sources", len(report.Sources)),
		zap.Int("saved", report.Saved),
		zap.Int("failed", report.Failed),
		zap.Bool("interrupted", report.Interrupted),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// NormalizeAll rebuilds the derived tables of every stored record.
func (a *App) NormalizeAll(ctx context.Context) (normalize.Stats, error) {
	ncfg, err := a.cfg.NormalizeSettings()
	if err != nil {
		return normalize.Stats{}, err
	}
	runID, err := a.ids.NewID()
	if err != nil {
		return normalize.Stats{}, err
	}
	logger := a.logger.With(zap.String("run_id", runID))
	n, err := normalize.New(a.store, ncfg, normalize.WithLogger(logger))
	if err != nil {
		return normalize.Stats{}, err
	}
	a.begin(RunStatus{RunID: runID, Phase: PhaseNormalize, StartedAt: a.clock.Now()}, nil)
	defer a.end()
	return n.NormalizeAll(ctx)
}

// Serve runs the status server on metrics.addr until ctx is done. It returns immediately when
// no address is configured.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Metrics.Addr == "" {
		return nil
	}
	srv, err := api.NewServer(api.Deps{
		Store:    a.store,
		Registry: a.registry,
		Status:   func() any { return a.Status() },
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Serve(ctx, a.cfg.Metrics.Addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
