// Package writer serializes raw record persistence through a single goroutine.
//
// Harvesters run concurrently but the store is not safe for concurrent writers, so every
// completed detail batch is handed to the Writer, which upserts records one at a time in
// submission order.
package writer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/clock/system"
	"github.com/JakeFAU/integra-harvester/internal/harvest"
	"github.com/JakeFAU/integra-harvester/internal/logging"
	"github.com/JakeFAU/integra-harvester/internal/metrics"
	"github.com/JakeFAU/integra-harvester/internal/source"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// Clock supplies record timestamps.
type Clock interface {
	Now() time.Time
}

// Counts tallies the writes of one source.
type Counts struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

type batch struct {
	src     source.Source
	details []harvest.Detail
}

// Writer implements harvest.BatchSink.
type Writer struct {
	store  store.Store
	clock  Clock
	logger *zap.Logger
	ctx    context.Context

	in   chan batch
	done chan struct{}

	// sendMu guards closed; Submit holds it shared while sending.
	sendMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once

	mu     sync.Mutex
	counts map[string]Counts
}

var _ harvest.BatchSink = (*Writer)(nil)

// Option customizes a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = logging.OrNop(logger)
	}
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(c Clock) Option {
	return func(w *Writer) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithBuffer sets how many batches may wait for the writer before Submit blocks.
func WithBuffer(n int) Option {
	return func(w *Writer) {
		if n >= 0 {
			w.in = make(chan batch, n)
		}
	}
}

// New starts a Writer. Writes use a context detached from ctx's cancellation, so batches
// already submitted are committed after an interrupt.
func New(ctx context.Context, st store.Store, opts ...Option) *Writer {
	w := &Writer{
		store:  st,
		clock:  system.New(),
		logger: zap.NewNop(),
		ctx:    context.WithoutCancel(ctx),
		in:     make(chan batch, 16),
		done:   make(chan struct{}),
		counts: make(map[string]Counts),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("writer")
	go w.run()
	return w
}

// Submit queues a batch. It blocks while the buffer is full. Batches submitted after Close
// are dropped and logged.
func (w *Writer) Submit(src source.Source, details []harvest.Detail) {
	if len(details) == 0 {
		return
	}
	w.sendMu.RLock()
	defer w.sendMu.RUnlock()
	if w.closed {
		w.logger.Error("batch submitted after close", zap.String("source", src.ID), zap.Int("details", len(details)))
		return
	}
	w.in <- batch{src: src, details: details}
}

// Close drains pending batches and returns the per-source counts. It is safe to call twice.
func (w *Writer) Close() map[string]Counts {
	w.closeOnce.Do(func() {
		w.sendMu.Lock()
		w.closed = true
		close(w.in)
		w.sendMu.Unlock()
	})
	<-w.done
	return w.Counts()
}

// Counts returns a snapshot of the per-source counts.
func (w *Writer) Counts() map[string]Counts {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]Counts, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

func (w *Writer) run() {
	defer close(w.done)
	for b := range w.in {
		w.write(b)
	}
}

func (w *Writer) write(b batch) {
	var saved, failed int
	for _, d := range b.details {
		rec := store.RawRecord{
			Source:    b.src.ID,
			Slug:      d.Person.Slug,
			Name:      d.Person.Name,
			Unit:      d.Person.Unit,
			Role:      d.Person.Role,
			Email:     d.Email,
			URL:       d.URL,
			Payload:   json.RawMessage(d.Payload),
			UpdatedAt: w.clock.Now(),
		}
		if _, err := w.store.UpsertRecord(w.ctx, rec); err != nil {
			failed++
			metrics.ObserveRecord(b.src.ID, metrics.OutcomeFailed)
			w.logger.Warn("upsert record failed",
				zap.String("source", b.src.ID),
				zap.String("slug", d.Person.Slug),
				zap.Error(err),
			)
			continue
		}
		saved++
		metrics.ObserveRecord(b.src.ID, metrics.OutcomeSaved)
	}

	w.mu.Lock()
	c := w.counts[b.src.ID]
	c.Saved += saved
	c.Failed += failed
	w.counts[b.src.ID] = c
	w.mu.Unlock()

	w.logger.Debug("batch written",
		zap.String("source", b.src.ID),
		zap.Int("saved", saved),
		zap.Int("failed", failed),
	)
}
