package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/integra-harvester/internal/shape"
)

// DetailFanout fetches candidate details in sequential batches. All fetches of a batch run
// concurrently, so the batch size is also the per-source concurrency ceiling.
type DetailFanout struct {
	client     *Client
	baseURL    string
	batchSize  int
	batchDelay time.Duration
	pauser     Pauser
	logger     *zap.Logger
}

// NewDetailFanout builds a fan-out over baseURL using client.
func NewDetailFanout(client *Client, baseURL string, cfg Config, opts ...Option) *DetailFanout {
	o := buildOptions(opts)
	size := cfg.MaxConcurrentDetails
	if size <= 0 {
		size = 1
	}
	return &DetailFanout{
		client:     client,
		baseURL:    baseURL,
		batchSize:  size,
		batchDelay: cfg.BatchDelay,
		pauser:     o.pauser,
		logger:     o.logger.Named("details"),
	}
}

// DetailURL returns the detail endpoint of slug.
func (d *DetailFanout) DetailURL(slug string) string {
	return fmt.Sprintf("%s/api/portfolio/pessoa/s/%s", d.baseURL, url.PathEscape(slug))
}

// FanoutResult is the output of Run.
type FanoutResult struct {
	// Details follow candidate order; failed candidates are absent.
	Details       []Detail
	SkippedNoSlug int
}

// Run fetches every candidate with a slug. onBatch, if set, receives each completed batch
// before the next one starts. A cancelled ctx stops new batches from starting.
func (d *DetailFanout) Run(ctx context.Context, candidates []Person, onBatch func([]Detail)) FanoutResult {
	var res FanoutResult
	work := make([]Person, 0, len(candidates))
	for _, c := range candidates {
		if c.Slug == "" {
			res.SkippedNoSlug++
			continue
		}
		work = append(work, c)
	}
	if res.SkippedNoSlug > 0 {
		d.logger.Warn("skipping candidates without slug", zap.Int("count", res.SkippedNoSlug))
	}

	for start := 0; start < len(work); start += d.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+d.batchSize, len(work))
		batch := d.fetchBatch(ctx, work[start:end])
		res.Details = append(res.Details, batch...)
		if onBatch != nil && len(batch) > 0 {
			onBatch(batch)
		}
		d.logger.Debug("detail batch done",
			zap.Int("processed", end),
			zap.Int("candidates", len(work)),
			zap.Int("collected", len(res.Details)),
		)
		if end < len(work) {
			d.pauser.Pause(ctx, d.batchDelay)
		}
	}
	return res
}

func (d *DetailFanout) fetchBatch(ctx context.Context, batch []Person) []Detail {
	slots := make([]*Detail, len(batch))
	var g errgroup.Group
	g.SetLimit(len(batch))
	for i, p := range batch {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("detail fetch panicked", zap.String("slug", p.Slug), zap.Any("panic", r))
				}
			}()
			slots[i] = d.fetchOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Detail, 0, len(batch))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (d *DetailFanout) fetchOne(ctx context.Context, p Person) *Detail {
	u := d.DetailURL(p.Slug)
	var payload objectJSON
	if !d.client.FetchJSON(ctx, u, &payload) {
		return nil
	}
	if payload.empty() {
		d.logger.Warn("empty detail payload", zap.String("slug", p.Slug))
		return nil
	}
	return &Detail{
		Person:  p,
		URL:     u,
		Email:   firstEmail(payload),
		Payload: []byte(payload),
	}
}

// objectJSON keeps a JSON object verbatim and rejects any other JSON value.
type objectJSON []byte

var errNotObject = errors.New("detail payload is not a JSON object")

func (o *objectJSON) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	*o = append((*o)[:0], trimmed...)
	return nil
}

func (o objectJSON) empty() bool {
	v, err := shape.Decode(o)
	if err != nil {
		return true
	}
	m, _ := v.(map[string]any)
	return len(m) == 0
}

func firstEmail(payload []byte) string {
	v, err := shape.Decode(payload)
	if err != nil {
		return ""
	}
	for _, e := range shape.Records(shape.Get(v, "dadosGerais", "emails")) {
		if addr := shape.String(e["email"]); addr != "" {
			return addr
		}
	}
	return ""
}
