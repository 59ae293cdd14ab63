package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/metrics"
)

// Client issues JSON requests against one source, retrying failed attempts with a linear pause.
type Client struct {
	source     string
	fetcher    Fetcher
	maxRetries int
	baseDelay  time.Duration
	pauser     Pauser
	limiter    Waiter
	logger     *zap.Logger
	errors     atomic.Int64
}

// NewClient builds a client for the named source.
func NewClient(sourceID string, fetcher Fetcher, cfg Config, opts ...Option) *Client {
	o := buildOptions(opts)
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	return &Client{
		source:     sourceID,
		fetcher:    fetcher,
		maxRetries: retries,
		baseDelay:  cfg.RetryBaseDelay,
		pauser:     o.pauser,
		limiter:    o.limiter,
		logger:     o.logger.Named("client").With(zap.String("source", sourceID)),
	}
}

// FetchJSON GETs url and decodes the body into into. Timeouts, transport failures, non-2xx
// responses and undecodable bodies are retried up to the configured number of attempts; the
// pause before attempt n+1 is n times the base delay. It reports false once attempts are
// exhausted or ctx is done, and never returns an error.
func (c *Client) FetchJSON(ctx context.Context, url string, into any) bool {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if err := c.limiter.Wait(ctx, url); err != nil {
			return false
		}
		start := time.Now()
		lastErr = c.attempt(ctx, url, into)
		elapsed := time.Since(start)
		if lastErr == nil {
			metrics.ObserveRequest(c.source, metrics.OutcomeOK, elapsed)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt == c.maxRetries {
			metrics.ObserveRequest(c.source, metrics.OutcomeFailed, elapsed)
			break
		}
		metrics.ObserveRequest(c.source, metrics.OutcomeRetry, elapsed)
		c.logger.Debug("request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
			zap.Error(lastErr),
		)
		c.pauser.Pause(ctx, c.baseDelay*time.Duration(attempt))
	}
	c.errors.Add(1)
	c.logger.Warn("request exhausted retries",
		zap.String("url", url),
		zap.Int("attempts", c.maxRetries),
		zap.Error(lastErr),
	)
	return false
}

func (c *Client) attempt(ctx context.Context, url string, into any) error {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Errors returns how many requests exhausted their retries.
func (c *Client) Errors() int64 {
	return c.errors.Load()
}
