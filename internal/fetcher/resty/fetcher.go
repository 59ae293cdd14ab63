// Package restyfetcher implements harvest.Fetcher on a resty client.
package restyfetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config controls the HTTP client.
type Config struct {
	UserAgent          string
	Headers            http.Header
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Fetcher performs single GET requests. Resty's own retries are disabled.
type Fetcher struct {
	client *resty.Client
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}) //nolint:gosec
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	for key, values := range cfg.Headers {
		if len(values) > 0 {
			client.SetHeader(key, values[0])
		}
	}
	return &Fetcher{client: client}
}

// Fetch GETs url and returns the body of a 2xx response.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("resty get %s: %w", url, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("resty get %s: status %d", url, code)
	}
	return resp.Body(), nil
}
