package harvest

import (
	"context"
	"time"

	"github.com/JakeFAU/integra-harvester/internal/source"
)

// Fetcher performs a single GET and returns the body of a successful response.
// Implementations must not retry; the Client owns the retry loop.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFactory builds the fetcher used for one source.
type FetcherFactory func(src source.Source) Fetcher

// Pauser sleeps for delay or until ctx is done.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Waiter throttles requests before they are sent.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// BatchSink receives each completed detail batch before the next batch starts.
type BatchSink interface {
	Submit(src source.Source, batch []Detail)
}
