package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/shape"
)

// Listing is the outcome of a listing walk.
type Listing struct {
	People []Person
	// TotalHint is the portal's own count from the first page; it is never used to stop paging.
	TotalHint int
	Pages     int
	// FirstPageFailed is set when nothing could be listed at all.
	FirstPageFailed bool
}

// ListingWalker pages through a source's person listing.
type ListingWalker struct {
	client    *Client
	baseURL   string
	pageSize  int
	pageDelay time.Duration
	pauser    Pauser
	logger    *zap.Logger
}

// NewListingWalker builds a walker over baseURL using client.
func NewListingWalker(client *Client, baseURL string, cfg Config, opts ...Option) *ListingWalker {
	o := buildOptions(opts)
	return &ListingWalker{
		client:    client,
		baseURL:   baseURL,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		pauser:    o.pauser,
		logger:    o.logger.Named("listing"),
	}
}

// PageURL returns the listing URL for the page starting at offset start.
func (w *ListingWalker) PageURL(start int) string {
	return fmt.Sprintf("%s/api/portfolio/pessoa/data?start=%d&length=%d", w.baseURL, start, w.pageSize)
}

// Walk requests pages at increasing offsets until a page comes back short or empty. A failed
// first page yields an empty listing; a failed later page ends the walk with what was collected.
func (w *ListingWalker) Walk(ctx context.Context) Listing {
	var out Listing
	for start := 0; ; start += w.pageSize {
		people, entries, total, ok := w.page(ctx, start)
		if !ok {
			if start == 0 {
				out.FirstPageFailed = true
				w.logger.Error("first listing page failed", zap.String("url", w.PageURL(start)))
			} else {
				w.logger.Warn("listing page failed, keeping partial listing",
					zap.Int("start", start), zap.Int("collected", len(out.People)))
			}
			return out
		}
		out.Pages++
		if start == 0 {
			out.TotalHint = total
		}
		out.People = append(out.People, people...)
		// Entries that are not objects still count toward the page length.
		if entries < w.pageSize {
			return out
		}
		w.pauser.Pause(ctx, w.pageDelay)
		if ctx.Err() != nil {
			return out
		}
	}
}

// page fetches one listing page. The body is [metadata, [people...]]. entries is the length of
// the person list as served, including elements that are not objects.
func (w *ListingWalker) page(ctx context.Context, start int) (people []Person, entries, total int, ok bool) {
	var raw []json.RawMessage
	if !w.client.FetchJSON(ctx, w.PageURL(start), &raw) {
		return nil, 0, 0, false
	}
	if len(raw) < 2 {
		w.logger.Warn("malformed listing page", zap.Int("start", start), zap.Int("elements", len(raw)))
		return nil, 0, 0, false
	}
	meta, err := shape.Decode(raw[0])
	if err != nil {
		return nil, 0, 0, false
	}
	total, _ = shape.Int(shape.Get(meta, "total"))

	decoded, err := shape.Decode(raw[1])
	if err != nil {
		return nil, 0, 0, false
	}
	list, isList := decoded.([]any)
	if !isList {
		w.logger.Warn("listing page without a person list", zap.Int("start", start))
		return nil, 0, 0, false
	}
	people = make([]Person, 0, len(list))
	for _, el := range list {
		r, isObj := el.(map[string]any)
		if !isObj {
			continue
		}
		people = append(people, Person{
			Slug: shape.String(r["slug"]),
			Name: shape.String(r["nome"]),
			Unit: shape.String(r["campusNome"]),
			Role: shape.String(r["cargo"]),
		})
	}
	if dropped := len(list) - len(people); dropped > 0 {
		w.logger.Warn("dropped listing entries that are not objects",
			zap.Int("start", start), zap.Int("dropped", dropped))
	}
	return people, len(list), total, true
}
