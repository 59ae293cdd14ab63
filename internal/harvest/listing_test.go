package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListingStopsOnShortPage(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{people: newPeople(170, func(int) string { return "Professor" }), totalHint: 999}
	pauser := &recordingPauser{}
	cfg := testConfig()
	client := NewClient("IFB", portal, cfg, WithPauser(pauser))
	w := NewListingWalker(client, "https://integra.ifb.edu.br", cfg, WithPauser(pauser))

	listing := w.Walk(context.Background())
	require.Len(t, listing.People, 170)
	require.Equal(t, 999, listing.TotalHint, "total hint is reported but never used to stop")
	require.Equal(t, 4, listing.Pages)
	require.Equal(t, []int{0, 50, 100, 150}, portal.listingCalls())
	require.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}, pauser.recorded())
	require.Equal(t, "pessoa-169", listing.People[169].Slug)
}

func TestListingEmptyFinalPage(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{people: newPeople(100, func(int) string { return "Docente" })}
	cfg := testConfig()
	client := NewClient("IFB", portal, cfg, WithPauser(&recordingPauser{}))
	w := NewListingWalker(client, "https://x", cfg, WithPauser(&recordingPauser{}))

	listing := w.Walk(context.Background())
	require.Len(t, listing.People, 100)
	require.Equal(t, []int{0, 50, 100}, portal.listingCalls())
}

func TestListingFullPageWithNonObjectEntryKeepsPaging(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(_ context.Context, raw string) ([]byte, error) {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		start, _ := strconv.Atoi(u.Query().Get("start"))
		n := 50
		if start == 100 {
			n = 20
		}
		rows := make([]any, 0, n)
		for i := range n {
			if start == 0 && i == 10 {
				rows = append(rows, nil)
				continue
			}
			rows = append(rows, map[string]any{"slug": fmt.Sprintf("p-%d", start+i), "cargo": "Professor"})
		}
		return json.Marshal([]any{map[string]int{"total": 120}, rows})
	})
	cfg := testConfig()
	client := NewClient("IFB", fetcher, cfg, WithPauser(&recordingPauser{}))
	w := NewListingWalker(client, "https://x", cfg, WithPauser(&recordingPauser{}))

	listing := w.Walk(context.Background())
	require.Equal(t, 3, listing.Pages)
	require.Len(t, listing.People, 119)
	require.Equal(t, "p-119", listing.People[118].Slug)
}

func TestListingFirstPageFailure(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"error":"maintenance"}`), nil
	})
	cfg := testConfig()
	cfg.MaxRetries = 1
	client := NewClient("IFB", fetcher, cfg, WithPauser(&recordingPauser{}))
	w := NewListingWalker(client, "https://x", cfg, WithPauser(&recordingPauser{}))

	listing := w.Walk(context.Background())
	require.Empty(t, listing.People)
	require.True(t, listing.FirstPageFailed)
}

func TestListingLaterPageFailureKeepsPartial(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{people: newPeople(120, func(int) string { return "Professor" })}
	fetcher := fetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		if len(portal.listingCalls()) >= 2 {
			return []byte(`[{"total":120}]`), nil
		}
		return portal.Fetch(ctx, url)
	})
	cfg := testConfig()
	cfg.MaxRetries = 1
	client := NewClient("IFB", fetcher, cfg, WithPauser(&recordingPauser{}))
	w := NewListingWalker(client, "https://x", cfg, WithPauser(&recordingPauser{}))

	listing := w.Walk(context.Background())
	require.Len(t, listing.People, 100)
	require.False(t, listing.FirstPageFailed)
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	w := NewListingWalker(nil, "https://integra.ifb.edu.br", cfg)
	require.Equal(t, "https://integra.ifb.edu.br/api/portfolio/pessoa/data?start=50&length=50", w.PageURL(50))
}
