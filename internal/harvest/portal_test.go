package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/integra-harvester/internal/source"
)

// fakePortal serves the listing and detail endpoints of one portal from memory.
type fakePortal struct {
	people []Person
	// totalHint overrides the reported total when non-zero.
	totalHint int
	// failing slugs always answer with an error.
	failing map[string]bool
	// hold delays every response.
	hold time.Duration

	mu           sync.Mutex
	listingStart []int
	detailCalls  map[string]int

	inflight    atomic.Int64
	maxInflight atomic.Int64
	// shared, when set, also tracks concurrency across portals.
	shared *concurrency
}

type concurrency struct {
	cur atomic.Int64
	max atomic.Int64
}

func (c *concurrency) enter() {
	n := c.cur.Add(1)
	for {
		m := c.max.Load()
		if n <= m || c.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (c *concurrency) leave() { c.cur.Add(-1) }

func newPeople(n int, role func(i int) string) []Person {
	out := make([]Person, n)
	for i := range out {
		out[i] = Person{
			Slug: fmt.Sprintf("pessoa-%03d", i),
			Name: fmt.Sprintf("Pessoa %d", i),
			Unit: "Campus Central",
			Role: role(i),
		}
	}
	return out
}

func (p *fakePortal) Fetch(ctx context.Context, raw string) ([]byte, error) {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		m := p.maxInflight.Load()
		if n <= m || p.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if p.shared != nil {
		p.shared.enter()
		defer p.shared.leave()
	}
	if p.hold > 0 {
		select {
		case <-time.After(p.hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(u.Path, "/api/portfolio/pessoa/data"):
		return p.listing(u.Query())
	case strings.Contains(u.Path, "/api/portfolio/pessoa/s/"):
		return p.detail(u.Path[strings.LastIndex(u.Path, "/")+1:])
	}
	return nil, errors.New("status 404")
}

func (p *fakePortal) listing(q url.Values) ([]byte, error) {
	start, _ := strconv.Atoi(q.Get("start"))
	length, _ := strconv.Atoi(q.Get("length"))
	p.mu.Lock()
	p.listingStart = append(p.listingStart, start)
	p.mu.Unlock()

	end := min(start+length, len(p.people))
	rows := []map[string]string{}
	for i := start; i < end; i++ {
		pp := p.people[i]
		rows = append(rows, map[string]string{"slug": pp.Slug, "nome": pp.Name, "campusNome": pp.Unit, "cargo": pp.Role})
	}
	total := len(p.people)
	if p.totalHint != 0 {
		total = p.totalHint
	}
	return json.Marshal([]any{map[string]int{"total": total, "length": len(rows)}, rows})
}

func (p *fakePortal) detail(slug string) ([]byte, error) {
	p.mu.Lock()
	if p.detailCalls == nil {
		p.detailCalls = make(map[string]int)
	}
	p.detailCalls[slug]++
	p.mu.Unlock()
	if p.failing[slug] {
		return nil, errors.New("status 500")
	}
	for _, pp := range p.people {
		if pp.Slug == slug {
			return json.Marshal(map[string]any{
				"dadosGerais": map[string]any{
					"nomeCompleto": pp.Name,
					"emails":       []any{map[string]string{"email": slug + "@example.edu.br"}},
				},
			})
		}
	}
	return nil, errors.New("status 404")
}

func (p *fakePortal) listingCalls() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.listingStart...)
}

// recordingPauser records requested delays without sleeping.
type recordingPauser struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingPauser) Pause(_ context.Context, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
}

func (r *recordingPauser) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// collectingSink gathers submitted batches.
type collectingSink struct {
	mu      sync.Mutex
	batches map[string][]int
	total   int
}

func (s *collectingSink) Submit(src source.Source, batch []Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batches == nil {
		s.batches = make(map[string][]int)
	}
	s.batches[src.ID] = append(s.batches[src.ID], len(batch))
	s.total += len(batch)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBaseDelay = 2 * time.Second
	cfg.PageDelay = 100 * time.Millisecond
	cfg.BatchDelay = 500 * time.Millisecond
	return cfg
}
