package harvest

import (
	"encoding/json"
	"time"
)

// Person is one entry of the listing endpoint.
type Person struct {
	Slug string
	Name string
	Unit string
	Role string
}

// Detail is a candidate together with its verbatim detail payload.
type Detail struct {
	Person Person
	// URL is the detail endpoint the payload came from.
	URL   string
	Email string
	// Payload is a JSON object.
	Payload json.RawMessage
}

// SourceStats summarizes one source's harvest.
type SourceStats struct {
	Source string
	// TotalHint is the total reported by the first listing page.
	TotalHint int
	// Listed is the number of people actually paged through.
	Listed           int
	Candidates       int
	DetailsCollected int
	SkippedNoSlug    int
	// RequestErrors counts requests that exhausted their retries.
	RequestErrors  int64
	MatchedRoles   []string
	UnmatchedRoles []string
	// Diagnostic explains an empty or aborted result.
	Diagnostic string
	// Skipped is set when the harvester crashed or never ran.
	Skipped bool
	Elapsed time.Duration
}

// Result is the outcome of a scheduler run.
type Result struct {
	Records map[string][]Detail
	Stats   map[string]SourceStats
	// Unknown lists requested source ids that are not registered.
	Unknown []string
}

// Total returns the number of details collected across sources.
func (r Result) Total() int {
	n := 0
	for _, recs := range r.Records {
		n += len(recs)
	}
	return n
}
