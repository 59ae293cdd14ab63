package harvest

import (
	"sort"
	"sync"

	"github.com/JakeFAU/integra-harvester/internal/fold"
)

// RoleFilter keeps people whose role contains any configured term, ignoring case and accents.
// It remembers every matched and unmatched role for diagnostics.
type RoleFilter struct {
	terms []string

	mu        sync.Mutex
	matched   map[string]struct{}
	unmatched map[string]struct{}
}

// NewRoleFilter folds terms once up front.
func NewRoleFilter(terms []string) *RoleFilter {
	return &RoleFilter{
		terms:     fold.Terms(terms),
		matched:   make(map[string]struct{}),
		unmatched: make(map[string]struct{}),
	}
}

// Match reports whether role is accepted. Empty roles never match and are not recorded.
func (f *RoleFilter) Match(role string) bool {
	if role == "" {
		return false
	}
	ok := fold.ContainsAny(role, f.terms)
	f.mu.Lock()
	if ok {
		f.matched[role] = struct{}{}
	} else {
		f.unmatched[role] = struct{}{}
	}
	f.mu.Unlock()
	return ok
}

// Filter returns the accepted people in their original order.
func (f *RoleFilter) Filter(people []Person) []Person {
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if f.Match(p.Role) {
			out = append(out, p)
		}
	}
	return out
}

// Matched returns the distinct accepted roles, sorted.
func (f *RoleFilter) Matched() []string { return f.sorted(f.matched) }

// Unmatched returns the distinct rejected roles, sorted.
func (f *RoleFilter) Unmatched() []string { return f.sorted(f.unmatched) }

func (f *RoleFilter) sorted(set map[string]struct{}) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
