// Package source holds the static table of Integra portal deployments.
package source

import (
	"sort"
	"strings"
)

// Source is one institutional deployment of the portal.
type Source struct {
	ID      string
	BaseURL string
	Region  string
}

// Registry is an immutable, ordered lookup of sources.
type Registry struct {
	ordered []Source
	byID    map[string]Source
}

// NewRegistry builds a registry preserving the given order. Later duplicates are ignored.
func NewRegistry(sources []Source) *Registry {
	r := &Registry{byID: make(map[string]Source, len(sources))}
	for _, s := range sources {
		s.BaseURL = strings.TrimRight(s.BaseURL, "/")
		if _, dup := r.byID[s.ID]; dup || s.ID == "" {
			continue
		}
		r.byID[s.ID] = s
		r.ordered = append(r.ordered, s)
	}
	return r
}

// Default returns the registry of the federal network portals.
func Default() *Registry {
	return NewRegistry(federalNetwork)
}

// All returns every source in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Lookup finds a source by id, falling back to a case-insensitive match.
func (r *Registry) Lookup(id string) (Source, bool) {
	if s, ok := r.byID[id]; ok {
		return s, true
	}
	for _, s := range r.ordered {
		if strings.EqualFold(s.ID, id) {
			return s, true
		}
	}
	return Source{}, false
}

// Select resolves ids to sources in the order given. An empty ids slice selects every source.
// Unknown ids are returned separately so callers can report them.
func (r *Registry) Select(ids []string) (selected []Source, unknown []string) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s, ok := r.Lookup(strings.TrimSpace(id))
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		selected = append(selected, s)
	}
	return selected, unknown
}

// IDs returns the sorted identifiers of every source.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, s := range r.ordered {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

var federalNetwork = []Source{
	{ID: "IFAC", BaseURL: "https://integra.ifac.edu.br", Region: "AC"},
	{ID: "IFAL", BaseURL: "https://integra.ifal.edu.br", Region: "AL"},
	{ID: "IFAP", BaseURL: "https://integra.ifap.edu.br", Region: "AP"},
	{ID: "IFAM", BaseURL: "https://integra.ifam.edu.br", Region: "AM"},
	{ID: "IFBA", BaseURL: "https://integra.ifba.edu.br", Region: "BA"},
	{ID: "IFBAIANO", BaseURL: "https://integra.ifbaiano.edu.br", Region: "BA"},
	{ID: "IFB", BaseURL: "https://integra.ifb.edu.br", Region: "DF"},
	{ID: "IFCE", BaseURL: "https://integra.ifce.edu.br", Region: "CE"},
	{ID: "IFES", BaseURL: "https://integra.ifes.edu.br", Region: "ES"},
	{ID: "IFG", BaseURL: "https://integra.ifg.edu.br", Region: "GO"},
	{ID: "IFGOIANO", BaseURL: "https://integra.ifgoiano.edu.br", Region: "GO"},
	{ID: "IFMA", BaseURL: "https://integra.ifma.edu.br", Region: "MA"},
	{ID: "IFMG", BaseURL: "https://integra.ifmg.edu.br", Region: "MG"},
	{ID: "IFNMG", BaseURL: "https://integra.ifnmg.edu.br", Region: "MG"},
	{ID: "IFSUDESTEMG", BaseURL: "https://integra.ifsudestemg.edu.br", Region: "MG"},
	{ID: "IFSULDEMINAS", BaseURL: "https://integra.ifsuldeminas.edu.br", Region: "MG"},
	{ID: "IFTM", BaseURL: "https://integra.iftm.edu.br", Region: "MG"},
	{ID: "IFMT", BaseURL: "https://integra.ifmt.edu.br", Region: "MT"},
	{ID: "IFMS", BaseURL: "https://integra.ifms.edu.br", Region: "MS"},
	{ID: "IFPA", BaseURL: "https://integra.ifpa.edu.br", Region: "PA"},
	{ID: "IFPB", BaseURL: "https://integra.ifpb.edu.br", Region: "PB"},
	{ID: "IFPE", BaseURL: "https://integra.ifpe.edu.br", Region: "PE"},
	{ID: "IFSertaoPE", BaseURL: "https://integra.ifsertao-pe.edu.br", Region: "PE"},
	{ID: "IFPI", BaseURL: "https://integra.ifpi.edu.br", Region: "PI"},
	{ID: "IFPR", BaseURL: "https://integra.ifpr.edu.br", Region: "PR"},
	{ID: "IFRJ", BaseURL: "https://integra.ifrj.edu.br", Region: "RJ"},
	// Plain HTTP; this deployment does not serve TLS.
	{ID: "IFFLUMINENSE", BaseURL: "http://integra.iff.edu.br", Region: "RJ"},
	{ID: "IFRN", BaseURL: "https://integra.ifrn.edu.br", Region: "RN"},
	{ID: "IFRO", BaseURL: "https://integra.ifro.edu.br", Region: "RO"},
	{ID: "IFRR", BaseURL: "https://integra.ifrr.edu.br", Region: "RR"},
	{ID: "IFRS", BaseURL: "https://integra.ifrs.edu.br", Region: "RS"},
	{ID: "IFFARROUPILHA", BaseURL: "https://integra.iffarroupilha.edu.br", Region: "RS"},
	{ID: "IFSUL", BaseURL: "https://integra.ifsul.edu.br", Region: "RS"},
	{ID: "IFSC", BaseURL: "https://integra.ifsc.edu.br", Region: "SC"},
	{ID: "IFC", BaseURL: "https://integra.ifc.edu.br", Region: "SC"},
	{ID: "IFSP", BaseURL: "https://integra.ifsp.edu.br", Region: "SP"},
	{ID: "IFS", BaseURL: "https://integra.ifs.edu.br", Region: "SE"},
	{ID: "IFTO", BaseURL: "https://integra.ifto.edu.br", Region: "TO"},
	{ID: "CEFET-RJ", BaseURL: "https://integra.cefet-rj.br", Region: "RJ"},
	{ID: "CEFET-MG", BaseURL: "https://integra.cefetmg.br", Region: "MG"},
}
