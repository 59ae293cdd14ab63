package normalize

import (
	"github.com/JakeFAU/integra-harvester/internal/fold"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

type affiliationFilter struct {
	terms []string
	scope map[store.Entity]bool
}

func newAffiliationFilter(cfg AffiliationConfig) affiliationFilter {
	all := make([]string, 0, len(cfg.Terms)+len(cfg.Keywords))
	all = append(all, cfg.Terms...)
	all = append(all, cfg.Keywords...)
	scope := make(map[store.Entity]bool, len(cfg.Entities))
	for _, e := range cfg.Entities {
		scope[e] = true
	}
	return affiliationFilter{terms: fold.Terms(all), scope: scope}
}

// allows reports whether row may be stored. Rows outside the scope always pass; scoped rows
// with an empty institution never do.
func (f affiliationFilter) allows(row store.Row) bool {
	if !f.scope[row.Entity()] {
		return true
	}
	inst, ok := institutionOf(row)
	if !ok {
		return true
	}
	return fold.ContainsAny(inst, f.terms)
}

// Filterable reports whether rows of e name an institution.
func Filterable(e store.Entity) bool {
	switch e {
	case store.EntityEducation, store.EntityAppointment, store.EntitySupervision, store.EntityAward:
		return true
	default:
		return false
	}
}

func institutionOf(row store.Row) (string, bool) {
	switch r := row.(type) {
	case store.Education:
		return r.Institution, true
	case store.Appointment:
		return r.Institution, true
	case store.Supervision:
		return r.Institution, true
	case store.Award:
		return r.Institution, true
	default:
		return "", false
	}
}
