package normalize

import (
	"fmt"

	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// A rule extracts the rows of one entity from a decoded payload. Rules are pure.
type rule struct {
	entity  store.Entity
	extract func(doc any, rec store.RawRecord) []store.Row
}

var rules = []rule{
	{store.EntityGeneralInfo, extractGeneralInfo},
	{store.EntityEducation, extractEducation},
	{store.EntityAppointment, extractAppointments},
	{store.EntityPublication, extractPublications},
	{store.EntitySupervision, extractSupervisions},
	{store.EntityAward, extractAwards},
	{store.EntityResearchArea, extractResearchAreas},
}

// untitled returns the placeholder title of an item. The item's own id wins over the record id.
func untitled(item map[string]any, recordID int64) string {
	if id := shape.String(item["id"]); id != "" {
		return fmt.Sprintf("[untitled - ID: %s]", id)
	}
	return fmt.Sprintf("[untitled - ID: %d]", recordID)
}

// pick returns the first non-blank value of keys, looking through objs in order.
func pick(objs []map[string]any, keys ...string) any {
	for _, m := range objs {
		if v := shape.First(m, keys...); v != nil {
			return v
		}
	}
	return nil
}
