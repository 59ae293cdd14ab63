package normalize

import (
	"errors"
	"fmt"

	"github.com/JakeFAU/integra-harvester/internal/store"
)

// DefaultAffiliationTerms matches the home institution of the deployment.
var DefaultAffiliationTerms = []string{"Instituto Federal de Brasília"}

// DefaultAffiliationKeywords matches any organization of the federal network.
var DefaultAffiliationKeywords = []string{"INSTITUTO FEDERAL", "CENTRO FEDERAL", "CEFET"}

// AffiliationConfig restricts rows of the listed entities to known institutions. A row passes
// when its institution contains any term or keyword, ignoring case and accents.
type AffiliationConfig struct {
	Terms    []string
	Keywords []string
	Entities []store.Entity
}

// Config holds normalizer settings.
type Config struct {
	Affiliation AffiliationConfig
}

// DefaultConfig applies the allow-list to supervisions only.
func DefaultConfig() Config {
	return Config{
		Affiliation: AffiliationConfig{
			Terms:    append([]string(nil), DefaultAffiliationTerms...),
			Keywords: append([]string(nil), DefaultAffiliationKeywords...),
			Entities: []store.Entity{store.EntitySupervision},
		},
	}
}

// Validate checks that every scoped entity carries an institution.
func (c Config) Validate() error {
	var errs []error
	for _, e := range c.Affiliation.Entities {
		if _, ok := store.TableFor(e); !ok {
			errs = append(errs, fmt.Errorf("normalize.affiliation.entities: unknown entity %q", e))
			continue
		}
		if !Filterable(e) {
			errs = append(errs, fmt.Errorf("normalize.affiliation.entities: %s has no institution", e))
		}
	}
	if len(c.Affiliation.Entities) > 0 && len(c.Affiliation.Terms)+len(c.Affiliation.Keywords) == 0 {
		errs = append(errs, errors.New("normalize.affiliation: entities set without terms or keywords"))
	}
	return errors.Join(errs...)
}
