package harvest

import (
	"errors"
	"time"
)

// DefaultRoleTerms are the role substrings that mark a person as teaching staff.
var DefaultRoleTerms = []string{
	"professor",
	"docente",
	"ebtt",
	"magistério",
	"magistério superior",
	"ensino",
	"titular",
	"adjunto",
	"assistente",
	"auxiliar",
	"substituto",
	"temporário",
	"visitante",
	"associado",
	"colaborador",
}

// Config tunes the harvest pipeline.
type Config struct {
	// PageSize is the listing page length requested from the portal.
	PageSize int
	// MaxConcurrentSources caps how many sources are harvested at once.
	MaxConcurrentSources int
	// MaxConcurrentDetails is the detail batch size; every batch is fetched concurrently.
	MaxConcurrentDetails int
	// PageDelay separates listing page requests.
	PageDelay time.Duration
	// BatchDelay separates detail batches.
	BatchDelay time.Duration
	RoleTerms  []string
	// MaxRetries is the total number of attempts per request.
	MaxRetries int
	// RetryBaseDelay scales the linear pause between attempts.
	RetryBaseDelay time.Duration
}

// DefaultConfig mirrors the settings the portals have been harvested with historically.
func DefaultConfig() Config {
	return Config{
		PageSize:             50,
		MaxConcurrentSources: 5,
		MaxConcurrentDetails: 50,
		PageDelay:            100 * time.Millisecond,
		BatchDelay:           500 * time.Millisecond,
		RoleTerms:            append([]string(nil), DefaultRoleTerms...),
		MaxRetries:           3,
		RetryBaseDelay:       2 * time.Second,
	}
}

// Validate rejects settings that would stall or misbehave.
func (c Config) Validate() error {
	switch {
	case c.PageSize <= 0:
		return errors.New("page size must be > 0")
	case c.MaxConcurrentSources <= 0:
		return errors.New("max concurrent sources must be > 0")
	case c.MaxConcurrentDetails <= 0:
		return errors.New("max concurrent details must be > 0")
	case c.MaxRetries <= 0:
		return errors.New("max retries must be > 0")
	case c.PageDelay < 0 || c.BatchDelay < 0 || c.RetryBaseDelay < 0:
		return errors.New("delays must be >= 0")
	}
	return nil
}
