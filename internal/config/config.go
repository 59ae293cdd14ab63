// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/integra-harvester/internal/harvest"
	"github.com/JakeFAU/integra-harvester/internal/normalize"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. HARVESTER_STORE_DSN.
const EnvPrefix = "HARVESTER"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// HTTP backends.
const (
	BackendColly = "colly"
	BackendResty = "resty"
)

// DefaultUserAgent is a desktop browser string; some portals reject unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// Config captures every knob loaded via Viper. It is built once at startup and not mutated.
type Config struct {
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// HarvestConfig governs listing, filtering and detail fan-out.
type HarvestConfig struct {
	PageSize             int      `mapstructure:"page_size"`
	MaxConcurrentSources int      `mapstructure:"max_concurrent_sources"`
	MaxConcurrentDetails int      `mapstructure:"max_concurrent_details"`
	PageDelayMs          int      `mapstructure:"page_delay_ms"`
	BatchDelayMs         int      `mapstructure:"batch_delay_ms"`
	RoleTerms            []string `mapstructure:"role_terms"`
	// Sources is the default selection when none is given on the command line. Empty means all.
	Sources []string `mapstructure:"sources"`
}

// HTTPConfig configures the portal transport.
type HTTPConfig struct {
	Backend               string            `mapstructure:"backend"`
	TimeoutSeconds        int               `mapstructure:"timeout_seconds"`
	MaxRetries            int               `mapstructure:"max_retries"`
	RetryBaseDelaySeconds float64           `mapstructure:"retry_base_delay_seconds"`
	UserAgent             string            `mapstructure:"user_agent"`
	Headers               map[string]string `mapstructure:"headers"`
	InsecureSkipVerify    bool              `mapstructure:"insecure_skip_verify"`
	RequestsPerSecond     float64           `mapstructure:"requests_per_second"`
	Burst                 int               `mapstructure:"burst"`
	MaxBodyBytes          int               `mapstructure:"max_body_bytes"`
}

// NormalizeConfig tunes the normalizer.
type NormalizeConfig struct {
	Affiliation AffiliationConfig `mapstructure:"affiliation"`
}

// AffiliationConfig is the institution allow-list.
type AffiliationConfig struct {
	Terms    []string `mapstructure:"terms"`
	Keywords []string `mapstructure:"keywords"`
	Entities []string `mapstructure:"entities"`
}

// StoreConfig selects and connects the persistence backend.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the status server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from defaults, an optional file, and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration Load yields with no file and no environment.
func Default() Config {
	h := harvest.DefaultConfig()
	n := normalize.DefaultConfig()
	entities := make([]string, len(n.Affiliation.Entities))
	for i, e := range n.Affiliation.Entities {
		entities[i] = string(e)
	}
	return Config{
		Harvest: HarvestConfig{
			PageSize:             h.PageSize,
			MaxConcurrentSources: h.MaxConcurrentSources,
			MaxConcurrentDetails: h.MaxConcurrentDetails,
			PageDelayMs:          int(h.PageDelay / time.Millisecond),
			BatchDelayMs:         int(h.BatchDelay / time.Millisecond),
			RoleTerms:            h.RoleTerms,
		},
		HTTP: HTTPConfig{
			Backend:               BackendColly,
			TimeoutSeconds:        60,
			MaxRetries:            h.MaxRetries,
			RetryBaseDelaySeconds: h.RetryBaseDelay.Seconds(),
			UserAgent:             DefaultUserAgent,
			Headers: map[string]string{
				"accept":          "application/json, text/javascript, */*; q=0.01",
				"accept-language": "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
			},
			InsecureSkipVerify: true,
			Burst:              1,
		},
		Normalize: NormalizeConfig{Affiliation: AffiliationConfig{
			Terms:    n.Affiliation.Terms,
			Keywords: n.Affiliation.Keywords,
			Entities: entities,
		}},
		Store:   StoreConfig{Driver: DriverSQLite, DSN: "integra.db", MaxConns: 4, MinConns: 0},
		Logging: LoggingConfig{Development: true, Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("harvest.page_size", d.Harvest.PageSize)
	v.SetDefault("harvest.max_concurrent_sources", d.Harvest.MaxConcurrentSources)
	v.SetDefault("harvest.max_concurrent_details", d.Harvest.MaxConcurrentDetails)
	v.SetDefault("harvest.page_delay_ms", d.Harvest.PageDelayMs)
	v.SetDefault("harvest.batch_delay_ms", d.Harvest.BatchDelayMs)
	v.SetDefault("harvest.role_terms", d.Harvest.RoleTerms)
	v.SetDefault("harvest.sources", []string{})

	v.SetDefault("http.backend", d.HTTP.Backend)
	v.SetDefault("http.timeout_seconds", d.HTTP.TimeoutSeconds)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.retry_base_delay_seconds", d.HTTP.RetryBaseDelaySeconds)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.headers", d.HTTP.Headers)
	v.SetDefault("http.insecure_skip_verify", d.HTTP.InsecureSkipVerify)
	v.SetDefault("http.requests_per_second", d.HTTP.RequestsPerSecond)
	v.SetDefault("http.burst", d.HTTP.Burst)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)

	v.SetDefault("normalize.affiliation.terms", d.Normalize.Affiliation.Terms)
	v.SetDefault("normalize.affiliation.keywords", d.Normalize.Affiliation.Keywords)
	v.SetDefault("normalize.affiliation.entities", d.Normalize.Affiliation.Entities)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.max_conns", d.Store.MaxConns)
	v.SetDefault("store.min_conns", d.Store.MinConns)

	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Harvest.PageSize <= 0 {
		errs = append(errs, errors.New("harvest.page_size must be > 0"))
	}
	if c.Harvest.MaxConcurrentSources <= 0 {
		errs = append(errs, errors.New("harvest.max_concurrent_sources must be > 0"))
	}
	if c.Harvest.MaxConcurrentDetails <= 0 {
		errs = append(errs, errors.New("harvest.max_concurrent_details must be > 0"))
	}
	if !hasTerm(c.Harvest.RoleTerms) {
		errs = append(errs, errors.New("harvest.role_terms must contain at least one non-blank term"))
	}
	if c.Harvest.PageDelayMs < 0 || c.Harvest.BatchDelayMs < 0 {
		errs = append(errs, errors.New("harvest delays must be >= 0"))
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("http.timeout_seconds must be > 0"))
	}
	if c.HTTP.MaxRetries <= 0 {
		errs = append(errs, errors.New("http.max_retries must be > 0"))
	}
	if c.HTTP.RetryBaseDelaySeconds < 0 {
		errs = append(errs, errors.New("http.retry_base_delay_seconds must be >= 0"))
	}
	if c.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("http.requests_per_second must be >= 0"))
	}
	switch c.HTTP.Backend {
	case BackendColly, BackendResty:
	default:
		errs = append(errs, fmt.Errorf("http.backend %q is not one of colly, resty", c.HTTP.Backend))
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of postgres, sqlite, memory", c.Store.Driver))
	}
	if c.Store.MaxConns < 0 || c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		errs = append(errs, errors.New("store.min_conns and store.max_conns must be >= 0 and min <= max"))
	}
	if _, err := c.NormalizeSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HarvestSettings converts the harvest and http sections into a harvest.Config.
func (c Config) HarvestSettings() harvest.Config {
	return harvest.Config{
		PageSize:             c.Harvest.PageSize,
		MaxConcurrentSources: c.Harvest.MaxConcurrentSources,
		MaxConcurrentDetails: c.Harvest.MaxConcurrentDetails,
		PageDelay:            time.Duration(c.Harvest.PageDelayMs) * time.Millisecond,
		BatchDelay:           time.Duration(c.Harvest.BatchDelayMs) * time.Millisecond,
		RoleTerms:            c.Harvest.RoleTerms,
		MaxRetries:           c.HTTP.MaxRetries,
		RetryBaseDelay:       time.Duration(c.HTTP.RetryBaseDelaySeconds * float64(time.Second)),
	}
}

// NormalizeSettings converts the normalize section, resolving entity names.
func (c Config) NormalizeSettings() (normalize.Config, error) {
	a := c.Normalize.Affiliation
	out := normalize.Config{Affiliation: normalize.AffiliationConfig{Terms: a.Terms, Keywords: a.Keywords}}
	for _, name := range a.Entities {
		e, err := store.ParseEntity(name)
		if err != nil {
			return normalize.Config{}, fmt.Errorf("normalize.affiliation.entities: %w", err)
		}
		out.Affiliation.Entities = append(out.Affiliation.Entities, e)
	}
	if err := out.Validate(); err != nil {
		return normalize.Config{}, err
	}
	return out, nil
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Header returns the configured request headers.
func (c HTTPConfig) Header() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}

func hasTerm(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}
