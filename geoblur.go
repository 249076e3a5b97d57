// Package geoblur anonymizes the locations in a MaxMind DB geolocation
// store. Records that point at a city with a population below a threshold
// are moved to a nearby city that meets it, or lose their location when
// no such city exists ("geographic blurring").
//
// Example:
//
//	b, err := geoblur.Load("cities500.txt", "admin1CodesASCII.txt",
//	    geoblur.WithMinPopulation(5000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src, err := geoblur.OpenStore("GeoLite2-City.mmdb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//	n, err := geoblur.Rewrite("GeoLite2-City.mmdb", b.Blur(src.Entries()), "blurred.mmdb")
package geoblur

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
)

// DefaultMinPopulation is the population a city needs to be disclosed
// when no threshold is configured.
const DefaultMinPopulation = 5000

// DefaultSubdivisionCountries are the countries whose cities are grouped
// by first-level subdivision rather than by country.
var DefaultSubdivisionCountries = []string{"US", "CH", "BE", "ME"}

// progressEvery is how often (in rows or prefixes) progress is logged.
const progressEvery = 100000

// Config holds the settings shared by the loaders, the blurrer and the
// store writer.
type Config struct {
	MinPopulation        int64    // Cities below this are suppressed
	SubdivisionCountries []string // Countries grouped by "CC.ADMIN1"
	DatabaseType         string   // Overrides the rewritten store's type when set
	Quiet                bool     // Only log errors
	Logger               *log.Logger
	Stats                *Stats // Optional run metrics
}

// Option is a functional option for configuring geoblur.
type Option func(*Config)

// WithMinPopulation sets the population threshold.
func WithMinPopulation(n int64) Option {
	return func(c *Config) {
		c.MinPopulation = n
	}
}

// WithSubdivisionCountries replaces the countries grouped by subdivision.
func WithSubdivisionCountries(codes ...string) Option {
	return func(c *Config) {
		c.SubdivisionCountries = append([]string(nil), codes...)
	}
}

// WithDatabaseType sets the database type written by Rewrite.
func WithDatabaseType(t string) Option {
	return func(c *Config) {
		c.DatabaseType = t
	}
}

// WithQuiet suppresses progress logging.
func WithQuiet(quiet bool) Option {
	return func(c *Config) {
		c.Quiet = quiet
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithStats records run metrics into s.
func WithStats(s *Stats) Option {
	return func(c *Config) {
		c.Stats = s
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		MinPopulation:        DefaultMinPopulation,
		SubdivisionCountries: append([]string(nil), DefaultSubdivisionCountries...),
	}
}

func newConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	switch {
	case cfg.Quiet:
		quiet := newLogger(log.ERROR)
		if cfg.Logger != nil {
			quiet.SetOutput(cfg.Logger.Output())
		}
		cfg.Logger = quiet
	case cfg.Logger == nil:
		cfg.Logger = newLogger(log.INFO)
	}
	return cfg
}

// Blurrer rewrites records pointing at suppressed cities. Its corpus,
// admin codes and suppression set are built once and only read afterwards,
// so a Blurrer is safe for concurrent use.
type Blurrer struct {
	groups     Groups
	adminCodes AdminCodes
	suppressed SuppressionSet
	config     *Config
}

// New builds a Blurrer from an already parsed corpus. adminCodes may be
// nil, in which case replacement subdivisions carry no name.
func New(cities []City, adminCodes AdminCodes, opts ...Option) *Blurrer {
	cfg := newConfig(opts)

	cfg.Logger.Infof("Grouping and filtering %d cities", len(cities))
	b := &Blurrer{
		groups:     GroupCities(cities, cfg.MinPopulation, cfg.SubdivisionCountries),
		adminCodes: adminCodes,
		suppressed: NewSuppressionSet(cities, cfg.MinPopulation),
		config:     cfg,
	}
	cfg.Logger.Infof("%d cities kept in %d groups, %d suppressed",
		b.groups.Len(), len(b.groups), len(b.suppressed))

	cfg.Stats.setCorpus(len(cities), b.groups.Len(), len(b.groups), len(b.suppressed), len(adminCodes))
	return b
}

// Load reads the cities corpus and, when adminCodesPath is not empty, the
// admin codes, and builds a Blurrer from them.
func Load(citiesPath, adminCodesPath string, opts ...Option) (*Blurrer, error) {
	cfg := newConfig(opts)
	opts = append(opts, WithLogger(cfg.Logger))

	start := time.Now()
	cities, err := LoadCities(citiesPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading cities: %w", err)
	}
	cfg.Stats.ObservePhase("cities", time.Since(start))

	var adminCodes AdminCodes
	if adminCodesPath != "" {
		start = time.Now()
		adminCodes, err = LoadAdminCodes(adminCodesPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading admin codes: %w", err)
		}
		cfg.Stats.ObservePhase("admincodes", time.Since(start))
	}

	return New(cities, adminCodes, opts...), nil
}

// Groups returns the replacement candidates by spatial key.
func (b *Blurrer) Groups() Groups { return b.groups }

// Suppressed returns the ids of the cities that trigger blurring.
func (b *Blurrer) Suppressed() SuppressionSet { return b.suppressed }

// AdminCodes returns the admin codes used to label replacements.
func (b *Blurrer) AdminCodes() AdminCodes { return b.adminCodes }

// Logger returns the logger the Blurrer reports progress to.
func (b *Blurrer) Logger() *log.Logger { return b.config.Logger }
