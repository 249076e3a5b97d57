package geoblur

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// FileConfig is the optional YAML configuration file. Unset fields keep
// their defaults; command line flags override it.
type FileConfig struct {
	MinPopulation        *int64   `yaml:"min_population"`
	SubdivisionCountries []string `yaml:"subdivision_countries"`
	AdminCodes           string   `yaml:"admincodes"`
	DatabaseType         string   `yaml:"database_type"`
	Quiet                bool     `yaml:"quiet"`
	LogLevel             string   `yaml:"log_level"`
}

// LoadFileConfig reads the YAML configuration at path. Unknown keys are
// an error.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.MinPopulation != nil && *cfg.MinPopulation < 0 {
		return nil, fmt.Errorf("config %s: min_population must not be negative", path)
	}
	if cfg.LogLevel != "" {
		if _, err := ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// Options returns the options set by the file.
func (f *FileConfig) Options() []Option {
	if f == nil {
		return nil
	}
	var opts []Option
	if f.MinPopulation != nil {
		opts = append(opts, WithMinPopulation(*f.MinPopulation))
	}
	if len(f.SubdivisionCountries) > 0 {
		opts = append(opts, WithSubdivisionCountries(f.SubdivisionCountries...))
	}
	if f.DatabaseType != "" {
		opts = append(opts, WithDatabaseType(f.DatabaseType))
	}
	if f.Quiet {
		opts = append(opts, WithQuiet(true))
	}
	return opts
}
