package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileOverlay mirrors the subset of Config that makes sense to pin in a
// checked-in file rather than the environment: the tunables that rarely
// change per-deploy. Anything left zero-valued here falls through to the
// environment/default chain in Load.
type fileOverlay struct {
	MaxLand          int     `yaml:"max_land"`
	FetchConcurrency int     `yaml:"fetch_concurrency"`
	APIPort          string  `yaml:"api_port"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps"`
}

// loadFileOverlay reads an optional YAML config file. A missing file is not
// an error; every other read/parse failure is.
func loadFileOverlay(path string) (*fileOverlay, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	return &overlay, nil
}

// apply overwrites each field of cfg whose overlay value is set (positive
// or non-empty); overlay fields left zero-valued leave cfg unchanged.
// Environment variables read after this in Load still take precedence
// over the file for any variable explicitly set.
func (o *fileOverlay) apply(cfg *Config) {
	if o == nil {
		return
	}
	if o.MaxLand > 0 {
		cfg.MaxLand = o.MaxLand
	}
	if o.FetchConcurrency > 0 {
		cfg.FetchConcurrency = o.FetchConcurrency
	}
	if o.APIPort != "" {
		cfg.APIPort = o.APIPort
	}
	if o.RateLimitRPS > 0 {
		cfg.RateLimitRPS = o.RateLimitRPS
	}
}
