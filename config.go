package topogo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/descriptor"
)

// Config is the YAML-loadable tuning surface of a session: matching
// tolerance and the per-kind similarity weight table.
//
// The weight table is deliberately the only place weights live; no strategy
// carries a hard-coded split. Example:
//
//	tolerance: 10
//	prefilter: true
//	min_score:
//	  face: 0.7
//	  edge: 0.65
//	weights:
//	  face:
//	    center: 0.35
//	    direction: 0.25
//	    extent: 0.25
//	    type_bonus: 0.15
type Config struct {
	// Tolerance is the center-distance scale for similarity scoring, in
	// model units.
	Tolerance float64 `yaml:"tolerance"`

	// Prefilter enables the spatial grid pre-filter for geometry scans.
	Prefilter bool `yaml:"prefilter"`

	// MinScore holds per-kind minimum similarity thresholds, keyed by
	// lower-case kind name ("face", "edge", ...).
	MinScore map[string]float64 `yaml:"min_score"`

	// Weights holds per-kind similarity weights, keyed like MinScore.
	Weights map[string]descriptor.Weights `yaml:"weights"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance: 1.0,
		MinScore:  map[string]float64{},
		Weights:   map[string]descriptor.Weights{},
	}
}

// ParseConfig parses a YAML config, applying defaults for absent fields.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

func (c Config) validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", c.Tolerance)
	}
	for key, score := range c.MinScore {
		if _, ok := kindFromConfigKey(key); !ok {
			return fmt.Errorf("min_score: unknown element kind %q", key)
		}
		if score < 0 || score > 1 {
			return fmt.Errorf("min_score[%s] must be in [0,1], got %v", key, score)
		}
	}
	for key, w := range c.Weights {
		if _, ok := kindFromConfigKey(key); !ok {
			return fmt.Errorf("weights: unknown element kind %q", key)
		}
		if w.Center < 0 || w.Direction < 0 || w.Extent < 0 || w.TypeBonus < 0 {
			return fmt.Errorf("weights[%s] must be non-negative", key)
		}
		if w.Center+w.Direction+w.Extent+w.TypeBonus == 0 {
			return fmt.Errorf("weights[%s] must not all be zero", key)
		}
	}
	return nil
}

// minScoreByKind converts the string-keyed map to kind keys.
func (c Config) minScoreByKind() map[brep.Kind]float64 {
	out := make(map[brep.Kind]float64, len(c.MinScore))
	for key, score := range c.MinScore {
		if kind, ok := kindFromConfigKey(key); ok {
			out[kind] = score
		}
	}
	return out
}

// weightsByKind converts the string-keyed map to kind keys.
func (c Config) weightsByKind() map[brep.Kind]descriptor.Weights {
	out := make(map[brep.Kind]descriptor.Weights, len(c.Weights))
	for key, w := range c.Weights {
		if kind, ok := kindFromConfigKey(key); ok {
			out[kind] = w
		}
	}
	return out
}

func kindFromConfigKey(key string) (brep.Kind, bool) {
	for _, kind := range brep.Kinds() {
		if strings.EqualFold(kind.String(), key) {
			return kind, true
		}
	}
	return 0, false
}
