// Package fleet loads the tracked-asset configuration: the satellites the
// operator cares about, assessed against the debris catalog on every
// end-to-end run.
package fleet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Asset is one tracked satellite.
type Asset struct {
	Name    string `yaml:"name" json:"name"`
	NoradID int    `yaml:"norad_id" json:"norad_id"`
}

// Config is the on-disk fleet description.
type Config struct {
	// DistanceScaleKM overrides the characteristic miss distance used in
	// risk scoring when > 0.
	DistanceScaleKM float64 `yaml:"distance_scale_km" json:"distance_scale_km,omitempty"`
	Assets          []Asset `yaml:"assets" json:"assets"`
}

// Load reads and parses a YAML fleet file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse fleet config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate fleet config: %w", err)
	}
	return &c, nil
}

// Validate checks that every asset is usable.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets cannot be empty")
	}
	seen := make(map[int]string, len(c.Assets))
	for i, a := range c.Assets {
		if a.Name == "" {
			return fmt.Errorf("asset %d: name is required", i)
		}
		if a.NoradID <= 0 {
			return fmt.Errorf("asset %q: norad_id must be positive", a.Name)
		}
		if prev, ok := seen[a.NoradID]; ok {
			return fmt.Errorf("asset %q: norad_id %d already used by %q", a.Name, a.NoradID, prev)
		}
		seen[a.NoradID] = a.Name
	}
	if c.DistanceScaleKM < 0 {
		return fmt.Errorf("distance_scale_km cannot be negative")
	}
	return nil
}

// NoradIDs returns the catalog numbers of every asset, in file order.
func (c *Config) NoradIDs() []int {
	ids := make([]int, len(c.Assets))
	for i, a := range c.Assets {
		ids[i] = a.NoradID
	}
	return ids
}
