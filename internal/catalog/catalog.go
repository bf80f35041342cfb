// Package catalog defines the ordered topic stages of the onboarding
// dialogue. The catalog is read-only configuration: the engine uses it for
// stage names and expected fields, the handoff uses it to enumerate the
// brief, and the local scorer uses its keyword and prompt banks.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stage describes one topic segment of the dialogue.
type Stage struct {
	Stage         int      `yaml:"stage"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	DataToCollect []string `yaml:"data_to_collect"`

	// Dialogue content used by the local scorer.
	Intro      string   `yaml:"intro,omitempty"`
	FollowUps  []string `yaml:"follow_ups,omitempty"`
	Validation string   `yaml:"validation,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`
}

// Catalog is an ordered, immutable list of stages.
type Catalog struct {
	stages []Stage
}

// Default returns the embedded seven-stage consulting intake dialogue.
func Default() *Catalog {
	return &Catalog{stages: defaultStages}
}

// Load reads a stage catalog from a YAML file. Stages must be numbered
// 1..N contiguously in order.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var doc struct {
		Stages []Stage `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if len(doc.Stages) == 0 {
		return nil, fmt.Errorf("catalog %s defines no stages", path)
	}
	for i, s := range doc.Stages {
		if s.Stage != i+1 {
			return nil, fmt.Errorf("catalog %s: stage %d appears at position %d", path, s.Stage, i+1)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("catalog %s: stage %d has no name", path, s.Stage)
		}
	}

	return &Catalog{stages: doc.Stages}, nil
}

// TotalStages returns the number of stages.
func (c *Catalog) TotalStages() int {
	return len(c.stages)
}

// Stage returns the stage with the given number, or false if out of range.
func (c *Catalog) Stage(n int) (Stage, bool) {
	if n < 1 || n > len(c.stages) {
		return Stage{}, false
	}
	return c.stages[n-1], true
}

// Name returns the human-readable name for a stage number, or "" if unknown.
func (c *Catalog) Name(n int) string {
	s, ok := c.Stage(n)
	if !ok {
		return ""
	}
	return s.Name
}

// FieldsFor returns the declared data fields for a stage number.
func (c *Catalog) FieldsFor(n int) []string {
	s, ok := c.Stage(n)
	if !ok {
		return nil
	}
	return s.DataToCollect
}

// Stages returns a copy of the ordered stage list.
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}
