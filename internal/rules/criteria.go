package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"trialgate/domain/core"
)

// Criterion is one line of a criteria file.
type Criterion struct {
	ID         string   `yaml:"id" json:"id"`
	Rule       string   `yaml:"rule" json:"rule"`
	Parameters []string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	// Skip keeps the criterion in reports as NOT_EVALUATED.
	Skip bool `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// CriteriaSet is a named list of criteria, typically one trial cohort.
type CriteriaSet struct {
	Name string `yaml:"name" json:"name"`
	// ReferenceDate overrides the configured reference date when set.
	ReferenceDate string      `yaml:"reference_date,omitempty" json:"reference_date,omitempty"`
	Criteria      []Criterion `yaml:"criteria" json:"criteria"`
}

// LoadCriteria reads a criteria set from a YAML file.
func LoadCriteria(path string) (CriteriaSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CriteriaSet{}, fmt.Errorf("failed to read criteria file %s: %w", path, err)
	}
	return ParseCriteria(data)
}

// ParseCriteria decodes and validates a criteria set.
func ParseCriteria(data []byte) (CriteriaSet, error) {
	var set CriteriaSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return CriteriaSet{}, fmt.Errorf("failed to unmarshal criteria: %w", err)
	}
	if err := set.Validate(); err != nil {
		return CriteriaSet{}, err
	}
	return set, nil
}

// Validate checks that every rule is known and IDs are unique. Missing IDs
// are filled from the criterion position.
func (s *CriteriaSet) Validate() error {
	if len(s.Criteria) == 0 {
		return fmt.Errorf("%w: criteria set %q has no criteria", core.ErrConfiguration, s.Name)
	}
	if s.ReferenceDate != "" {
		if _, err := core.ParsePartialDate(s.ReferenceDate); err != nil {
			return fmt.Errorf("criteria set %q: %w", s.Name, err)
		}
	}

	seen := make(map[string]bool, len(s.Criteria))
	for i := range s.Criteria {
		c := &s.Criteria[i]
		if strings.TrimSpace(c.ID) == "" {
			c.ID = fmt.Sprintf("C%d", i+1)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: criteria set %q: duplicate criterion id %s", core.ErrConfiguration, s.Name, c.ID)
		}
		seen[c.ID] = true
		if _, err := ParseRule(c.Rule); err != nil {
			return fmt.Errorf("criterion %s: %w", c.ID, err)
		}
	}
	return nil
}
