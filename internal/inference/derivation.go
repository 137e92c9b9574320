package inference

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"trialgate/domain/patient"
	"trialgate/ports"
)

//go:embed derivation_rules.yaml
var defaultDerivationRules []byte

// LungCancerDOID identifies lung primaries, whose lung lesions do not imply
// advanced stage.
const LungCancerDOID = "1324"

type conditionFunc func(tumor patient.TumorDetails, ontology ports.Ontology) bool

// conditions is the closed set of condition names a derivation table may use.
var conditions = map[string]conditionFunc{
	"no_lesions":                           hasNoLesions,
	"categorized_lesion_without_exclusion": hasCategorizedLesionWithoutExclusion,
}

// DerivationRule maps a named record condition to the stages it implies.
type DerivationRule struct {
	Name      string               `yaml:"name"`
	Condition string               `yaml:"condition"`
	Stages    []patient.TumorStage `yaml:"stages"`

	match conditionFunc
}

type derivationFile struct {
	Rules []DerivationRule `yaml:"rules"`
}

// StageDeriver proposes candidate tumor stages for records without one.
type StageDeriver struct {
	rules    []DerivationRule
	ontology ports.Ontology
}

// NewStageDeriver loads the embedded derivation table.
func NewStageDeriver(ontology ports.Ontology) (*StageDeriver, error) {
	return LoadStageDeriver(defaultDerivationRules, ontology)
}

// LoadStageDeriver parses a YAML derivation table. Unknown condition names and
// rules without stages are rejected.
func LoadStageDeriver(data []byte, ontology ports.Ontology) (*StageDeriver, error) {
	var file derivationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal derivation rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("derivation table has no rules")
	}

	for i := range file.Rules {
		rule := &file.Rules[i]
		match, ok := conditions[rule.Condition]
		if !ok {
			return nil, fmt.Errorf("derivation rule %q: unknown condition %q", rule.Name, rule.Condition)
		}
		if len(rule.Stages) == 0 {
			return nil, fmt.Errorf("derivation rule %q: no stages", rule.Name)
		}
		rule.match = match
	}

	return &StageDeriver{rules: file.Rules, ontology: ontology}, nil
}

// Rules returns the loaded rules in table order.
func (d *StageDeriver) Rules() []DerivationRule {
	return slices.Clone(d.rules)
}

// Derive returns the sorted union of stages implied by every matching rule.
// It returns nil when the stage is already known or nothing matches.
func (d *StageDeriver) Derive(tumor patient.TumorDetails) []patient.TumorStage {
	if tumor.Stage != nil {
		return nil
	}
	var stages []patient.TumorStage
	for _, rule := range d.rules {
		if rule.match(tumor, d.ontology) {
			stages = append(stages, rule.Stages...)
		}
	}
	if len(stages) == 0 {
		return nil
	}
	slices.Sort(stages)
	return slices.Compact(stages)
}

func hasNoLesions(tumor patient.TumorDetails, _ ports.Ontology) bool {
	for _, present := range tumor.CategorizedLesions() {
		if present != nil && *present {
			return false
		}
	}
	return len(tumor.OtherLesions) == 0
}

func hasCategorizedLesionWithoutExclusion(tumor patient.TumorDetails, ontology ports.Ontology) bool {
	lungPrimary := hasDOID(tumor.DOIDs, LungCancerDOID, ontology)
	for organ, present := range tumor.CategorizedLesions() {
		if present == nil || !*present {
			continue
		}
		if organ == "lung" && lungPrimary {
			continue
		}
		return true
	}
	return false
}

// hasDOID reports whether target is among codes or any of their ancestors.
func hasDOID(codes []string, target string, ontology ports.Ontology) bool {
	for _, code := range codes {
		if code == target {
			return true
		}
		if ontology == nil {
			continue
		}
		if slices.Contains(ontology.ParentsOf(code), target) {
			return true
		}
	}
	return false
}
