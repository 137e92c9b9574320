package rules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/internal/inference"
	"trialgate/internal/predicates"
	"trialgate/ports"
)

// factory.go
// Maps criteria rule names to predicate implementations. Rule parameters are
// positional strings, as they appear in criteria files.

// Rule names a predicate template in a criteria file.
type Rule string

const (
	RuleHasTumorStage                 Rule = "HAS_TUMOR_STAGE_X"
	RuleHasHadAtMostSystemicLines     Rule = "HAS_HAD_AT_MOST_X_SYSTEMIC_LINES"
	RuleHasHadAtLeastSystemicLines    Rule = "HAS_HAD_AT_LEAST_X_SYSTEMIC_LINES"
	RuleHasHadSystemicTreatmentWithin Rule = "HAS_HAD_SYSTEMIC_TREATMENT_WITHIN_X_MONTHS"
	RuleHasHadTreatmentCategory       Rule = "HAS_HAD_TREATMENT_CATEGORY_X"
)

// Environment carries what predicate construction needs beyond parameters.
type Environment struct {
	// ReferenceDate anchors recency rules. It must carry a month for those rules.
	ReferenceDate core.PartialDate
	// Deriver enables stage inference for stage rules. Nil disables it.
	Deriver *inference.StageDeriver
	// InferenceOptions configure the combinator behind derived-stage rules.
	InferenceOptions []inference.Option
}

// RuleConfig describes a rule for listings.
type RuleConfig struct {
	Rule        Rule
	Parameters  string
	Description string
}

type factoryFunc func(rule Rule, params []string, env Environment) (ports.CheckedPredicate, error)

var factories = map[Rule]factoryFunc{
	RuleHasTumorStage:                 buildHasTumorStage,
	RuleHasHadAtMostSystemicLines:     buildHasHadAtMostSystemicLines,
	RuleHasHadAtLeastSystemicLines:    buildHasHadAtLeastSystemicLines,
	RuleHasHadSystemicTreatmentWithin: buildHasHadSystemicTreatmentWithin,
	RuleHasHadTreatmentCategory:       buildHasHadTreatmentCategory,
}

// ParseRule normalizes a rule name as written in a criteria file.
func ParseRule(name string) (Rule, error) {
	rule := Rule(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := factories[rule]; !ok {
		return "", core.NewUnknownRuleError(name)
	}
	return rule, nil
}

// Build returns the predicate for rule configured by params.
func Build(rule Rule, params []string, env Environment) (ports.CheckedPredicate, error) {
	build, ok := factories[rule]
	if !ok {
		return nil, core.NewUnknownRuleError(string(rule))
	}
	return build(rule, params, env)
}

// Rules lists the known rule names in alphabetical order.
func Rules() []Rule {
	out := make([]Rule, 0, len(factories))
	for rule := range factories {
		out = append(out, rule)
	}
	slices.Sort(out)
	return out
}

// GetRuleConfigs returns the rule catalog for display.
func GetRuleConfigs() []RuleConfig {
	return []RuleConfig{
		{RuleHasHadAtLeastSystemicLines, "N", "Certainly received at least N systemic lines"},
		{RuleHasHadAtMostSystemicLines, "N", "Cannot have received more than N systemic lines"},
		{RuleHasHadSystemicTreatmentWithin, "MONTHS", "Latest systemic course started within MONTHS of the reference date"},
		{RuleHasHadTreatmentCategory, "CATEGORY", "Any course tagged with CATEGORY"},
		{RuleHasTumorStage, "STAGE...", "Tumor stage (or its category) is one of STAGE, inferred from lesions when missing"},
	}
}

func buildHasTumorStage(rule Rule, params []string, env Environment) (ports.CheckedPredicate, error) {
	if len(params) == 0 {
		return nil, core.NewInvalidParametersError(string(rule), "expected at least one stage")
	}
	stages := make([]patient.TumorStage, 0, len(params))
	for _, param := range params {
		stage, err := patient.ParseTumorStage(param)
		if err != nil {
			return nil, core.NewInvalidParametersError(string(rule), err.Error())
		}
		stages = append(stages, stage)
	}

	p := predicates.HasTumorStage{Stages: stages}
	if env.Deriver == nil {
		return ports.Checked(p), nil
	}
	return inference.NewDerivedStagePredicate(p, env.Deriver, env.InferenceOptions...), nil
}

func buildHasHadAtMostSystemicLines(rule Rule, params []string, _ Environment) (ports.CheckedPredicate, error) {
	n, err := singleCount(rule, params)
	if err != nil {
		return nil, err
	}
	return ports.Checked(predicates.HasHadLimitedSystemicLines{MaxLines: n}), nil
}

func buildHasHadAtLeastSystemicLines(rule Rule, params []string, _ Environment) (ports.CheckedPredicate, error) {
	n, err := singleCount(rule, params)
	if err != nil {
		return nil, err
	}
	return ports.Checked(predicates.HasHadMinimumSystemicLines{MinLines: n}), nil
}

func buildHasHadSystemicTreatmentWithin(rule Rule, params []string, env Environment) (ports.CheckedPredicate, error) {
	n, err := singleCount(rule, params)
	if err != nil {
		return nil, err
	}
	if !env.ReferenceDate.HasMonth() {
		return nil, core.NewInvalidParametersError(string(rule), "reference date must include a month")
	}
	return ports.Checked(predicates.HasRecentSystemicTreatment{ReferenceDate: env.ReferenceDate, MaxMonths: n}), nil
}

func buildHasHadTreatmentCategory(rule Rule, params []string, _ Environment) (ports.CheckedPredicate, error) {
	if len(params) != 1 {
		return nil, core.NewInvalidParametersError(string(rule), fmt.Sprintf("expected 1 category, got %d", len(params)))
	}
	category, err := patient.ParseTreatmentCategory(params[0])
	if err != nil {
		return nil, core.NewInvalidParametersError(string(rule), err.Error())
	}
	return ports.Checked(predicates.HasHadTreatmentCategory{Category: category}), nil
}

func singleCount(rule Rule, params []string) (int, error) {
	if len(params) != 1 {
		return 0, core.NewInvalidParametersError(string(rule), fmt.Sprintf("expected 1 integer, got %d parameters", len(params)))
	}
	n, err := strconv.Atoi(strings.TrimSpace(params[0]))
	if err != nil || n < 0 {
		return 0, core.NewInvalidParametersError(string(rule), fmt.Sprintf("%q is not a non-negative integer", params[0]))
	}
	return n, nil
}
