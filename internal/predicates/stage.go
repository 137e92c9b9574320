// Package predicates holds the eligibility predicates criteria can refer to.
// Every predicate is pure: it reads the record and returns a verdict.
package predicates

import (
	"fmt"
	"slices"
	"strings"

	"trialgate/domain/patient"
	"trialgate/domain/verdict"
)

// HasTumorStage passes when the record's stage, or the category it belongs to,
// is one of Stages.
type HasTumorStage struct {
	Stages []patient.TumorStage
}

// DisplayName renders e.g. "tumor stage III or IV".
func (p HasTumorStage) DisplayName() string {
	names := make([]string, 0, len(p.Stages))
	for _, s := range p.Stages {
		names = append(names, s.String())
	}
	return "tumor stage " + strings.Join(names, " or ")
}

func (p HasTumorStage) Evaluate(record patient.Record) verdict.Verdict {
	name := p.DisplayName()
	stage := record.Tumor.Stage
	if stage == nil {
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Tumor stage unknown, cannot determine if %s", name),
			"Unknown tumor stage").WithDisplayName(name)
	}

	if slices.Contains(p.Stages, *stage) || slices.Contains(p.Stages, stage.Category()) {
		return verdict.Simple(verdict.OutcomePass,
			fmt.Sprintf("Tumor stage %s meets %s", stage, name),
			fmt.Sprintf("Tumor stage %s", stage)).WithDisplayName(name)
	}
	return verdict.Simple(verdict.OutcomeFail,
		fmt.Sprintf("Tumor stage %s does not meet %s", stage, name),
		fmt.Sprintf("Tumor stage %s", stage)).WithDisplayName(name)
}
