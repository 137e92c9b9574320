package predicates

import (
	"fmt"
	"strings"

	"trialgate/domain/patient"
	"trialgate/domain/verdict"
)

// HasHadTreatmentCategory passes when any course is tagged with Category.
type HasHadTreatmentCategory struct {
	Category patient.TreatmentCategory
}

func (p HasHadTreatmentCategory) DisplayName() string {
	return "prior " + p.Category.Display()
}

func (p HasHadTreatmentCategory) Evaluate(record patient.Record) verdict.Verdict {
	name := p.DisplayName()
	var matched []string
	for _, course := range record.Treatments {
		if course.HasCategory(p.Category) {
			matched = append(matched, course.Name)
		}
	}

	if len(matched) > 0 {
		return verdict.Simple(verdict.OutcomePass,
			fmt.Sprintf("Has received %s (%s)", p.Category.Display(), strings.Join(matched, ", ")),
			"Prior "+p.Category.Display()).WithDisplayName(name)
	}
	if len(record.Treatments) == 0 {
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Unknown if %s since no treatment history is recorded", name),
			"No treatment history").WithDisplayName(name)
	}
	return verdict.Simple(verdict.OutcomeFail,
		fmt.Sprintf("Has not received %s", p.Category.Display()),
		"No prior "+p.Category.Display()).WithDisplayName(name)
}
