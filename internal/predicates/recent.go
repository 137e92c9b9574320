package predicates

import (
	"fmt"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/internal/sequence"
)

// HasRecentSystemicTreatment passes when the latest systemic course started
// within MaxMonths months of ReferenceDate. ReferenceDate must carry a month.
type HasRecentSystemicTreatment struct {
	ReferenceDate core.PartialDate
	MaxMonths     int
}

func (p HasRecentSystemicTreatment) DisplayName() string {
	return fmt.Sprintf("systemic treatment within %d months", p.MaxMonths)
}

func (p HasRecentSystemicTreatment) Evaluate(record patient.Record) verdict.Verdict {
	name := p.DisplayName()
	last, ok := sequence.LastSystemic(record.Treatments)
	if !ok {
		return verdict.Simple(verdict.OutcomeFail,
			"No systemic treatment recorded",
			"No systemic treatment").WithDisplayName(name)
	}
	if !last.Start.HasYear() || !p.ReferenceDate.HasMonth() {
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Unknown if %s since start of %s is unknown", name, last.Name),
			"Unknown systemic treatment date").WithDisplayName(name)
	}

	// A year-only start could fall anywhere in that year.
	nearest, farthest := monthsBetween(last.Start, p.ReferenceDate)
	switch {
	case farthest <= p.MaxMonths:
		return verdict.Simple(verdict.OutcomePass,
			fmt.Sprintf("Last systemic treatment %s started %s", last.Name, last.Start),
			"Recent systemic treatment").WithDisplayName(name)
	case nearest > p.MaxMonths:
		return verdict.Simple(verdict.OutcomeFail,
			fmt.Sprintf("Last systemic treatment %s started %s, more than %d months ago", last.Name, last.Start, p.MaxMonths),
			"No recent systemic treatment").WithDisplayName(name)
	default:
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Unknown if %s since %s started in %s", name, last.Name, last.Start),
			"Undetermined systemic treatment date").WithDisplayName(name)
	}
}

// monthsBetween returns the smallest and largest possible month distance from
// start to ref.
func monthsBetween(start, ref core.PartialDate) (nearest, farthest int) {
	refOrdinal := *ref.Year*MONTHS_PER_YEAR + *ref.Month
	if start.HasMonth() {
		d := refOrdinal - (*start.Year*MONTHS_PER_YEAR + *start.Month)
		return d, d
	}
	return refOrdinal - (*start.Year*MONTHS_PER_YEAR + MONTHS_PER_YEAR),
		refOrdinal - (*start.Year*MONTHS_PER_YEAR + 1)
}
