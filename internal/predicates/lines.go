package predicates

import (
	"fmt"

	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/internal/sequence"
)

// HasHadLimitedSystemicLines passes when the patient cannot have received more
// than MaxLines systemic lines.
type HasHadLimitedSystemicLines struct {
	MaxLines int
}

func (p HasHadLimitedSystemicLines) DisplayName() string {
	return fmt.Sprintf("at most %d %s", p.MaxLines, SYSTEMIC_LINES_ATTRIBUTE)
}

func (p HasHadLimitedSystemicLines) Evaluate(record patient.Record) verdict.Verdict {
	name := p.DisplayName()
	lower, upper := sequence.MinLines(record.Treatments), sequence.MaxLines(record.Treatments)

	switch {
	case upper <= p.MaxLines:
		return verdict.Simple(verdict.OutcomePass,
			fmt.Sprintf("Has had %s", linesRange(lower, upper)),
			"Limited systemic lines").WithDisplayName(name)
	case lower > p.MaxLines:
		return verdict.Simple(verdict.OutcomeFail,
			fmt.Sprintf("Has had %s, more than %d", linesRange(lower, upper), p.MaxLines),
			"Too many systemic lines").WithDisplayName(name)
	default:
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Unknown if %s since patient has had %s", name, linesRange(lower, upper)),
			"Undetermined systemic lines").WithDisplayName(name)
	}
}

// HasHadMinimumSystemicLines passes when the patient has certainly received at
// least MinLines systemic lines.
type HasHadMinimumSystemicLines struct {
	MinLines int
}

func (p HasHadMinimumSystemicLines) DisplayName() string {
	return fmt.Sprintf("at least %d %s", p.MinLines, SYSTEMIC_LINES_ATTRIBUTE)
}

func (p HasHadMinimumSystemicLines) Evaluate(record patient.Record) verdict.Verdict {
	name := p.DisplayName()
	lower, upper := sequence.MinLines(record.Treatments), sequence.MaxLines(record.Treatments)

	switch {
	case lower >= p.MinLines:
		return verdict.Simple(verdict.OutcomePass,
			fmt.Sprintf("Has had %s", linesRange(lower, upper)),
			"Sufficient systemic lines").WithDisplayName(name)
	case upper < p.MinLines:
		return verdict.Simple(verdict.OutcomeFail,
			fmt.Sprintf("Has had %s, fewer than %d", linesRange(lower, upper), p.MinLines),
			"Insufficient systemic lines").WithDisplayName(name)
	default:
		return verdict.Simple(verdict.OutcomeUndetermined,
			fmt.Sprintf("Unknown if %s since patient has had %s", name, linesRange(lower, upper)),
			"Undetermined systemic lines").WithDisplayName(name)
	}
}

func linesRange(lower, upper int) string {
	if lower == upper {
		return fmt.Sprintf("%d %s", lower, SYSTEMIC_LINES_ATTRIBUTE)
	}
	return fmt.Sprintf("between %d and %d %s", lower, upper, SYSTEMIC_LINES_ATTRIBUTE)
}
