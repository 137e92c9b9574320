package ports

import (
	"trialgate/domain/patient"
	"trialgate/domain/verdict"
)

// Predicate is the contract every eligibility rule implementation satisfies.
// Evaluate must not mutate the record and must not perform I/O.
type Predicate interface {
	Evaluate(record patient.Record) verdict.Verdict
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(record patient.Record) verdict.Verdict

func (f PredicateFunc) Evaluate(record patient.Record) verdict.Verdict {
	return f(record)
}

// CheckedPredicate is a predicate that can detect its own misconfiguration,
// typically a combinator wrapping other predicates. Errors are configuration
// errors, never patient-data outcomes.
type CheckedPredicate interface {
	EvaluateChecked(record patient.Record) (verdict.Verdict, error)
}

// Checked lifts a plain Predicate into a CheckedPredicate that never fails.
func Checked(p Predicate) CheckedPredicate {
	return checked{p}
}

type checked struct{ Predicate }

func (c checked) EvaluateChecked(record patient.Record) (verdict.Verdict, error) {
	return c.Evaluate(record), nil
}
