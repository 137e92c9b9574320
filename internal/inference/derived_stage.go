package inference

import (
	"fmt"

	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/ports"
)

// TumorStageAttribute names the inferred attribute in messages.
const TumorStageAttribute = "tumor stage"

// DerivedStagePredicate evaluates a stage-dependent predicate on records that
// may lack a tumor stage, trying every stage the lesion data implies.
type DerivedStagePredicate struct {
	inner      ports.Predicate
	deriver    *StageDeriver
	combinator *Combinator[patient.TumorStage]
}

// NewDerivedStagePredicate wraps inner. Options configure the underlying combinator.
func NewDerivedStagePredicate(inner ports.Predicate, deriver *StageDeriver, opts ...Option) *DerivedStagePredicate {
	return &DerivedStagePredicate{
		inner:      inner,
		deriver:    deriver,
		combinator: NewCombinator[patient.TumorStage](TumorStageAttribute, opts...),
	}
}

// EvaluateChecked evaluates the record as is when the stage is known or
// nothing can be derived, and folds the derived hypotheses otherwise.
func (p *DerivedStagePredicate) EvaluateChecked(record patient.Record) (verdict.Verdict, error) {
	candidates := p.deriver.Derive(record.Tumor)
	if len(candidates) == 0 {
		return p.inner.Evaluate(record), nil
	}

	v, err := p.combinator.Evaluate(p.inner, record, candidates, patient.Record.WithTumorStage)
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("derive %s for patient %s: %w", TumorStageAttribute, record.PatientID, err)
	}
	return v, nil
}
