// Package rules turns criteria files into predicates and evaluates them
// against patient records.
package rules

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/internal/logging"
	"trialgate/ports"
)

// CriterionResult is the verdict of one criterion.
type CriterionResult struct {
	ID         string          `json:"id"`
	Rule       Rule            `json:"rule"`
	Parameters []string        `json:"parameters,omitempty"`
	Verdict    verdict.Verdict `json:"verdict"`
}

// Report is the outcome of evaluating a criteria set against one patient.
type Report struct {
	EvaluationID core.EvaluationID `json:"evaluation_id"`
	PatientID    core.PatientID    `json:"patient_id"`
	Criteria     string            `json:"criteria"`
	Results      []CriterionResult `json:"results"`
	// Overall is the worst evaluated verdict, or NOT_EVALUATED when every
	// criterion was skipped.
	Overall verdict.Verdict `json:"overall"`
}

// Criteria sources label evaluation metrics. The set is closed so request
// payloads cannot mint new series.
const (
	SourceDefault = "default"
	SourceInline  = "inline"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithParallelism bounds concurrent criterion evaluation.
func WithParallelism(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithSource records where the criteria came from. Unknown sources count as
// inline.
func WithSource(source string) Option {
	return func(e *Evaluator) {
		if source == SourceDefault {
			e.source = SourceDefault
		} else {
			e.source = SourceInline
		}
	}
}

// WithLogger sets the evaluation logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = logging.OrNop(logger) }
}

type compiledCriterion struct {
	criterion Criterion
	rule      Rule
	predicate ports.CheckedPredicate
}

// Evaluator evaluates a compiled criteria set.
type Evaluator struct {
	name        string
	source      string
	criteria    []compiledCriterion
	parallelism int
	logger      *zap.Logger
}

// NewEvaluator builds every predicate of set up front so misconfigured
// criteria fail before any patient is evaluated.
func NewEvaluator(set CriteriaSet, env Environment, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{name: set.Name, source: SourceInline, parallelism: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	if set.ReferenceDate != "" {
		ref, err := core.ParsePartialDate(set.ReferenceDate)
		if err != nil {
			return nil, err
		}
		env.ReferenceDate = ref
	}

	for _, c := range set.Criteria {
		rule, err := ParseRule(c.Rule)
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %w", c.ID, err)
		}
		var p ports.CheckedPredicate
		if !c.Skip {
			p, err = Build(rule, c.Parameters, env)
			if err != nil {
				return nil, fmt.Errorf("criterion %s: %w", c.ID, err)
			}
		}
		e.criteria = append(e.criteria, compiledCriterion{criterion: c, rule: rule, predicate: p})
	}

	e.logger.Debug("Compiled criteria",
		zap.String("criteria", e.name),
		zap.Int("count", len(e.criteria)))
	return e, nil
}

// Evaluate runs every criterion against record. Configuration errors raised
// during evaluation abort the report.
func (e *Evaluator) Evaluate(ctx context.Context, record patient.Record) (*Report, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("patient %s: %w", record.PatientID, err)
	}
	start := time.Now()

	results := make([]CriterionResult, len(e.criteria))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, c := range e.criteria {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := e.evaluateOne(c, record)
			if err != nil {
				return fmt.Errorf("criterion %s: %w", c.criterion.ID, err)
			}
			results[i] = CriterionResult{
				ID:         c.criterion.ID,
				Rule:       c.rule,
				Parameters: c.criterion.Parameters,
				Verdict:    v,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overall, err := overallVerdict(results)
	if err != nil {
		return nil, err
	}

	report := &Report{
		EvaluationID: core.NewEvaluationID(),
		PatientID:    record.PatientID,
		Criteria:     e.name,
		Results:      results,
		Overall:      overall,
	}
	recordEvaluation(e.source, report, time.Since(start))
	e.logger.Info("Evaluated criteria",
		zap.String("evaluation_id", report.EvaluationID.String()),
		zap.String("patient_id", record.PatientID.String()),
		zap.String("criteria", e.name),
		zap.Stringer("overall", overall.Outcome()))
	return report, nil
}

// Source reports the metrics label of the evaluator's criteria.
func (e *Evaluator) Source() string { return e.source }

func (e *Evaluator) evaluateOne(c compiledCriterion, record patient.Record) (verdict.Verdict, error) {
	if c.predicate == nil {
		return verdict.NotEvaluated(verdict.Messages{
			General: []string{fmt.Sprintf("%s not evaluated", c.rule)},
		}).WithDisplayName(string(c.rule)), nil
	}
	return c.predicate.EvaluateChecked(record)
}

func overallVerdict(results []CriterionResult) (verdict.Verdict, error) {
	evaluated := make([]verdict.Verdict, 0, len(results))
	for _, r := range results {
		if r.Verdict.Outcome().IsOrdered() {
			evaluated = append(evaluated, r.Verdict)
		}
	}
	if len(evaluated) == 0 {
		return verdict.NotEvaluated(verdict.Messages{General: []string{"No criteria evaluated"}}), nil
	}
	return verdict.Worst(evaluated...)
}
