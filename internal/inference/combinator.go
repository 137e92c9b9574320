// Package inference evaluates predicates against hypothetical values of a
// record attribute the patient data does not contain, and folds the
// per-hypothesis verdicts back into one.
package inference

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/internal/logging"
	"trialgate/ports"
)

// Candidate is a substitutable attribute value with a natural order and a
// display form.
type Candidate interface {
	cmp.Ordered
	String() string
}

// Substitute returns a copy of record carrying value for the inferred attribute.
type Substitute[V Candidate] func(record patient.Record, value V) patient.Record

// Option configures a Combinator.
type Option func(*options)

type options struct {
	parallelism int
	logger      *zap.Logger
}

// WithParallelism bounds the number of concurrent hypothesis evaluations.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithLogger sets the logger used for fold diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logging.OrNop(logger) }
}

// Combinator re-evaluates a predicate once per candidate value of a missing
// attribute and folds the results.
type Combinator[V Candidate] struct {
	attribute   string
	parallelism int
	logger      *zap.Logger
}

// NewCombinator creates a combinator for the attribute named attribute, e.g.
// "tumor stage".
func NewCombinator[V Candidate](attribute string, opts ...Option) *Combinator[V] {
	o := options{parallelism: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Combinator[V]{
		attribute:   attribute,
		parallelism: o.parallelism,
		logger:      o.logger,
	}
}

// Evaluate runs predicate against substitute(record, v) for every candidate v
// and folds the verdicts. An empty candidate set is the caller's decision and
// returns core.ErrNoCandidates.
func (c *Combinator[V]) Evaluate(predicate ports.Predicate, record patient.Record, candidates []V, substitute Substitute[V]) (verdict.Verdict, error) {
	values := distinctSorted(candidates)
	if len(values) == 0 {
		return verdict.Verdict{}, core.ErrNoCandidates
	}

	evaluated := make([]verdict.Verdict, len(values))
	var g errgroup.Group
	g.SetLimit(c.parallelism)
	for i, value := range values {
		g.Go(func() error {
			evaluated[i] = predicate.Evaluate(substitute(record, value))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return verdict.Verdict{}, err
	}

	results := make(map[V]verdict.Verdict, len(values))
	for i, value := range values {
		results[value] = evaluated[i]
	}
	return c.Fold(results)
}

// Fold reduces one verdict per candidate value to a single verdict.
//
// A single candidate keeps its outcome and has its messages prefixed to say
// the value was inferred. Several candidates fold asymmetrically: all pass
// gives pass, some pass gives undetermined, otherwise any warn gives warn,
// otherwise fail. Skipped outcomes cannot be folded, and every verdict must
// carry a display name.
func (c *Combinator[V]) Fold(results map[V]verdict.Verdict) (verdict.Verdict, error) {
	if len(results) == 0 {
		return verdict.Verdict{}, core.ErrNoCandidates
	}

	values := sortedKeys(results)
	for _, value := range values {
		v := results[value]
		if o := v.Outcome(); !o.IsOrdered() {
			return verdict.Verdict{}, fmt.Errorf("%s %s: %w", c.attribute, value, core.NewUnorderedOutcomeError(o.String()))
		}
		if v.DisplayName() == "" {
			return verdict.Verdict{}, core.NewMissingDisplayNameError(fmt.Sprintf("%s %s", c.attribute, value))
		}
	}

	if len(values) == 1 {
		return c.foldSingle(values[0], results[values[0]]), nil
	}
	return c.foldMany(values, results)
}

func (c *Combinator[V]) foldSingle(value V, v verdict.Verdict) verdict.Verdict {
	msgs := v.Messages()
	specific := make([]string, 0, len(msgs.Specific))
	for _, m := range msgs.Specific {
		specific = append(specific, fmt.Sprintf("%s details are missing but inference implies %s %s: %s",
			capitalize(c.attribute), c.attribute, value, m))
	}
	general := make([]string, 0, len(msgs.General))
	for _, m := range msgs.General {
		general = append(general, fmt.Sprintf("Implied %s %s: %s", c.attribute, value, m))
	}

	c.logger.Debug("Folded single hypothesis",
		zap.String("attribute", c.attribute),
		zap.String("value", value.String()),
		zap.Stringer("outcome", v.Outcome()))

	return verdict.New(v.Outcome(), verdict.Messages{Specific: specific, General: general}).
		WithDisplayName(v.DisplayName())
}

func (c *Combinator[V]) foldMany(values []V, results map[V]verdict.Verdict) (verdict.Verdict, error) {
	byOutcome := make(map[verdict.Outcome][]V)
	for _, value := range values {
		o := results[value].Outcome()
		byOutcome[o] = append(byOutcome[o], value)
	}
	displayName := results[values[0]].DisplayName()

	var outcome verdict.Outcome
	var contributors []V
	switch {
	case len(byOutcome[verdict.OutcomePass]) == len(values):
		outcome, contributors = verdict.OutcomePass, values
	case len(byOutcome[verdict.OutcomePass]) > 0:
		outcome, contributors = verdict.OutcomeUndetermined, byOutcome[verdict.OutcomePass]
	case len(byOutcome[verdict.OutcomeWarn]) > 0:
		outcome, contributors = verdict.OutcomeWarn, byOutcome[verdict.OutcomeWarn]
	case len(byOutcome[verdict.OutcomeFail]) > 0:
		outcome, contributors = verdict.OutcomeFail, byOutcome[verdict.OutcomeFail]
	default:
		// Every candidate is undetermined.
		outcome, contributors = verdict.OutcomeFail, values
	}

	var folded verdict.Verdict
	if outcome == verdict.OutcomeUndetermined {
		implied := c.implied(values)
		folded = verdict.NewAccumulator().
			AddSpecific(outcome, fmt.Sprintf("Unknown if %s since %s", displayName, lowerFirst(implied))).
			AddGeneral(outcome, fmt.Sprintf("Unknown if %s", displayName)).
			Build(outcome, displayName)
	} else {
		// Contributors sit in different buckets only when every candidate
		// was undetermined and the fold still fails.
		acc := verdict.NewAccumulator()
		for _, value := range contributors {
			acc.Add(results[value])
		}
		implied := c.implied(contributors)
		var gathered verdict.Messages
		for _, o := range verdict.OrderedOutcomes() {
			b := acc.Peek(o)
			gathered.Specific = append(gathered.Specific, b.Specific...)
			gathered.General = append(gathered.General, b.General...)
		}
		folded = verdict.NewAccumulator().
			AddSpecific(outcome, joinWithImplied(gathered.Specific, implied)).
			AddGeneral(outcome, joinWithImplied(gathered.General, implied)).
			Build(outcome, displayName)
	}

	c.logger.Debug("Folded hypotheses",
		zap.String("attribute", c.attribute),
		zap.String("display_name", displayName),
		zap.Int("candidates", len(values)),
		zap.Int("passing", len(byOutcome[verdict.OutcomePass])),
		zap.Stringer("outcome", outcome))

	return folded, nil
}

// implied renders "<Attribute> has been implied to be III or IV".
func (c *Combinator[V]) implied(values []V) string {
	names := make([]string, 0, len(values))
	for _, value := range values {
		names = append(names, value.String())
	}
	return fmt.Sprintf("%s has been implied to be %s", capitalize(c.attribute), strings.Join(names, " or "))
}

func joinWithImplied(texts []string, implied string) string {
	unique := dedupe(texts)
	if len(unique) == 0 {
		return implied
	}
	return strings.Join(unique, ". ") + ". " + implied
}

func dedupe(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSuffix(strings.TrimSpace(t), ".")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func distinctSorted[V Candidate](values []V) []V {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedKeys[V Candidate](m map[V]verdict.Verdict) []V {
	keys := make([]V, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
