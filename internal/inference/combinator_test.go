package inference

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trialgate/domain/core"
	"trialgate/domain/patient"
	"trialgate/domain/verdict"
	"trialgate/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stageTable answers with a fixed outcome per stage.
type stageTable struct {
	outcomes    map[patient.TumorStage]verdict.Outcome
	displayName string
	calls       atomic.Int32
}

func (s *stageTable) Evaluate(record patient.Record) verdict.Verdict {
	s.calls.Add(1)
	if record.Tumor.Stage == nil {
		return verdict.Simple(verdict.OutcomeUndetermined, "Tumor stage unknown", "Stage unknown").
			WithDisplayName(s.displayName)
	}
	stage := *record.Tumor.Stage
	o := s.outcomes[stage]
	return verdict.Simple(o, "Stage "+stage.String()+" is "+o.String(), o.String()).
		WithDisplayName(s.displayName)
}

func newCombinator() *Combinator[patient.TumorStage] {
	return NewCombinator[patient.TumorStage](TumorStageAttribute, WithParallelism(2))
}

func evaluateStages(t *testing.T, table *stageTable, stages ...patient.TumorStage) verdict.Verdict {
	t.Helper()
	v, err := newCombinator().Evaluate(table, patient.Record{PatientID: "P-1"}, stages, patient.Record.WithTumorStage)
	require.NoError(t, err)
	return v
}

func TestSingleCandidateForwardsOutcomeWithImpliedPreamble(t *testing.T) {
	table := &stageTable{
		outcomes:    map[patient.TumorStage]verdict.Outcome{patient.StageIII: verdict.OutcomePass},
		displayName: "tumor stage III or IV",
	}

	v := evaluateStages(t, table, patient.StageIII)

	assert.Equal(t, verdict.OutcomePass, v.Outcome())
	assert.Equal(t, "tumor stage III or IV", v.DisplayName())
	assert.Equal(t, []string{"Tumor stage details are missing but inference implies tumor stage III: Stage III is PASS"}, v.Messages().Specific)
	assert.Equal(t, []string{"Implied tumor stage III: PASS"}, v.Messages().General)
}

func TestDuplicateCandidatesCollapse(t *testing.T) {
	table := &stageTable{
		outcomes:    map[patient.TumorStage]verdict.Outcome{patient.StageII: verdict.OutcomeFail},
		displayName: "stage rule",
	}

	v := evaluateStages(t, table, patient.StageII, patient.StageII)

	assert.Equal(t, verdict.OutcomeFail, v.Outcome())
	assert.Equal(t, int32(1), table.calls.Load(), "duplicates collapse to one hypothesis")
}

func TestPassAndFailFoldToUndetermined(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageIII: verdict.OutcomeFail,
			patient.StageIV:  verdict.OutcomePass,
		},
		displayName: "tumor stage IV",
	}

	v := evaluateStages(t, table, patient.StageIV, patient.StageIII)

	assert.Equal(t, verdict.OutcomeUndetermined, v.Outcome())
	assert.Equal(t,
		[]string{"Unknown if tumor stage IV since tumor stage has been implied to be III or IV"},
		v.Messages().Specific)
	assert.Equal(t, []string{"Unknown if tumor stage IV"}, v.Messages().General)
	assert.Equal(t, "tumor stage IV", v.DisplayName())
	for _, o := range []verdict.Outcome{verdict.OutcomePass, verdict.OutcomeFail, verdict.OutcomeWarn} {
		assert.True(t, v.Bucket(o).IsEmpty(), "no text may be filed under %s", o)
	}
}

func TestFoldRules(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []verdict.Outcome
		want     verdict.Outcome
	}{
		{"all pass", []verdict.Outcome{verdict.OutcomePass, verdict.OutcomePass}, verdict.OutcomePass},
		{"all fail", []verdict.Outcome{verdict.OutcomeFail, verdict.OutcomeFail}, verdict.OutcomeFail},
		{"pass and fail", []verdict.Outcome{verdict.OutcomePass, verdict.OutcomeFail}, verdict.OutcomeUndetermined},
		{"pass beats warn", []verdict.Outcome{verdict.OutcomePass, verdict.OutcomeWarn}, verdict.OutcomeUndetermined},
		{"warn beats undetermined", []verdict.Outcome{verdict.OutcomeWarn, verdict.OutcomeUndetermined}, verdict.OutcomeWarn},
		{"warn beats fail", []verdict.Outcome{verdict.OutcomeFail, verdict.OutcomeWarn}, verdict.OutcomeWarn},
		{"all warn", []verdict.Outcome{verdict.OutcomeWarn, verdict.OutcomeWarn}, verdict.OutcomeWarn},
		{"undetermined and fail", []verdict.Outcome{verdict.OutcomeUndetermined, verdict.OutcomeFail}, verdict.OutcomeFail},
		{"all undetermined", []verdict.Outcome{verdict.OutcomeUndetermined, verdict.OutcomeUndetermined}, verdict.OutcomeFail},
		{"three way with pass", []verdict.Outcome{verdict.OutcomeFail, verdict.OutcomeWarn, verdict.OutcomePass}, verdict.OutcomeUndetermined},
	}

	stages := []patient.TumorStage{patient.StageI, patient.StageII, patient.StageIII}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(map[patient.TumorStage]verdict.Verdict)
			for i, o := range tt.outcomes {
				results[stages[i]] = verdict.Simple(o, "text "+o.String(), o.String()).WithDisplayName("stage rule")
			}

			v, err := newCombinator().Fold(results)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Outcome())
			for _, o := range verdict.OrderedOutcomes() {
				if o != tt.want {
					assert.True(t, v.Bucket(o).IsEmpty(), "bucket %s must be empty", o)
				}
			}
		})
	}
}

func TestUnanimousPassMessages(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageIII: verdict.OutcomePass,
			patient.StageIV:  verdict.OutcomePass,
		},
		displayName: "tumor stage III or IV",
	}

	v := evaluateStages(t, table, patient.StageIV, patient.StageIII)

	assert.Equal(t, verdict.OutcomePass, v.Outcome())
	assert.Equal(t,
		[]string{"Stage III is PASS. Stage IV is PASS. Tumor stage has been implied to be III or IV"},
		v.Messages().Specific)
	assert.Equal(t, []string{"PASS. Tumor stage has been implied to be III or IV"}, v.Messages().General)
}

func TestWarnMessagesOnlyEnumerateWarningCandidates(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageI:  verdict.OutcomeFail,
			patient.StageII: verdict.OutcomeWarn,
		},
		displayName: "stage rule",
	}

	v := evaluateStages(t, table, patient.StageI, patient.StageII)

	assert.Equal(t, verdict.OutcomeWarn, v.Outcome())
	assert.Equal(t, []string{"Stage II is WARN. Tumor stage has been implied to be II"}, v.Messages().Specific)
}

func TestFailMessagesOnlyEnumerateFailingCandidates(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageI:   verdict.OutcomeUndetermined,
			patient.StageII:  verdict.OutcomeFail,
			patient.StageIII: verdict.OutcomeFail,
		},
		displayName: "stage rule",
	}

	v := evaluateStages(t, table, patient.StageIII, patient.StageII, patient.StageI)

	assert.Equal(t, verdict.OutcomeFail, v.Outcome())
	assert.Equal(t,
		[]string{"Stage II is FAIL. Stage III is FAIL. Tumor stage has been implied to be II or III"},
		v.Messages().Specific)
	assert.Equal(t, []string{"FAIL. Tumor stage has been implied to be II or III"}, v.Messages().General)
}

func TestAllUndeterminedFailsWithEveryCandidate(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageI:  verdict.OutcomeUndetermined,
			patient.StageII: verdict.OutcomeUndetermined,
		},
		displayName: "stage rule",
	}

	v := evaluateStages(t, table, patient.StageII, patient.StageI)

	assert.Equal(t, verdict.OutcomeFail, v.Outcome())
	assert.Equal(t,
		[]string{"Stage I is UNDETERMINED. Stage II is UNDETERMINED. Tumor stage has been implied to be I or II"},
		v.Messages().Specific)
	assert.True(t, v.Bucket(verdict.OutcomeUndetermined).IsEmpty())
}

func TestFoldNormalisesPredicateSentences(t *testing.T) {
	results := map[patient.TumorStage]verdict.Verdict{
		patient.StageI:  verdict.Simple(verdict.OutcomeFail, "Too early. ", "Early stage.").WithDisplayName("stage rule"),
		patient.StageII: verdict.Simple(verdict.OutcomeFail, " Too early", "Early stage").WithDisplayName("stage rule"),
	}

	v, err := newCombinator().Fold(results)

	require.NoError(t, err)
	assert.Equal(t, []string{"Too early. Tumor stage has been implied to be I or II"}, v.Messages().Specific)
	assert.Equal(t, []string{"Early stage. Tumor stage has been implied to be I or II"}, v.Messages().General)
}

func TestMissingDisplayNameIsConfigurationError(t *testing.T) {
	table := &stageTable{
		outcomes: map[patient.TumorStage]verdict.Outcome{
			patient.StageIII: verdict.OutcomePass,
			patient.StageIV:  verdict.OutcomeFail,
		},
	}

	v, err := newCombinator().Evaluate(table, patient.Record{}, []patient.TumorStage{patient.StageIII, patient.StageIV}, patient.Record.WithTumorStage)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingDisplayName)
	assert.True(t, core.IsConfigurationError(err))
	assert.Equal(t, verdict.OutcomeUnset, v.Outcome())

	_, err = newCombinator().Evaluate(table, patient.Record{}, []patient.TumorStage{patient.StageIII}, patient.Record.WithTumorStage)
	assert.ErrorIs(t, err, core.ErrMissingDisplayName)
}

func TestSkippedOutcomesCannotBeFolded(t *testing.T) {
	skipped := ports.PredicateFunc(func(patient.Record) verdict.Verdict {
		return verdict.NotEvaluated(verdict.Messages{}).WithDisplayName("skipped")
	})

	_, err := newCombinator().Evaluate(skipped, patient.Record{}, []patient.TumorStage{patient.StageIII, patient.StageIV}, patient.Record.WithTumorStage)
	assert.ErrorIs(t, err, core.ErrUnorderedOutcome)

	_, err = newCombinator().Evaluate(skipped, patient.Record{}, []patient.TumorStage{patient.StageIII}, patient.Record.WithTumorStage)
	assert.ErrorIs(t, err, core.ErrUnorderedOutcome)
}

func TestEmptyCandidatesAreRejected(t *testing.T) {
	table := &stageTable{}

	v, err := newCombinator().Evaluate(table, patient.Record{}, nil, patient.Record.WithTumorStage)
	assert.ErrorIs(t, err, core.ErrNoCandidates)
	assert.Equal(t, int32(0), table.calls.Load())
	assert.False(t, v.Outcome().IsOrdered(), "a failed fold must not read as a pass")

	_, err = newCombinator().Fold(nil)
	assert.ErrorIs(t, err, core.ErrNoCandidates)
}

func TestEvaluateDoesNotMutateRecord(t *testing.T) {
	table := &stageTable{
		outcomes:    map[patient.TumorStage]verdict.Outcome{patient.StageI: verdict.OutcomePass, patient.StageII: verdict.OutcomePass},
		displayName: "stage rule",
	}
	record := patient.Record{PatientID: "P-9"}

	_, err := newCombinator().Evaluate(table, record, []patient.TumorStage{patient.StageI, patient.StageII}, patient.Record.WithTumorStage)
	require.NoError(t, err)
	assert.Nil(t, record.Tumor.Stage)
}

func TestFoldIsDeterministicUnderParallelEvaluation(t *testing.T) {
	outcomes := map[patient.TumorStage]verdict.Outcome{}
	all := []patient.TumorStage{
		patient.StageI, patient.StageII, patient.StageIIA, patient.StageIIB,
		patient.StageIII, patient.StageIIIA, patient.StageIIIB, patient.StageIIIC, patient.StageIV,
	}
	for i, s := range all {
		outcomes[s] = verdict.OrderedOutcomes()[1+i%3]
	}
	table := &stageTable{outcomes: outcomes, displayName: "stage rule"}

	first := evaluateStages(t, table, all...)
	for i := 0; i < 20; i++ {
		c := NewCombinator[patient.TumorStage](TumorStageAttribute, WithParallelism(1+i%5))
		again, err := c.Evaluate(table, patient.Record{}, all, patient.Record.WithTumorStage)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
