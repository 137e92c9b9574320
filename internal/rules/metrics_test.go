package rules

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateRecordsMetrics(t *testing.T) {
	e := newCohortEvaluator(t)
	overall := evaluationsTotal.WithLabelValues(SourceInline, "FAIL")
	io := criterionOutcomes.WithLabelValues(string(RuleHasHadTreatmentCategory), "FAIL")
	skipped := criterionOutcomes.WithLabelValues(string(RuleHasHadSystemicTreatmentWithin), "NOT_EVALUATED")

	beforeOverall := testutil.ToFloat64(overall)
	beforeIO := testutil.ToFloat64(io)
	beforeSkipped := testutil.ToFloat64(skipped)

	_, err := e.Evaluate(context.Background(), cohortPatient())
	require.NoError(t, err)

	assert.Equal(t, beforeOverall+1, testutil.ToFloat64(overall))
	assert.Equal(t, beforeIO+1, testutil.ToFloat64(io))
	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(skipped))
	assert.Positive(t, testutil.CollectAndCount(evaluationLatency))
}

func TestCriteriaNamesDoNotCreateSeries(t *testing.T) {
	evaluate := func(name string) {
		set, err := ParseCriteria([]byte(cohortYAML))
		require.NoError(t, err)
		set.Name = name
		e, err := NewEvaluator(set, Environment{})
		require.NoError(t, err)
		_, err = e.Evaluate(context.Background(), cohortPatient())
		require.NoError(t, err)
	}

	evaluate("warm-up")
	before := testutil.CollectAndCount(evaluationsTotal)
	for i := range 50 {
		evaluate(fmt.Sprintf("client-chosen-%d", i))
	}
	assert.Equal(t, before, testutil.CollectAndCount(evaluationsTotal))
}

func TestWithSourceIsClosed(t *testing.T) {
	set, err := ParseCriteria([]byte(cohortYAML))
	require.NoError(t, err)

	tests := []struct {
		source string
		want   string
	}{
		{SourceDefault, SourceDefault},
		{SourceInline, SourceInline},
		{"anything else", SourceInline},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, err := NewEvaluator(set, Environment{}, WithSource(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Source())
		})
	}
}
