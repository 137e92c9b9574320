package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgate/domain/core"
	"trialgate/internal/config"
	"trialgate/internal/errors"
	"trialgate/internal/rules"
)

func testConfig() *config.Config {
	return &config.Config{
		Log:        config.LogConfig{Level: "INFO"},
		Server:     config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		Evaluation: config.EvaluationConfig{Parallelism: 2},
	}
}

func TestNewResolvesEnvironment(t *testing.T) {
	now := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

	c, err := New(testConfig(), nil, now)
	require.NoError(t, err)

	assert.Equal(t, core.YearMonth(2024, 6), c.Environment.ReferenceDate)
	assert.Same(t, c.Deriver, c.Environment.Deriver)
	assert.Len(t, c.Environment.InferenceOptions, 2)
	assert.Nil(t, c.DefaultCriteria)

	_, err = c.DefaultEvaluator()
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, nil, time.Now())
	assert.Error(t, err)
}

func TestDefaultCriteria(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: default
criteria:
  - rule: HAS_HAD_AT_MOST_X_SYSTEMIC_LINES
    parameters: [1]
`), 0o600))

	cfg := testConfig()
	cfg.Evaluation.CriteriaFile = path
	c, err := New(cfg, nil, time.Now())
	require.NoError(t, err)
	require.NotNil(t, c.DefaultCriteria)

	e, err := c.DefaultEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestMissingCriteriaFileIsConfigError(t *testing.T) {
	cfg := testConfig()
	cfg.Evaluation.CriteriaFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, nil, time.Now())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestNewEvaluatorReportsMisconfiguration(t *testing.T) {
	c, err := New(testConfig(), nil, time.Now())
	require.NoError(t, err)

	_, err = c.NewEvaluator(rules.CriteriaSet{Name: "bad", Criteria: []rules.Criterion{
		{Rule: string(rules.RuleHasTumorStage), Parameters: []string{"VI"}},
	}})
	require.Error(t, err)
	assert.Equal(t, errors.CodePredicateMisconfigured, errors.GetCode(err))
}

func TestInlineEvaluatorsAreNotRetained(t *testing.T) {
	c, err := New(testConfig(), nil, time.Now())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set := rules.CriteriaSet{Name: fmt.Sprintf("inline-%d", i), Criteria: []rules.Criterion{
				{ID: "lines", Rule: string(rules.RuleHasHadAtMostSystemicLines), Parameters: []string{"2"}},
			}}
			e, err := c.Evaluator(set)
			if assert.NoError(t, err) {
				assert.Equal(t, rules.SourceInline, e.Source())
			}
		}()
	}
	wg.Wait()

	assert.Nil(t, c.defaultEval)
	assert.Nil(t, c.defaultFor)
}

func TestDefaultEvaluatorIsCompiledOnce(t *testing.T) {
	c, err := New(testConfig(), nil, time.Now())
	require.NoError(t, err)
	c.DefaultCriteria = &rules.CriteriaSet{Name: "default", Criteria: []rules.Criterion{
		{ID: "lines", Rule: string(rules.RuleHasHadAtMostSystemicLines), Parameters: []string{"2"}},
	}}

	first, err := c.DefaultEvaluator()
	require.NoError(t, err)
	assert.Equal(t, rules.SourceDefault, first.Source())

	again, err := c.DefaultEvaluator()
	require.NoError(t, err)
	assert.Same(t, first, again)

	c.DefaultCriteria = &rules.CriteriaSet{Name: "replaced", Criteria: []rules.Criterion{
		{ID: "lines", Rule: string(rules.RuleHasHadAtMostSystemicLines), Parameters: []string{"3"}},
	}}
	replaced, err := c.DefaultEvaluator()
	require.NoError(t, err)
	assert.NotSame(t, first, replaced)
}

func TestInlineEvaluatorReportsMisconfiguration(t *testing.T) {
	c, err := New(testConfig(), nil, time.Now())
	require.NoError(t, err)

	bad := rules.CriteriaSet{Name: "bad", Criteria: []rules.Criterion{
		{Rule: string(rules.RuleHasTumorStage), Parameters: []string{"VI"}},
	}}
	for range 2 {
		_, err := c.Evaluator(bad)
		assert.Equal(t, errors.CodePredicateMisconfigured, errors.GetCode(err))
	}
}
