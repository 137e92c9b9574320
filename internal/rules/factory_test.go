package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgate/domain/core"
	"trialgate/internal/inference"
)

func TestBuild(t *testing.T) {
	deriver, err := inference.NewStageDeriver(nil)
	require.NoError(t, err)
	env := Environment{ReferenceDate: core.YearMonth(2024, 6), Deriver: deriver}

	tests := []struct {
		name         string
		rule         Rule
		params       []string
		env          Environment
		expectError  bool
		expectedType string
	}{
		{"Stage_With_Inference", RuleHasTumorStage, []string{"III", "IV"}, env, false, "*inference.DerivedStagePredicate"},
		{"Stage_Without_Inference", RuleHasTumorStage, []string{"iv"}, Environment{}, false, "ports.checked"},
		{"Stage_Invalid", RuleHasTumorStage, []string{"V"}, env, true, ""},
		{"Stage_Missing", RuleHasTumorStage, nil, env, true, ""},
		{"At_Most_Lines", RuleHasHadAtMostSystemicLines, []string{"2"}, env, false, "ports.checked"},
		{"At_Least_Lines_Negative", RuleHasHadAtLeastSystemicLines, []string{"-1"}, env, true, ""},
		{"At_Least_Lines_Too_Many", RuleHasHadAtLeastSystemicLines, []string{"1", "2"}, env, true, ""},
		{"Recent", RuleHasHadSystemicTreatmentWithin, []string{"6"}, env, false, "ports.checked"},
		{"Recent_Without_Reference_Month", RuleHasHadSystemicTreatmentWithin, []string{"6"}, Environment{ReferenceDate: core.YearOnly(2024)}, true, ""},
		{"Category", RuleHasHadTreatmentCategory, []string{"targeted therapy"}, env, false, "ports.checked"},
		{"Category_Unknown", RuleHasHadTreatmentCategory, []string{"magic"}, env, true, ""},
		{"Unknown_Rule", Rule("IS_ELIGIBLE"), nil, env, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Build(tt.rule, tt.params, tt.env)

			if tt.expectError {
				require.Error(t, err)
				assert.True(t, core.IsConfigurationError(err), "rule errors are configuration errors: %v", err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, tt.expectedType, typeName(p))
		})
	}
}

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("  has_had_at_most_x_systemic_lines ")
	require.NoError(t, err)
	assert.Equal(t, RuleHasHadAtMostSystemicLines, rule)

	_, err = ParseRule("nope")
	assert.ErrorIs(t, err, core.ErrUnknownRule)
}

func TestRuleConfigsCoverEveryRule(t *testing.T) {
	configs := GetRuleConfigs()
	listed := make([]Rule, 0, len(configs))
	for _, c := range configs {
		assert.NotEmpty(t, c.Description)
		listed = append(listed, c.Rule)
	}
	assert.Equal(t, Rules(), listed)
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
