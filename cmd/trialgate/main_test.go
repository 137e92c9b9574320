package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("TRIALGATE_REFERENCE_DATE", "2024-06")
	t.Setenv("TRIALGATE_CRITERIA_FILE", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fixtures(t *testing.T) (patientPath, criteriaPath, treatmentsPath string) {
	dir := t.TempDir()
	patientPath = writeFile(t, dir, "patient.json", `{
  "patient_id": "P-3",
  "tumor": {"stage": "IV"},
  "treatments": [{"name": "pemetrexed", "categories": ["CHEMOTHERAPY"], "is_systemic": true, "start": "2023-01"}]
}`)
	criteriaPath = writeFile(t, dir, "criteria.yaml", `
name: cli cohort
criteria:
  - id: stage
    rule: HAS_TUMOR_STAGE_X
    parameters: [IV]
  - id: lines
    rule: HAS_HAD_AT_LEAST_X_SYSTEMIC_LINES
    parameters: [2]
`)
	treatmentsPath = writeFile(t, dir, "treatments.csv", "name,categories,start\nA,chemotherapy,2022-05\nB,radiotherapy,2022-02\nA,chemotherapy,2021-10\n")
	return patientPath, criteriaPath, treatmentsPath
}

func TestEvaluateCommand(t *testing.T) {
	patientPath, criteriaPath, treatmentsPath := fixtures(t)

	out, err := run(t, "evaluate", "--patient", patientPath, "--criteria", criteriaPath)
	require.NoError(t, err)

	var report struct {
		PatientID string `json:"patient_id"`
		Overall   struct {
			Outcome string `json:"outcome"`
		} `json:"overall"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "P-3", report.PatientID)
	assert.Equal(t, "FAIL", report.Overall.Outcome)

	out, err = run(t, "evaluate", "--patient", patientPath, "--criteria", criteriaPath, "--treatments", treatmentsPath, "--text")
	require.NoError(t, err)
	assert.Contains(t, out, "Overall")
	assert.Contains(t, out, "PASS")
}

func TestEvaluateCommandErrors(t *testing.T) {
	patientPath, _, _ := fixtures(t)

	_, err := run(t, "evaluate", "--patient", patientPath)
	assert.ErrorContains(t, err, "default criteria not found")

	_, err = run(t, "evaluate")
	assert.Error(t, err)
}

func TestLinesCommand(t *testing.T) {
	_, _, treatmentsPath := fixtures(t)

	out, err := run(t, "lines", "--treatments", treatmentsPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "min_lines": 2,
  "max_lines": 2,
  "last_systemic": {"name": "A", "categories": ["CHEMOTHERAPY"], "is_systemic": true, "start": "2022-05", "stop": null}
}`, out)

	_, err = run(t, "lines")
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "HAS_TUMOR_STAGE_X")
}
