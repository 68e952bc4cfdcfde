package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCSV = `subject_name,total_classes,attended_classes
Maths-L,10,8
Physics-P,10,5
`

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAnalyzeCSVOutput(t *testing.T) {
	input := writeInput(t, "attendance.csv", sampleCSV)
	var out bytes.Buffer

	err := runAnalyze(analyzeFlags{input: input, thresholds: "0.75,0.6", output: "csv"}, &out, zap.NewNop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "subject,total,attended,percentage,threshold,needed,can_miss", lines[0])
	assert.Equal(t, "Maths,10,8,80.00,60,0,3", lines[1])
	assert.Equal(t, "Maths,10,8,80.00,75,0,0", lines[2])
	assert.Equal(t, "Physics,10,5,50.00,60,3,0", lines[3])
	assert.Equal(t, "Physics,10,5,50.00,75,11,0", lines[4])
	assert.Equal(t, "OVERALL,20,13,65.00,60,0,1", lines[5])
	assert.Equal(t, "OVERALL,20,13,65.00,75,9,0", lines[6])
}

func TestAnalyzeJSONInput(t *testing.T) {
	input := writeInput(t, "attendance.json", `[{"subject_name":"Chem","total_classes":"4","attended_classes":4}]`)
	var out bytes.Buffer

	err := runAnalyze(analyzeFlags{input: input, thresholds: "0.75", output: "json"}, &out, zap.NewNop())
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, "success", payload["status"])
	overall := payload["overall"].(map[string]interface{})
	assert.Equal(t, "100.00", overall["percentage"])
	assert.EqualValues(t, 1, overall["can_miss_75"])
}

func TestAnalyzeInvalidRowFails(t *testing.T) {
	input := writeInput(t, "attendance.csv", "subject_name,total_classes,attended_classes\nMaths,ten,8\n")
	var out bytes.Buffer

	err := runAnalyze(analyzeFlags{input: input, thresholds: "0.75", output: "json"}, &out, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attendance data in row 1")
	assert.Contains(t, out.String(), `"status": "error"`)
}

func TestAnalyzeRejectsBadFlags(t *testing.T) {
	input := writeInput(t, "attendance.csv", sampleCSV)

	err := runAnalyze(analyzeFlags{input: input, thresholds: "1.5", output: "json"}, &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)

	err = runAnalyze(analyzeFlags{input: input, thresholds: "0.75", output: "xml"}, &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)

	err = runAnalyze(analyzeFlags{input: writeInput(t, "rows.txt", sampleCSV), thresholds: "0.75", output: "json"}, &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRootCommandRequiresInput(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze"})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestRootCommandAnalyze(t *testing.T) {
	input := writeInput(t, "attendance.csv", sampleCSV)
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"analyze", "--input", input, "--output", "csv", "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Physics,10,5,50.00,60,3,0")
}
