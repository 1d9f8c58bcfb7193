package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "onthesis/internal/errors"
)

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, &out, &bytes.Buffer{})
	return out.Bytes(), err
}

func TestCLI_ImportAnalyzeHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DURABLE_STORE", "none")
	t.Setenv("LOCAL_STORAGE_PATH", filepath.Join(dir, "store"))
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_FILE", "")
	t.Setenv("LOG_LEVEL", "ERROR")

	file := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(file, []byte("name,score\nA,1\nB,2\nC,4\nD,5\n"), 0o644))

	out, err := run(t, "import", file, "--project", "cli")
	require.NoError(t, err)
	var imported map[string]any
	require.NoError(t, json.Unmarshal(out, &imported))
	assert.Equal(t, 4.0, imported["rows"])

	out, err = run(t, "analyze", "descriptive-analysis", "--project", "cli", "--params", `{"variables":["score"]}`)
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Contains(t, result, "score")
	assert.Contains(t, result, "narrative_summary")

	out, err = run(t, "history", "list", "--project", "cli")
	require.NoError(t, err)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(out, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "descriptive-analysis", history[0]["type"])

	_, err = run(t, "set-cell", "0", "score", "10", "--project", "cli")
	require.NoError(t, err)
	out, err = run(t, "export", "--project", "cli")
	require.NoError(t, err)
	assert.Equal(t, "name,score\nA,10\nB,2\nC,4\nD,5\n", string(out))
}

func TestCLI_MetricsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DURABLE_STORE", "none")
	t.Setenv("LOCAL_STORAGE_PATH", filepath.Join(dir, "store"))
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_FILE", "")
	t.Setenv("LOG_LEVEL", "ERROR")

	file := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(file, []byte("name,score\nA,1\nB,2\nC,4\n"), 0o644))
	_, err := run(t, "import", file)
	require.NoError(t, err)

	promFile := filepath.Join(dir, "onthesis.prom")
	_, err = run(t, "analyze", "descriptive-analysis", "--params", `{"variables":["score"]}`, "--metrics-file", promFile)
	require.NoError(t, err)

	text, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), `onthesis_analyses_total{status="ok",type="descriptive-analysis"} 1`)
	assert.Contains(t, string(text), `onthesis_dataset_loads_total{outcome="ok",tier="local"}`)
	assert.Contains(t, string(text), "onthesis_analysis_duration_seconds_count")

	t.Setenv("METRICS_FILE", promFile)
	_, err = run(t, "analyze", "factor-analysis")
	require.Error(t, err)

	text, err = os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), `onthesis_analyses_total{status="error",type="unsupported"} 1`)
	assert.NotContains(t, string(text), `type="descriptive-analysis"`)
}

func TestCLI_SearchAndScan(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DURABLE_STORE", "none")
	t.Setenv("LOCAL_STORAGE_PATH", filepath.Join(dir, "store"))
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_FILE", "")
	t.Setenv("LOG_LEVEL", "ERROR")

	file := filepath.Join(dir, "groups.csv")
	require.NoError(t, os.WriteFile(file, []byte("name,group\nAnna,a\nBen,b\nAnna,a\n"), 0o644))
	_, err := run(t, "import", file)
	require.NoError(t, err)

	out, err := run(t, "search", "ann", "--columns", "name")
	require.NoError(t, err)
	var found map[string]any
	require.NoError(t, json.Unmarshal(out, &found))
	assert.Equal(t, "ann", found["query"])
	assert.Equal(t, 2.0, found["count"])

	_, err = run(t, "search", "")
	assert.True(t, apperrors.IsValidation(err))

	out, err = run(t, "scan")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(out, &report))
	assert.NotEmpty(t, report)
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("DURABLE_STORE", "none")
	t.Setenv("LOCAL_STORAGE_PATH", t.TempDir())
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("METRICS_FILE", "")

	_, err := run(t, "analyze", "factor-analysis")
	assert.Equal(t, apperrors.CodeUnsupportedAnalysis, apperrors.GetCode(err))

	_, err = run(t, "analyze", "normality", "--params", "not json")
	assert.True(t, apperrors.IsValidation(err))

	_, err = run(t, "analyze", "normality", "--params", `{"variables":["x"]}`)
	assert.True(t, apperrors.IsNotFound(err))

	t.Setenv("DURABLE_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = run(t, "scan")
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}
