package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onthesis/domain/core"
	"onthesis/domain/dataset"
	"onthesis/internal"
	storage "onthesis/internal/dataset"
	apperrors "onthesis/internal/errors"
	"onthesis/internal/metrics"
	"onthesis/internal/narrative"
	"onthesis/internal/stats"
)

const scoresCSV = "Exam scores\n" +
	"student,group,pre,post\n" +
	"s1,A,10,12\n" +
	"s2,A,11,14\n" +
	"s3,A,12,13\n" +
	"s4,B,13,17\n" +
	"s5,B,14,18\n" +
	"s6,B,15,16\n" +
	"s6,B,15,16\n"

type fixture struct {
	store     *storage.HybridStore
	metrics   *metrics.Metrics
	analysis  *AnalysisService
	workspace *WorkspaceService
}

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	local, err := storage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	store, err := storage.NewHybridStore(nil, local,
		storage.WithLogger(logger),
		storage.WithMetrics(m),
		storage.WithDatasetOptions(dataset.WithClock(tick())))
	require.NoError(t, err)
	return &fixture{
		store:     store,
		metrics:   m,
		analysis:  NewAnalysisService(store, m, logger),
		workspace: NewWorkspaceService(store, nil, logger),
	}
}

func (f *fixture) importScores(t *testing.T) {
	t.Helper()
	res, err := f.workspace.Import(context.Background(), "u1", "p1", []byte(scoresCSV), "scores.csv", -1)
	require.NoError(t, err)
	require.Equal(t, 1, res.HeaderRow)
	require.Equal(t, 7, res.Rows)
}

func TestExecute_UnsupportedAnalysis(t *testing.T) {
	f := newFixture(t)
	_, err := f.analysis.Execute(context.Background(), AnalysisRequest{UserID: "u1", ProjectID: "p1", Type: "cluster-analysis"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedAnalysis, apperrors.GetCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Analyses().WithLabelValues("unsupported", "error")))
}

func TestExecute_DatasetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.analysis.Execute(context.Background(), AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
		Params: stats.Params{"variables": []string{"pre"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// an existing dataset with no columns is treated the same way
	require.NoError(t, f.workspace.Reset(context.Background(), "u1", "p1"))
	_, err = f.analysis.Execute(context.Background(), AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
		Params: stats.Params{"variables": []string{"pre"}},
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExecute_InvalidOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.analysis.Execute(context.Background(), AnalysisRequest{UserID: "../etc", Type: "normality"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestExecute_EnrichesAndLogs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	result, err := f.analysis.Execute(ctx, AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
		Params: stats.Params{"variables": []string{"pre", "post"}},
	})
	require.NoError(t, err)
	assert.Contains(t, result, "pre")
	assert.Contains(t, result[narrative.Key], "post")

	history, err := f.analysis.History(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "descriptive-analysis", history[0].Type)
	assert.Equal(t, []any{"pre", "post"}, history[0].Params["variables"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Analyses().WithLabelValues("descriptive-analysis", "ok")))
}

func TestExecute_ListResultIsWrapped(t *testing.T) {
	f := newFixture(t)
	f.importScores(t)

	result, err := f.analysis.Execute(context.Background(), AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "paired-ttest",
		Params: stats.Params{"var1": "pre", "var2": "post"},
	})
	require.NoError(t, err)
	details, ok := result["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "pre - post", details[0].(map[string]any)["pair"])
	assert.NotEmpty(t, result[narrative.Key])
}

func TestExecute_ProcedureErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.importScores(t)

	_, err := f.analysis.Execute(context.Background(), AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
		Params: stats.Params{"variables": []string{"nope"}},
	})
	assert.True(t, apperrors.IsValidation(err))

	history, err := f.analysis.History(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExecute_HistoryKeepsTwentyNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	for i := 0; i < 25; i++ {
		_, err := f.analysis.Execute(ctx, AnalysisRequest{
			UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
			Params: stats.Params{"variables": []string{"pre"}},
		})
		require.NoError(t, err)
	}

	history, err := f.analysis.History(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, history, dataset.DefaultHistoryLimit)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Timestamp.After(history[i].Timestamp), "entry %d is not newer than %d", i-1, i)
	}
}

// memoryRepo serves one dataset that has no store, so every save fails.
type memoryRepo struct{ ds *dataset.Dataset }

func (r *memoryRepo) Load(context.Context, core.Owner) (*dataset.Dataset, bool) { return r.ds, r.ds != nil }
func (r *memoryRepo) Open(context.Context, core.Owner) *dataset.Dataset         { return r.ds }

func unsavedDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	table, err := dataset.TableFromRecords([]string{"x", "g"}, [][]string{{"1", "a"}, {"1", "a"}, {"3", "b"}})
	require.NoError(t, err)
	return dataset.Restore(core.Owner{UserID: "u1", ProjectID: "p1"}, table, nil, nil, time.Time{}, nil)
}

func TestExecute_SaveFailureStillReturnsResult(t *testing.T) {
	repo := &memoryRepo{ds: unsavedDataset(t)}
	svc := NewAnalysisService(repo, nil, internal.NewLogger(internal.LogLevelError))

	result, err := svc.Execute(context.Background(), AnalysisRequest{
		UserID: "u1", ProjectID: "p1", Type: "descriptive-analysis",
		Params: stats.Params{"variables": []string{"x"}},
	})
	require.NoError(t, err)
	assert.Contains(t, result, "x")
	assert.Len(t, repo.ds.History(), 1)
}

func TestPerformDataPreparation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	res, err := f.analysis.PerformDataPreparation(ctx, PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionRemoveDuplicates,
	})
	require.NoError(t, err)
	assert.Equal(t, PreparationResult{Status: "success", Message: "1 duplicate removed."}, res)

	res, err = f.analysis.PerformDataPreparation(ctx, PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionFindReplace,
		Params: stats.Params{"find": "A", "replace": "control", "target_columns": "group", "exact_match": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Replaced 3 cells.", res.Message)

	res, err = f.analysis.PerformDataPreparation(ctx, PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionFindReplace,
		Params: stats.Params{"find": 10, "replace": 20, "target_columns": []string{"pre"}, "exact_match": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Replaced 1 cells.", res.Message)

	view, err := f.workspace.Data(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, view.Rows, 6)
	assert.Equal(t, dataset.Text("control"), view.Rows[0][1])
	assert.Equal(t, dataset.Number(20), view.Rows[0][2])
}

func TestPerformDataPreparation_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	_, err := f.analysis.PerformDataPreparation(ctx, PreparationRequest{UserID: "u1", ProjectID: "p1", Action: "normalize"})
	assert.Equal(t, apperrors.CodeUnsupportedAction, apperrors.GetCode(err))

	_, err = f.analysis.PerformDataPreparation(ctx, PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionMissingValues,
		Params: stats.Params{"action": "interpolate"},
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.analysis.PerformDataPreparation(ctx, PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionFindReplace,
		Params: stats.Params{"replace": "x"},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPerformDataPreparation_StorageFailureIsStatusError(t *testing.T) {
	svc := NewAnalysisService(&memoryRepo{ds: unsavedDataset(t)}, nil, internal.NewLogger(internal.LogLevelError))

	res, err := svc.PerformDataPreparation(context.Background(), PreparationRequest{
		UserID: "u1", ProjectID: "p1", Action: ActionRemoveDuplicates,
	})
	require.NoError(t, err)
	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "no storage configured")
}

func TestRunReadOnlyAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	out, err := f.analysis.RunReadOnlyAction(ctx, "u1", "p1", ActionSearchData, stats.Params{"query": "s6"})
	require.NoError(t, err)
	search := out.(*SearchResult)
	assert.Equal(t, 2, search.Count)
	assert.Equal(t, "student", search.Matches[0].Column)

	out, err = f.analysis.RunReadOnlyAction(ctx, "u1", "p1", ActionSmartScan, nil)
	require.NoError(t, err)
	report := out.(*dataset.QualityReport)
	assert.Equal(t, 7, report.TotalRows)
	assert.Equal(t, 1, report.Duplicates)

	_, err = f.analysis.RunReadOnlyAction(ctx, "u1", "p1", "export-all", nil)
	assert.Equal(t, apperrors.CodeUnsupportedAction, apperrors.GetCode(err))
}

func TestHistoryDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	for _, typ := range []string{"normality", "descriptive-analysis"} {
		_, err := f.analysis.Execute(ctx, AnalysisRequest{
			UserID: "u1", ProjectID: "p1", Type: typ,
			Params: stats.Params{"variables": []string{"pre"}},
		})
		require.NoError(t, err)
	}
	history, err := f.analysis.History(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.NoError(t, f.analysis.DeleteHistoryEntry(ctx, "u1", "p1", history[0].ID))
	history, err = f.analysis.History(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "normality", history[0].Type)

	err = f.analysis.DeleteHistoryEntry(ctx, "u1", "p1", "missing-id")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, f.analysis.ClearHistory(ctx, "u1", "p1"))
	history, err = f.analysis.History(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWorkspaceService_EditAndExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	ok, err := f.workspace.UpdateVariable(ctx, "u1", "p1", "pre", dataset.FieldName, "pretest")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.workspace.UpdateVariable(ctx, "u1", "p1", "post", dataset.FieldName, "pretest")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.workspace.UpdateCell(ctx, "u1", "p1", 100, 0, "s7"))

	vars, err := f.workspace.Variables(ctx, "u1", "p1")
	require.NoError(t, err)
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	assert.Equal(t, []string{"student", "group", "pretest", "post"}, names)

	var buf bytes.Buffer
	require.NoError(t, f.workspace.Export(ctx, "u1", "p1", &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "student,group,pretest,post", lines[0])
	assert.Len(t, lines, 9)
	assert.Equal(t, "s7,,,", lines[8])
}

func TestWorkspaceService_ResetRemovesData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importScores(t)

	require.NoError(t, f.workspace.Reset(ctx, "u1", "p1"))

	view, err := f.workspace.Data(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, view.Columns)

	err = f.workspace.Export(ctx, "other", "p1", &bytes.Buffer{})
	assert.True(t, apperrors.IsNotFound(err))
}
