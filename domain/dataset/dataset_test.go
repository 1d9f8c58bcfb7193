package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"testing"

	"onthesis/domain/core"
	apperrors "onthesis/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore counts saves and can be told to fail.
type recordingStore struct {
	saves int
	err   error
}

func (s *recordingStore) Save(ctx context.Context, ds *Dataset) (SaveOutcome, error) {
	s.saves++
	if s.err != nil {
		return SaveOutcome{}, s.err
	}
	return SaveOutcome{Tier: TierLocal, Message: "saved locally (fallback)"}, nil
}

func newTestDataset(t *testing.T, headers []string, rows [][]string) (*Dataset, *recordingStore) {
	t.Helper()
	store := &recordingStore{}
	ds := New(core.Owner{UserID: "u1", ProjectID: "default"}, store)
	require.NoError(t, ds.Initialize(context.Background(), headers, rows))
	return ds, store
}

func metaKeys(ds *Dataset) []string {
	keys := make([]string, 0)
	for k := range ds.Variables() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedColumns(ds *Dataset) []string {
	cols := ds.Columns()
	sort.Strings(cols)
	return cols
}

func TestInferVariable(t *testing.T) {
	tests := []struct {
		name     string
		values   []Value
		typ      VarType
		measure  Measure
		align    Align
		decimals int
	}{
		{"numbers", []Value{Number(1), Number(2.5), Missing()}, TypeNumeric, MeasureScale, AlignRight, 2},
		{"all missing", []Value{Missing(), Missing()}, TypeNumeric, MeasureScale, AlignRight, 2},
		{"text", []Value{Text("a"), Number(1)}, TypeString, MeasureNominal, AlignLeft, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := InferVariable("col", tt.values)
			assert.Equal(t, "col", m.Name)
			assert.Equal(t, tt.typ, m.Type)
			assert.Equal(t, tt.measure, m.Measure)
			assert.Equal(t, tt.align, m.Align)
			assert.Equal(t, tt.decimals, m.Decimals)
			assert.Equal(t, 8, m.Width)
			assert.Equal(t, "input", m.Role)
		})
	}
}

func TestVariableMetadataJSONDefaults(t *testing.T) {
	var m VariableMetadata
	require.NoError(t, json.Unmarshal([]byte(`{"name":"score","type":"Numeric"}`), &m))
	assert.Equal(t, MeasureScale, m.Measure)
	assert.Equal(t, AlignRight, m.Align)
	assert.Equal(t, 2, m.Decimals)
	assert.Equal(t, 8, m.Width)
	assert.NotNil(t, m.ValueLabels)

	m.ValueLabels["1"] = "Male"
	m.MissingValues = []Value{Number(99)}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var back VariableMetadata
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, m, back)
}

func TestParseCell(t *testing.T) {
	assert.True(t, ParseCell("").IsMissing())
	assert.True(t, ParseCell("  ").IsMissing())
	assert.Equal(t, "5", ParseCell("5.0").String())
	assert.Equal(t, "2.5", ParseCell("2.5").String())
	assert.True(t, ParseCell("abc").IsText())

	col := ParseColumn([]string{"1", "x", ""})
	assert.True(t, col[0].IsText(), "mixed columns keep numeric-looking text as text")
	assert.True(t, col[2].IsMissing())
}

func TestTableCSVRoundTrip(t *testing.T) {
	tbl, err := TableFromRecords([]string{"id", "name", "score"}, [][]string{
		{"1", "Ana", "3.5"},
		{"2", "Budi, Jr.", ""},
		{"3", "", "4"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back))

	single, err := TableFromRecords([]string{"only"}, [][]string{{"1"}, {""}, {"2"}})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, single.WriteCSV(&buf))
	back, err = ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, back.NumRows())
}

func TestMetadataSyncAfterStructuralChanges(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"a", "b"}, [][]string{{"1", "x"}})

	require.NoError(t, ds.AddColumn(ctx, "c"))
	assert.Equal(t, sortedColumns(ds), metaKeys(ds))

	require.NoError(t, ds.RemoveColumn(ctx, "a"))
	assert.Equal(t, sortedColumns(ds), metaKeys(ds))

	ok, err := ds.UpdateVariable(ctx, "b", FieldName, "b2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sortedColumns(ds), metaKeys(ds))
	m, found := ds.Variable("b2")
	require.True(t, found)
	assert.Equal(t, "b2", m.Name)

	err = ds.RemoveColumn(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsValidation(ds.AddColumn(ctx, "c")))
}

func TestUpdateVariableRejections(t *testing.T) {
	ctx := context.Background()
	ds, store := newTestDataset(t, []string{"a", "b"}, [][]string{{"1", "x"}})
	before := store.saves

	tests := []struct {
		field VariableField
		value string
	}{
		{FieldName, "b"},
		{FieldName, "  "},
		{FieldMeasure, "interval"},
		{FieldType, "Date"},
		{VariableField("width"), "10"},
	}
	for _, tt := range tests {
		ok, err := ds.UpdateVariable(ctx, "a", tt.field, tt.value)
		assert.NoError(t, err)
		assert.False(t, ok, "%s=%q should be rejected", tt.field, tt.value)
	}
	assert.Equal(t, before, store.saves)

	ok, err := ds.UpdateVariable(ctx, "a", FieldMeasure, "ordinal")
	require.NoError(t, err)
	assert.True(t, ok)
	m, _ := ds.Variable("a")
	assert.Equal(t, MeasureOrdinal, m.Measure)

	ok, _ = ds.UpdateVariable(ctx, "a", FieldLabel, "Age in years")
	assert.True(t, ok)
	assert.Equal(t, "Age in years", ds.Label("a"))
}

func TestUpdateCell(t *testing.T) {
	ctx := context.Background()
	ds, store := newTestDataset(t, []string{"n", "s"}, [][]string{{"1", "x"}, {"2", "y"}})

	require.NoError(t, ds.UpdateCell(ctx, 0, 0, "7.0"))
	assert.Equal(t, "7", ds.table.At(0, 0).String())
	assert.True(t, ds.table.At(0, 0).IsNumber())

	require.NoError(t, ds.UpdateCell(ctx, 1, 0, ""))
	assert.True(t, ds.table.At(1, 0).IsMissing())

	require.NoError(t, ds.UpdateCell(ctx, 9, 1, "z"))
	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, "z", ds.table.At(2, 1).String())

	require.NoError(t, ds.UpdateCell(ctx, 0, 1, "42"))
	assert.True(t, ds.table.At(0, 1).IsText(), "text columns keep text")

	assert.True(t, apperrors.IsValidation(ds.UpdateCell(ctx, 0, 5, "1")))
	assert.GreaterOrEqual(t, store.saves, 5)
}

func TestUpdateCellKeepsChangeWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	ds, store := newTestDataset(t, []string{"n"}, [][]string{{"1"}})
	store.err = apperrors.StorageError("both tiers failed", errors.New("disk full"))

	err := ds.UpdateCell(ctx, 0, 0, "5")
	assert.True(t, apperrors.IsStorage(err))
	assert.Equal(t, "5", ds.table.At(0, 0).String())
}

func TestFillMeanKeepsMean(t *testing.T) {
	ctx := context.Background()
	rows := make([][]string, 100)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i * 3 % 17)}
	}
	for _, i := range []int{3, 20, 41, 77, 99} {
		rows[i][0] = ""
	}
	ds, _ := newTestDataset(t, []string{"A"}, rows)
	before, err := meanOf(ds.numbers(0))
	require.NoError(t, err)

	msg, err := ds.HandleMissingValues(ctx, FillMean, []string{"A"})
	require.NoError(t, err)
	assert.Contains(t, msg, "5")

	col, _ := ds.table.Column("A")
	for _, v := range col {
		assert.False(t, v.IsMissing())
	}
	after, err := meanOf(ds.numbers(0))
	require.NoError(t, err)
	assert.InDelta(t, before, after, 1e-9)
}

func meanOf(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, fmt.Errorf("empty")
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs)), nil
}

func TestFillZeroTouchesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"a", "b"}, [][]string{{"", ""}, {"2", "x"}, {"", "y"}})
	bBefore, _ := ds.table.Column("b")

	_, err := ds.HandleMissingValues(ctx, FillZero, []string{"a"})
	require.NoError(t, err)

	a, _ := ds.table.Column("a")
	for _, v := range a {
		assert.False(t, v.IsMissing())
	}
	bAfter, _ := ds.table.Column("b")
	assert.Equal(t, bBefore, bAfter)
}

func TestHandleMissingValuesStrategies(t *testing.T) {
	ctx := context.Background()
	headers := []string{"num", "cat"}
	rows := [][]string{{"1", "a"}, {"3", ""}, {"", "b"}, {"3", "b"}, {"10", "a"}}

	ds, _ := newTestDataset(t, headers, rows)
	_, err := ds.HandleMissingValues(ctx, DropRows, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumRows())

	ds, _ = newTestDataset(t, headers, rows)
	_, err = ds.HandleMissingValues(ctx, FillMedian, nil)
	require.NoError(t, err)
	assert.Equal(t, "3", ds.table.At(2, 0).String())
	assert.True(t, ds.table.At(1, 1).IsMissing(), "median fill skips text columns")

	ds, _ = newTestDataset(t, headers, rows)
	_, err = ds.HandleMissingValues(ctx, FillMode, nil)
	require.NoError(t, err)
	assert.Equal(t, "3", ds.table.At(2, 0).String())
	assert.Equal(t, "a", ds.table.At(1, 1).String(), "ties resolve to the smallest value")

	_, err = ds.HandleMissingValues(ctx, MissingStrategy("guess"), nil)
	assert.True(t, apperrors.IsValidation(err))
	_, err = ds.HandleMissingValues(ctx, FillZero, []string{"nope"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRemoveDuplicates(t *testing.T) {
	ctx := context.Background()
	rows := make([][]string, 10)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i), fmt.Sprintf("name-%d", i)}
	}
	rows[7] = []string{"2", "name-2"}
	ds, _ := newTestDataset(t, []string{"id", "name"}, rows)

	msg, err := ds.RemoveDuplicates(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "1 duplicate removed.", msg)
	assert.Equal(t, 9, ds.NumRows())

	msg, err = ds.RemoveDuplicates(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "0 duplicates removed.", msg)
	assert.Equal(t, 9, ds.NumRows())
}

func TestFindAndReplace(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"num", "txt"}, [][]string{{"5", "5"}, {"6", "x5y"}, {"5.0", "abc"}})

	_, err := ds.FindAndReplace(ctx, "5", "9", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "9", ds.table.At(0, 0).String())
	assert.True(t, ds.table.At(0, 0).IsNumber())
	assert.Equal(t, "9", ds.table.At(2, 0).String())
	assert.Equal(t, "9", ds.table.At(0, 1).String())
	assert.Equal(t, "x5y", ds.table.At(1, 1).String())

	_, err = ds.FindAndReplace(ctx, "5", "-", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "x-y", ds.table.At(1, 1).String())
	assert.Equal(t, "6", ds.table.At(1, 0).String())

	_, err = ds.FindAndReplace(ctx, "", "x", nil, false)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchIsCappedAndCaseInsensitive(t *testing.T) {
	rows := make([][]string, 150)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("Alpha-%d", i)}
	}
	ds, _ := newTestDataset(t, []string{"label"}, rows)

	matches := ds.Search("ALPHA", nil)
	assert.Len(t, matches, SearchLimit)
	assert.Equal(t, 0, matches[0].Row)
	assert.Equal(t, "label", matches[0].Column)

	assert.Len(t, ds.Search("alpha-149", nil), 1)
	assert.Empty(t, ds.Search("", nil))
}

func TestScanDataQuality(t *testing.T) {
	rows := make([][]string, 0, 31)
	for i := 0; i < 30; i++ {
		rows = append(rows, []string{strconv.Itoa(10 + i%3), "a"})
	}
	rows = append(rows, []string{"1000", ""})
	rows = append(rows, []string{"10", "a"})
	ds, _ := newTestDataset(t, []string{"x", "g"}, rows)

	report := ds.ScanDataQuality()
	assert.Equal(t, 32, report.TotalRows)
	assert.Equal(t, 2, report.TotalCols)
	assert.Greater(t, report.Duplicates, 0)

	x := report.Columns[0]
	assert.Equal(t, 1, x.Outliers)
	assert.Equal(t, TypeNumeric, x.Type)
	assert.Contains(t, x.Recommendations, "1 outliers detected.")

	g := report.Columns[1]
	assert.Equal(t, 1, g.Missing)
	assert.Equal(t, 3.1, g.MissingPct)
	assert.Equal(t, 1, g.Unique)
	assert.Equal(t, []string{"Impute missing values (mean, median or mode)."}, g.Recommendations)
}

func TestAnalysisHistoryKeepsNewestTwenty(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"a"}, [][]string{{"1"}})

	for i := 0; i < 25; i++ {
		_, err := ds.AddAnalysisLog(ctx, "descriptive-analysis", map[string]any{"run": i}, nil)
		require.NoError(t, err)
	}
	history := ds.History()
	require.Len(t, history, 20)
	assert.Equal(t, 24, history[0].Result["run"])
	assert.Equal(t, 5, history[19].Result["run"])

	require.NoError(t, ds.DeleteAnalysisLog(ctx, history[0].ID))
	assert.Len(t, ds.History(), 19)
	assert.True(t, apperrors.IsNotFound(ds.DeleteAnalysisLog(ctx, "nope")))

	require.NoError(t, ds.ClearAnalysisHistory(ctx))
	assert.Empty(t, ds.History())
}

func TestFrameCoercion(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"score", "group"}, [][]string{
		{"1", "a"}, {"99", "b"}, {"3", ""}, {"4", "a"},
	})
	require.NoError(t, ds.SetMissingValues(ctx, "score", []Value{Number(99)}))

	f, err := ds.Frame([]string{"score", "group"}, false)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())
	assert.True(t, f.Values("score")[1].IsMissing())

	f, err = ds.Frame([]string{"score", "group"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []float64{1, 4}, f.Floats("score"))

	_, err = ds.Frame([]string{"nope"}, true)
	assert.True(t, apperrors.IsValidation(err))
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	ds, _ := newTestDataset(t, []string{"a"}, [][]string{{"1"}})
	_, err := ds.AddAnalysisLog(ctx, "normality", map[string]any{}, nil)
	require.NoError(t, err)

	require.NoError(t, ds.ClearAll(ctx))
	assert.True(t, ds.IsEmpty())
	assert.Empty(t, ds.Variables())
	assert.Empty(t, ds.History())
}
