package excel

import (
	"testing"

	"onthesis/domain/dataset"
	"onthesis/internal"
	"onthesis/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func quiet() *internal.Logger { return internal.NewLogger(internal.LogLevelError) }

const surveyCSV = "Customer Survey 2024,,\n" +
	",,\n" +
	"name,age,gender\n" +
	"Ani,21,F\n" +
	"Budi,,M\n" +
	"Citra,23,F\n" +
	"Dewi,24,F\n"

func TestPreview_HeaderAfterTitleRow(t *testing.T) {
	res, err := NewPreviewer(DefaultReaderConfig(), quiet()).Preview([]byte(surveyCSV), "survey.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, res.DetectedHeaderRow)
	assert.Equal(t, 3, res.TotalColumns)
	require.Len(t, res.Columns, 3)

	age := res.Columns[1]
	assert.Equal(t, "age", age.Name)
	assert.Equal(t, dataset.TypeNumeric, age.DetectedType)
	assert.Equal(t, dataset.MeasureScale, age.DetectedMeasure)
	assert.Equal(t, []dataset.Value{dataset.Number(21), dataset.Missing(), dataset.Number(23)}, age.Sample)

	gender := res.Columns[2]
	assert.Equal(t, dataset.TypeString, gender.DetectedType)
	assert.Equal(t, dataset.MeasureNominal, gender.DetectedMeasure)

	require.Len(t, res.PreviewRows, 4)
	assert.Equal(t, dataset.Text("Budi"), res.PreviewRows[1][0])
}

func TestPreview_LimitsPreviewRows(t *testing.T) {
	cfg := DefaultReaderConfig()
	cfg.PreviewRows = 2
	cfg.SampleValues = 1

	res, err := NewPreviewer(cfg, quiet()).Preview([]byte(surveyCSV), "survey.csv")
	require.NoError(t, err)
	assert.Len(t, res.PreviewRows, 2)
	assert.Len(t, res.Columns[0].Sample, 1)
}

func TestDetectHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want int
	}{
		{"plain header", [][]string{{"a", "b"}, {"1", "2"}}, 0},
		{"all numeric keeps first row", [][]string{{"1", "2"}, {"3", "4"}}, 0},
		{"tie goes to earliest", [][]string{{"x", "1"}, {"y", "2"}}, 0},
		{"beyond candidates ignored", [][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"5"}, {"late", "header"}}, 0},
		{"numeric-looking strings count as numbers", [][]string{{"1.5", "2e3"}, {"id", "score"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectHeaderRow(tt.rows, 5))
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{" score ", "", "score", "score", "score.1", ""})
	assert.Equal(t, []string{"score", "Unnamed: 1", "score.2", "score.3", "score.1", "Unnamed: 5"}, got)
}

func TestReadTable_CSV(t *testing.T) {
	tbl, err := NewPreviewer(DefaultReaderConfig(), quiet()).ReadTable([]byte(surveyCSV), "survey.csv", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "gender"}, tbl.Columns())
	assert.Equal(t, 4, tbl.NumRows())
	assert.True(t, tbl.IsNumeric("age"))

	_, err = ReadTable([]byte(surveyCSV), "survey.csv", 99)
	assert.True(t, errors.IsValidation(err))
}

func TestReadTable_RaggedRows(t *testing.T) {
	csv := "a,b\n1,2,3\n4\n"
	tbl, err := NewPreviewer(DefaultReaderConfig(), quiet()).ReadTable([]byte(csv), "ragged.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "Unnamed: 2"}, tbl.Columns())
	assert.True(t, tbl.At(1, 1).IsMissing())
}

func TestPreview_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Title"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"id", "score", "group"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{1, 80.5, "x"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{2, 90, "y"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := NewPreviewer(DefaultReaderConfig(), quiet()).Preview(buf.Bytes(), "Data.XLSX")
	require.NoError(t, err)
	assert.Equal(t, 1, res.DetectedHeaderRow)
	require.Len(t, res.Columns, 3)
	assert.Equal(t, "score", res.Columns[1].Name)
	assert.Equal(t, dataset.TypeNumeric, res.Columns[1].DetectedType)
	assert.Equal(t, dataset.Number(80.5), res.Columns[1].Sample[0])
}

func TestPreview_Errors(t *testing.T) {
	_, err := Preview([]byte("a,b"), "notes.txt")
	assert.True(t, errors.IsValidation(err))

	_, err = Preview([]byte(""), "empty.csv")
	assert.True(t, errors.IsValidation(err))

	_, err = Preview([]byte("not a zip"), "broken.xlsx")
	assert.True(t, errors.IsValidation(err))
}
