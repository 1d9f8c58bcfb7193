package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"onthesis/internal"
	"onthesis/internal/errors"
)

// DataReader reads the raw cell grid of an uploaded Excel or CSV file
type DataReader struct {
	contents []byte
	filename string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a reader for contents; the file type comes from
// the filename extension
func NewDataReader(contents []byte, filename string, logger *internal.Logger) (*DataReader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var fileType string
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xls", ".xlsm":
		fileType = "xlsx"
	default:
		return nil, errors.Validationf("unsupported file type %q", ext)
	}
	return &DataReader{
		contents: contents,
		filename: filename,
		fileType: fileType,
		logger:   internal.OrDefault(logger).With("DataReader"),
	}, nil
}

// ReadRows returns every row as raw strings. Rows may be ragged.
func (r *DataReader) ReadRows() ([][]string, error) {
	start := time.Now()
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s file %s read in %.2fms (%d rows)", strings.ToUpper(r.fileType), r.filename,
		float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readExcelRows reads the first sheet of the workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(r.contents))
	if err != nil {
		return nil, errors.Wrap(errors.ValidationError(err.Error()), "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ValidationError("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(errors.ValidationError(err.Error()), fmt.Sprintf("failed to read sheet %s", sheets[0]))
	}
	return rows, nil
}

// readCSVRows reads delimited text, tolerating ragged rows and stray quotes
func (r *DataReader) readCSVRows() ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(r.contents, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ValidationError(err.Error()), "failed to read CSV file")
	}
	return rows, nil
}
