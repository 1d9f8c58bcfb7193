package excel

import (
	"fmt"
	"strings"

	"onthesis/domain/dataset"
	"onthesis/internal"
	"onthesis/internal/errors"
)

// Previewer detects the header row of an upload and reports the column
// schema it implies.
type Previewer struct {
	config ReaderConfig
	logger *internal.Logger
}

// NewPreviewer creates a previewer; a nil logger uses the default.
func NewPreviewer(config ReaderConfig, logger *internal.Logger) *Previewer {
	return &Previewer{config: config, logger: internal.OrDefault(logger)}
}

// Preview runs header detection with the default configuration.
func Preview(contents []byte, filename string) (*PreviewResult, error) {
	return NewPreviewer(DefaultReaderConfig(), nil).Preview(contents, filename)
}

// ReadTable reads the full file with the given header row, using the
// default configuration.
func ReadTable(contents []byte, filename string, headerRow int) (*dataset.Table, error) {
	return NewPreviewer(DefaultReaderConfig(), nil).ReadTable(contents, filename, headerRow)
}

// Preview samples the first rows, picks the header row and re-reads up to
// PreviewRows data rows beneath it.
func (p *Previewer) Preview(contents []byte, filename string) (*PreviewResult, error) {
	rows, err := p.rows(contents, filename)
	if err != nil {
		return nil, err
	}
	sample := rows[:min(len(rows), p.config.SampleRows)]
	headerRow := DetectHeaderRow(sample, p.config.HeaderCandidates)

	headers, data := split(rows, headerRow)
	data = data[:min(len(data), p.config.PreviewRows)]

	result := &PreviewResult{
		DetectedHeaderRow: headerRow,
		TotalColumns:      len(headers),
		Columns:           make([]ColumnPreview, len(headers)),
		PreviewRows:       make([][]dataset.Value, len(data)),
	}
	for i := range result.PreviewRows {
		result.PreviewRows[i] = make([]dataset.Value, len(headers))
	}
	for c, name := range headers {
		values := dataset.ParseColumn(column(data, c))
		meta := dataset.InferVariable(name, values)
		result.Columns[c] = ColumnPreview{
			Name:            name,
			DetectedType:    meta.Type,
			DetectedMeasure: meta.Measure,
			Sample:          values[:min(len(values), p.config.SampleValues)],
		}
		for r, v := range values {
			result.PreviewRows[r][c] = v
		}
	}
	p.logger.With("Previewer").Debug("%s: header row %d, %d columns", filename, headerRow, len(headers))
	return result, nil
}

// ReadTable parses every data row beneath headerRow into a table.
func (p *Previewer) ReadTable(contents []byte, filename string, headerRow int) (*dataset.Table, error) {
	rows, err := p.rows(contents, filename)
	if err != nil {
		return nil, err
	}
	if headerRow < 0 || headerRow >= len(rows) {
		return nil, errors.Validationf("header row %d out of range (file has %d rows)", headerRow, len(rows))
	}
	headers, data := split(rows, headerRow)
	return dataset.TableFromRecords(headers, data)
}

func (p *Previewer) rows(contents []byte, filename string) ([][]string, error) {
	reader, err := NewDataReader(contents, filename, p.logger)
	if err != nil {
		return nil, err
	}
	rows, err := reader.ReadRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ValidationError("file is empty")
	}
	return rows, nil
}

// DetectHeaderRow returns the index, among the first candidates rows, of
// the row with the most non-empty non-numeric cells. Ties go to the
// earliest row.
func DetectHeaderRow(rows [][]string, candidates int) int {
	best, bestCount := 0, 0
	for i := 0; i < min(candidates, len(rows)); i++ {
		count := 0
		for _, cell := range rows[i] {
			if v := dataset.ParseCell(cell); v.IsText() {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

// split returns normalized headers and the non-blank data rows beneath
// headerRow. The width is the widest of the header and data rows.
func split(rows [][]string, headerRow int) ([]string, [][]string) {
	width := 0
	for _, row := range rows[headerRow:] {
		width = max(width, len(row))
	}
	raw := make([]string, width)
	copy(raw, rows[headerRow])

	var data [][]string
	for _, row := range rows[headerRow+1:] {
		if blank(row) {
			continue
		}
		data = append(data, row)
	}
	return NormalizeHeaders(raw), data
}

// NormalizeHeaders trims names, names empty ones "Unnamed: i" and
// suffixes repeats with ".1", ".2", ...
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		taken[name] = true
		out[i] = name
	}
	for i, name := range out {
		n := seen[name]
		seen[name] = n + 1
		if n == 0 {
			continue
		}
		candidate := fmt.Sprintf("%s.%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[name] = n + 1
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

func column(rows [][]string, c int) []string {
	out := make([]string, len(rows))
	for r, row := range rows {
		if c < len(row) {
			out[r] = row[c]
		}
	}
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
