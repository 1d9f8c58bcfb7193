package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is an in-memory rows x named-columns value container.
type Table struct {
	columns []string
	rows    [][]Value
}

// NewTable creates an empty table with the given unique column names.
func NewTable(columns ...string) (*Table, error) {
	t := &Table{}
	for _, c := range columns {
		if err := t.addColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// TableFromColumns builds a table from parallel column slices of equal length.
func TableFromColumns(names []string, cols [][]Value) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(cols))
	}
	t, err := NewTable(names...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return t, nil
	}
	n := len(cols[0])
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", names[i], len(c), n)
		}
	}
	t.rows = make([][]Value, n)
	for r := 0; r < n; r++ {
		row := make([]Value, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}
		t.rows[r] = row
	}
	return t, nil
}

// TableFromRecords parses raw text rows under the given headers, one
// column at a time with ParseColumn. Short rows are padded with missing.
func TableFromRecords(headers []string, records [][]string) (*Table, error) {
	cols := make([][]Value, len(headers))
	for c := range headers {
		raw := make([]string, len(records))
		for r, rec := range records {
			if c < len(rec) {
				raw[r] = rec[c]
			}
		}
		cols[c] = ParseColumn(raw)
	}
	return TableFromColumns(headers, cols)
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) NumRows() int { return len(t.rows) }
func (t *Table) NumCols() int { return len(t.columns) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// At returns the cell at row r, column c.
func (t *Table) At(r, c int) Value { return t.rows[r][c] }

// Row returns a copy of row r.
func (t *Table) Row(r int) []Value {
	out := make([]Value, len(t.rows[r]))
	copy(out, t.rows[r])
	return out
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[idx]
	}
	return out, true
}

// IsNumeric reports whether every non-missing cell of the column is a number.
func (t *Table) IsNumeric(name string) bool {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return false
	}
	return columnIsNumeric(t.rows, idx)
}

func columnIsNumeric(rows [][]Value, idx int) bool {
	for _, row := range rows {
		if row[idx].IsText() {
			return false
		}
	}
	return true
}

func (t *Table) set(r, c int, v Value) { t.rows[r][c] = v }

func (t *Table) addColumn(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], Missing())
	}
	return nil
}

func (t *Table) removeColumn(name string) bool {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return false
	}
	t.columns = append(t.columns[:idx], t.columns[idx+1:]...)
	for i, row := range t.rows {
		t.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return true
}

func (t *Table) renameColumn(oldName, newName string) error {
	idx := t.ColumnIndex(oldName)
	if idx < 0 {
		return fmt.Errorf("column %q not found", oldName)
	}
	if oldName != newName && t.HasColumn(newName) {
		return fmt.Errorf("column %q already exists", newName)
	}
	t.columns[idx] = newName
	return nil
}

func (t *Table) appendEmptyRow() {
	row := make([]Value, len(t.columns))
	t.rows = append(t.rows, row)
}

// keepRows retains rows for which keep returns true; the index is reset.
func (t *Table) keepRows(keep func(row []Value) bool) int {
	kept := t.rows[:0]
	removed := 0
	for _, row := range t.rows {
		if keep(row) {
			kept = append(kept, row)
		} else {
			removed++
		}
	}
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return removed
}

// rowKey identifies a row over the given column positions.
func rowKey(row []Value, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		b.WriteString(row[i].key())
		b.WriteByte(0)
	}
	return b.String()
}

// DuplicateCount returns how many rows repeat an earlier row over idx.
func (t *Table) duplicateCount(idx []int) int {
	seen := make(map[string]struct{}, len(t.rows))
	dups := 0
	for _, row := range t.rows {
		k := rowKey(row, idx)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func (t *Table) allIndexes() []int {
	idx := make([]int, len(t.columns))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{columns: t.Columns(), rows: make([][]Value, len(t.rows))}
	for i := range t.rows {
		c.rows[i] = t.Row(i)
	}
	return c
}

// Equal compares column order and every cell.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for r := range t.rows {
		for c := range t.rows[r] {
			if !t.rows[r][c].Equal(o.rows[r][c]) {
				return false
			}
		}
	}
	return true
}

// WriteCSV writes a header row followed by every row; missing cells are empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rec := make([]string, len(t.columns))
	for _, row := range t.rows {
		for c, v := range row {
			rec[c] = v.String()
		}
		if len(rec) == 1 && rec[0] == "" {
			// a lone empty field would otherwise be a blank line, which readers skip
			cw.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a header row plus data rows written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return TableFromRecords(records[0], records[1:])
}
