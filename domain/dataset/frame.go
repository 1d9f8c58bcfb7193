package dataset

import (
	"math"

	apperrors "onthesis/internal/errors"
)

// Frame is a column-major working copy of selected variables, coerced for
// analysis.
type Frame struct {
	names []string
	cols  [][]Value
}

// Frame builds the analysis sub-table. Variables typed Numeric are coerced
// to numbers (unparseable text becomes missing) and sentinel codes become
// missing. With dropMissing, any row with a missing selected cell is
// removed. An empty selection means every column.
func (d *Dataset) Frame(variables []string, dropMissing bool) (*Frame, error) {
	if len(variables) == 0 {
		variables = d.table.columns
	}
	f := &Frame{}
	seen := make(map[string]bool, len(variables))
	var idx []int
	for _, name := range variables {
		if seen[name] {
			continue
		}
		i := d.table.ColumnIndex(name)
		if i < 0 {
			return nil, apperrors.Validationf("variable %q not found", name)
		}
		seen[name] = true
		f.names = append(f.names, name)
		idx = append(idx, i)
	}

	f.cols = make([][]Value, len(idx))
	for _, row := range d.table.rows {
		cells := make([]Value, len(idx))
		complete := true
		for j, i := range idx {
			cells[j] = coerce(d.meta[f.names[j]], row[i])
			if cells[j].IsMissing() {
				complete = false
			}
		}
		if dropMissing && !complete {
			continue
		}
		for j := range idx {
			f.cols[j] = append(f.cols[j], cells[j])
		}
	}
	return f, nil
}

func coerce(meta VariableMetadata, v Value) Value {
	if meta.IsMissing(v) {
		return Missing()
	}
	if meta.Type == TypeNumeric {
		if x, ok := v.AsFloat(); ok {
			return Number(x)
		}
		return Missing()
	}
	return v
}

// Names lists the frame's columns.
func (f *Frame) Names() []string { return append([]string{}, f.names...) }

// Len is the row count.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0])
}

func (f *Frame) index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Values returns the cells of a column, or nil for an unknown name.
func (f *Frame) Values(name string) []Value {
	i := f.index(name)
	if i < 0 {
		return nil
	}
	return append([]Value{}, f.cols[i]...)
}

// Floats returns a column as floats with NaN for missing or text cells.
func (f *Frame) Floats(name string) []float64 {
	i := f.index(name)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(f.cols[i]))
	for r, v := range f.cols[i] {
		if x, ok := v.AsFloat(); ok {
			out[r] = x
		} else {
			out[r] = math.NaN()
		}
	}
	return out
}
