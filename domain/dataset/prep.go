package dataset

import (
	"context"
	"fmt"
	"strings"

	apperrors "onthesis/internal/errors"

	"github.com/montanaflynn/stats"
)

// MissingStrategy selects how HandleMissingValues treats missing cells.
type MissingStrategy string

const (
	DropRows   MissingStrategy = "drop_rows"
	FillMean   MissingStrategy = "fill_mean"
	FillMedian MissingStrategy = "fill_median"
	FillMode   MissingStrategy = "fill_mode"
	FillZero   MissingStrategy = "fill_zero"
)

// SearchLimit caps the number of search matches.
const SearchLimit = 100

// Match is one search hit.
type Match struct {
	Row    int    `json:"row"`
	Column string `json:"col"`
	Value  Value  `json:"val"`
}

// targetIndexes resolves column names to positions. Unknown names are
// skipped; an empty request means every column.
func (d *Dataset) targetIndexes(cols []string) ([]int, error) {
	if len(cols) == 0 {
		return d.table.allIndexes(), nil
	}
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if i := d.table.ColumnIndex(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, apperrors.Validationf("none of the target columns exist: %s", strings.Join(cols, ", "))
	}
	return idx, nil
}

// HandleMissingValues drops or fills missing cells in the target columns.
// Mean and median fills touch numeric columns only; mode fill skips
// columns without any value.
func (d *Dataset) HandleMissingValues(ctx context.Context, strategy MissingStrategy, cols []string) (string, error) {
	idx, err := d.targetIndexes(cols)
	if err != nil {
		return "", err
	}

	var msg string
	switch strategy {
	case DropRows:
		removed := d.table.keepRows(func(row []Value) bool {
			for _, i := range idx {
				if row[i].IsMissing() {
					return false
				}
			}
			return true
		})
		msg = fmt.Sprintf("Removed %d rows with missing values.", removed)
	case FillMean, FillMedian:
		filled := 0
		for _, i := range idx {
			if !columnIsNumeric(d.table.rows, i) {
				continue
			}
			nums := d.numbers(i)
			if len(nums) == 0 {
				continue
			}
			var fill float64
			if strategy == FillMean {
				fill, err = stats.Mean(nums)
			} else {
				fill, err = stats.Median(nums)
			}
			if err != nil {
				return "", apperrors.Computationf("failed to compute fill value for %q: %v", d.table.columns[i], err)
			}
			filled += d.fill(i, Number(fill))
		}
		name := "mean"
		if strategy == FillMedian {
			name = "median"
		}
		msg = fmt.Sprintf("Filled %d missing values with the column %s.", filled, name)
	case FillMode:
		filled := 0
		for _, i := range idx {
			if mode, ok := d.mode(i); ok {
				filled += d.fill(i, mode)
			}
		}
		msg = fmt.Sprintf("Filled %d missing values with the column mode.", filled)
	case FillZero:
		filled := 0
		for _, i := range idx {
			filled += d.fill(i, Number(0))
		}
		msg = fmt.Sprintf("Filled %d missing values with 0.", filled)
	default:
		return "", apperrors.Validationf("unknown missing-value strategy %q", strategy)
	}

	_, err = d.Save(ctx)
	return msg, err
}

func (d *Dataset) numbers(col int) []float64 {
	out := make([]float64, 0, len(d.table.rows))
	for _, row := range d.table.rows {
		if f, ok := row[col].Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

func (d *Dataset) fill(col int, v Value) int {
	n := 0
	for _, row := range d.table.rows {
		if row[col].IsMissing() {
			row[col] = v
			n++
		}
	}
	return n
}

// mode returns the most frequent non-missing value; ties go to the smallest.
func (d *Dataset) mode(col int) (Value, bool) {
	counts := make(map[string]int)
	values := make(map[string]Value)
	for _, row := range d.table.rows {
		v := row[col]
		if v.IsMissing() {
			continue
		}
		k := v.key()
		counts[k]++
		values[k] = v
	}
	var best Value
	bestCount := 0
	for k, c := range counts {
		v := values[k]
		if c > bestCount || (c == bestCount && Compare(v, best) < 0) {
			best, bestCount = v, c
		}
	}
	return best, bestCount > 0
}

// RemoveDuplicates keeps the first of every set of rows that match exactly
// over the target columns.
func (d *Dataset) RemoveDuplicates(ctx context.Context, cols []string) (string, error) {
	idx, err := d.targetIndexes(cols)
	if err != nil {
		return "", err
	}
	seen := make(map[string]struct{}, d.table.NumRows())
	removed := d.table.keepRows(func(row []Value) bool {
		k := rowKey(row, idx)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})

	msg := fmt.Sprintf("%d duplicates removed.", removed)
	if removed == 1 {
		msg = "1 duplicate removed."
	}
	_, err = d.Save(ctx)
	return msg, err
}

// FindAndReplace substitutes values in the target columns. Exact mode
// matches the text form and, when find parses as a number, the numeric
// form too. Substring mode only rewrites text cells of text columns.
func (d *Dataset) FindAndReplace(ctx context.Context, find, replace string, cols []string, exact bool) (string, error) {
	if find == "" {
		return "", apperrors.ValidationError("find text cannot be empty")
	}
	idx, err := d.targetIndexes(cols)
	if err != nil {
		return "", err
	}

	replaced := 0
	if exact {
		repl := ParseCell(replace)
		findNum, hasNum := parseNumber(find)
		for _, row := range d.table.rows {
			for _, i := range idx {
				v := row[i]
				if (v.IsText() && v.text == find) || (hasNum && v.IsNumber() && v.num == findNum) {
					row[i] = repl
					replaced++
				}
			}
		}
	} else {
		for _, i := range idx {
			if columnIsNumeric(d.table.rows, i) {
				continue
			}
			for _, row := range d.table.rows {
				v := row[i]
				if v.IsText() && strings.Contains(v.text, find) {
					row[i] = Text(strings.ReplaceAll(v.text, find, replace))
					replaced++
				}
			}
		}
	}

	msg := fmt.Sprintf("Replaced %d cells.", replaced)
	_, err = d.Save(ctx)
	return msg, err
}

// Search finds cells whose text contains query, case-insensitively,
// column by column. At most SearchLimit matches are returned.
func (d *Dataset) Search(query string, cols []string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Match{}
	}
	idx, err := d.targetIndexes(cols)
	if err != nil {
		return []Match{}
	}
	matches := []Match{}
	for _, i := range idx {
		for r, row := range d.table.rows {
			v := row[i]
			if v.IsMissing() || !strings.Contains(strings.ToLower(v.String()), q) {
				continue
			}
			matches = append(matches, Match{Row: r, Column: d.table.columns[i], Value: v})
			if len(matches) >= SearchLimit {
				return matches
			}
		}
	}
	return matches
}
