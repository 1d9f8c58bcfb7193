package stats

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

const alpha = 0.05

// SigText renders a p-value for display.
func SigText(p float64) string {
	if math.IsNaN(p) {
		return "NaN"
	}
	if p < 0.001 {
		return "< .001"
	}
	return fmt.Sprintf("%.3f", p)
}

// CorrelationStrength bands |r| at 0.2, 0.4, 0.7 and 0.9.
func CorrelationStrength(r float64) string {
	if math.IsNaN(r) {
		return "-"
	}
	a := math.Abs(r)
	switch {
	case a < 0.2:
		return "Very Weak"
	case a < 0.4:
		return "Weak"
	case a < 0.7:
		return "Moderate"
	case a < 0.9:
		return "Strong"
	}
	return "Very Strong"
}

// numericColumn returns the frame column as floats, skipping missing
// cells. Text cells are a validation error.
func numericColumn(f *dataset.Frame, name string) ([]float64, error) {
	values := f.Values(name)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		x, ok := v.Float()
		if !ok {
			return nil, apperrors.Validationf("variable %q is not numeric", name)
		}
		out = append(out, x)
	}
	return out, nil
}

// group is one level of a grouping variable with the rows that carry it.
type group struct {
	key  dataset.Value
	rows []int
}

// groupRows splits row indexes by the non-missing values of name. Groups
// are in order of first appearance unless sorted is set.
func groupRows(f *dataset.Frame, name string, sorted bool) []group {
	var groups []group
	index := map[string]int{}
	for r, v := range f.Values(name) {
		if v.IsMissing() {
			continue
		}
		k := v.String()
		if v.IsText() {
			k = "s:" + k
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: v})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	if sorted {
		sort.SliceStable(groups, func(i, j int) bool {
			return dataset.Compare(groups[i].key, groups[j].key) < 0
		})
	}
	return groups
}

// pick returns the finite values of col at rows.
func pick(col []float64, rows []int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(col[r]) {
			out = append(out, col[r])
		}
	}
	return out
}

// floats returns the column as floats, rejecting text cells.
func floats(f *dataset.Frame, name string) ([]float64, error) {
	if _, err := numericColumn(f, name); err != nil {
		return nil, err
	}
	return f.Floats(name), nil
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// variance is the sample variance (ddof 1).
func variance(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Variance(x, nil)
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}

// median of x; NaN when empty.
func median(x []float64) float64 {
	m, err := mstats.Median(x)
	if err != nil {
		return math.NaN()
	}
	return m
}

// quantile uses linear interpolation between order statistics on an
// ascending slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// rank assigns average ranks (1-based) and returns the tie groups' sizes.
func rank(x []float64) (ranks []float64, ties []int) {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		if j > i {
			ties = append(ties, j-i+1)
		}
		i = j + 1
	}
	return ranks, ties
}

// tieSum is Σ(t³ - t) over tie group sizes.
func tieSum(ties []int) float64 {
	var s float64
	for _, t := range ties {
		tf := float64(t)
		s += tf*tf*tf - tf
	}
	return s
}

// pearson computes r on paired slices of equal length; NaN when either
// side is constant.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}
