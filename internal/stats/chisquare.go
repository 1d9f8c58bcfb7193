package stats

import (
	"math"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// ChiSquareResult is the output of chi-square. Crosstab is keyed by column
// value, then row value.
type ChiSquareResult struct {
	Crosstab map[string]map[string]int `json:"crosstab"`
	Chi2     float64                   `json:"chi2"`
	DF       int                       `json:"df"`
	Sig      float64                   `json:"sig"`
	SigText  string                    `json:"sig_text"`
}

// ChiSquare runs Pearson's test of independence on the contingency table
// of row_var by col_var, with Yates' correction on 2x2 tables.
func ChiSquare(ds *dataset.Dataset, params Params) (any, error) {
	var p crosstabParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	f, err := ds.Frame([]string{p.RowVar, p.ColVar}, true)
	if err != nil {
		return nil, err
	}
	rows := groupRows(f, p.RowVar, true)
	cols := groupRows(f, p.ColVar, true)
	if len(rows) < 2 || len(cols) < 2 {
		return nil, apperrors.Computationf("contingency table needs at least 2 rows and 2 columns, got %dx%d", len(rows), len(cols))
	}

	rowOf := make(map[int]int, f.Len())
	for i, g := range rows {
		for _, r := range g.rows {
			rowOf[r] = i
		}
	}
	observed := make([][]float64, len(rows))
	for i := range observed {
		observed[i] = make([]float64, len(cols))
	}
	for j, g := range cols {
		for _, r := range g.rows {
			observed[rowOf[r]][j]++
		}
	}

	chi2, df := ContingencyChiSquare(observed)
	sig := dist.ChiSquarePValue(chi2, float64(df))
	res := ChiSquareResult{
		Crosstab: make(map[string]map[string]int, len(cols)),
		Chi2:     chi2,
		DF:       df,
		Sig:      sig,
		SigText:  SigText(sig),
	}
	for j, c := range cols {
		inner := make(map[string]int, len(rows))
		for i, r := range rows {
			inner[r.key.String()] = int(observed[i][j])
		}
		res.Crosstab[c.key.String()] = inner
	}
	return res, nil
}

// ContingencyChiSquare returns Pearson's statistic and its degrees of
// freedom. With one degree of freedom each |O-E| is reduced by up to 0.5.
func ContingencyChiSquare(observed [][]float64) (chi2 float64, df int) {
	nr := len(observed)
	if nr == 0 {
		return math.NaN(), 0
	}
	nc := len(observed[0])
	rowSum := make([]float64, nr)
	colSum := make([]float64, nc)
	var total float64
	for i, row := range observed {
		for j, o := range row {
			rowSum[i] += o
			colSum[j] += o
			total += o
		}
	}
	df = (nr - 1) * (nc - 1)
	if total == 0 {
		return math.NaN(), df
	}
	for i, row := range observed {
		for j, o := range row {
			e := rowSum[i] * colSum[j] / total
			if e == 0 {
				return math.NaN(), df
			}
			d := math.Abs(o - e)
			if df == 1 {
				d -= math.Min(0.5, d)
			}
			chi2 += d * d / e
		}
	}
	return chi2, df
}
