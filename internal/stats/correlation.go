package stats

import (
	"math"

	"onthesis/domain/dataset"
)

// CorrelationCell is one entry of the correlation matrix.
type CorrelationCell struct {
	R      float64 `json:"r"`
	P      float64 `json:"p"`
	PText  string  `json:"p_text,omitempty"`
	N      int     `json:"n"`
	Interp string  `json:"interp"`
}

// CorrelationResult holds the symmetric matrix keyed by variable name.
type CorrelationResult struct {
	Matrix map[string]map[string]CorrelationCell `json:"matrix"`
	Method string                                `json:"method"`
}

// Correlation computes pairwise Pearson, Spearman or Kendall coefficients
// over the rows complete on every selected variable.
func Correlation(ds *dataset.Dataset, params Params) (any, error) {
	var p correlationParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	method := p.Method
	if method == "" {
		method = "pearson"
	}
	f, err := ds.Frame(p.Variables, true)
	if err != nil {
		return nil, err
	}
	names := f.Names()
	cols := make([][]float64, len(names))
	for i, name := range names {
		if cols[i], err = numericColumn(f, name); err != nil {
			return nil, err
		}
	}

	n := f.Len()
	matrix := make(map[string]map[string]CorrelationCell, len(names))
	for _, name := range names {
		matrix[name] = make(map[string]CorrelationCell, len(names))
	}
	for i := range names {
		matrix[names[i]][names[i]] = CorrelationCell{R: 1, P: 0, N: n, Interp: CorrelationStrength(1)}
		for j := i + 1; j < len(names); j++ {
			r, pv := correlate(method, cols[i], cols[j])
			cell := CorrelationCell{R: r, P: pv, PText: SigText(pv), N: n, Interp: CorrelationStrength(r)}
			matrix[names[i]][names[j]] = cell
			matrix[names[j]][names[i]] = cell
		}
	}
	return CorrelationResult{Matrix: matrix, Method: method}, nil
}

func correlate(method string, x, y []float64) (r, p float64) {
	switch method {
	case "spearman":
		rx, _ := rank(x)
		ry, _ := rank(y)
		r = pearson(rx, ry)
		return r, dist.CorrelationPValue(r, len(x))
	case "kendall":
		return KendallTau(x, y)
	}
	r = pearson(x, y)
	return r, dist.CorrelationPValue(r, len(x))
}

// KendallTau returns tau-b and its asymptotic two-sided p-value with the
// tie-corrected variance.
func KendallTau(x, y []float64) (tau, p float64) {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN(), math.NaN()
	}
	var concordant, discordant, tiesX, tiesY float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx, dy := x[i]-x[j], y[i]-y[j]
			switch {
			case dx == 0 && dy == 0:
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case dx*dy > 0:
				concordant++
			default:
				discordant++
			}
		}
	}
	denom := math.Sqrt((concordant + discordant + tiesX) * (concordant + discordant + tiesY))
	if denom == 0 {
		return math.NaN(), math.NaN()
	}
	tau = (concordant - discordant) / denom

	_, tx := rank(x)
	_, ty := rank(y)
	nf := float64(n)
	v0 := nf * (nf - 1) * (2*nf + 5)
	var vt, vu, t1x, t1y, t2x, t2y float64
	for _, t := range tx {
		tf := float64(t)
		vt += tf * (tf - 1) * (2*tf + 5)
		t1x += tf * (tf - 1)
		t2x += tf * (tf - 1) * (tf - 2)
	}
	for _, t := range ty {
		tf := float64(t)
		vu += tf * (tf - 1) * (2*tf + 5)
		t1y += tf * (tf - 1)
		t2y += tf * (tf - 1) * (tf - 2)
	}
	v := (v0-vt-vu)/18 + t1x*t1y/(2*nf*(nf-1))
	if n > 2 {
		v += t2x * t2y / (9 * nf * (nf - 1) * (nf - 2))
	}
	if v <= 0 {
		return tau, math.NaN()
	}
	z := (concordant - discordant) / math.Sqrt(v)
	return tau, dist.NormalTwoTailed(z)
}
