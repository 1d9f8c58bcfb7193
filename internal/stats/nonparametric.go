package stats

import (
	"math"

	gfloats "gonum.org/v1/gonum/floats"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// MannWhitneyResult is one test variable of mann-whitney.
type MannWhitneyResult struct {
	Label   string  `json:"label,omitempty"`
	UStat   float64 `json:"u_stat"`
	Sig     float64 `json:"sig"`
	SigText string  `json:"sig_text"`
	Error   string  `json:"error,omitempty"`
}

// KruskalResult is one test variable of kruskal-wallis.
type KruskalResult struct {
	Label   string  `json:"label,omitempty"`
	HStat   float64 `json:"h_stat"`
	DF      int     `json:"df"`
	Sig     float64 `json:"sig"`
	SigText string  `json:"sig_text"`
	Error   string  `json:"error,omitempty"`
}

// MannWhitneyU returns U for the first sample and its two-sided p-value.
func MannWhitneyU(a, b []float64) (u, p float64) {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return math.NaN(), math.NaN()
	}
	ranks, ties := rank(append(append([]float64(nil), a...), b...))
	r1 := gfloats.Sum(ranks[:n1])
	u = r1 - float64(n1*(n1+1))/2
	return u, dist.MannWhitneyPValue(u, n1, n2, tieSum(ties))
}

// MannWhitney compares the two groups of group_var per test variable.
func MannWhitney(ds *dataset.Dataset, params Params) (any, error) {
	var p groupComparisonParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	f, err := ds.Frame(append([]string{p.GroupVar}, p.TestVars...), true)
	if err != nil {
		return nil, err
	}
	groups := groupRows(f, p.GroupVar, false)
	if len(groups) != 2 {
		return nil, apperrors.Validationf("grouping variable must have exactly 2 categories, found %d", len(groups))
	}
	results := make(map[string]MannWhitneyResult, len(p.TestVars))
	for _, name := range p.TestVars {
		col, err := floats(f, name)
		if err != nil {
			results[name] = MannWhitneyResult{Error: err.Error(), UStat: math.NaN(), Sig: math.NaN()}
			continue
		}
		u, sig := MannWhitneyU(pick(col, groups[0].rows), pick(col, groups[1].rows))
		results[name] = MannWhitneyResult{Label: ds.Label(name), UStat: u, Sig: sig, SigText: SigText(sig)}
	}
	return results, nil
}

// KruskalH returns the tie-corrected H statistic and its p-value.
func KruskalH(samples ...[]float64) (h, p float64, err error) {
	var pooled []float64
	for _, s := range samples {
		if len(s) == 0 {
			return math.NaN(), math.NaN(), apperrors.Validationf("every group needs at least one observation")
		}
		pooled = append(pooled, s...)
	}
	n := float64(len(pooled))
	ranks, ties := rank(pooled)
	var acc float64
	offset := 0
	for _, s := range samples {
		r := gfloats.Sum(ranks[offset : offset+len(s)])
		acc += r * r / float64(len(s))
		offset += len(s)
	}
	h = 12/(n*(n+1))*acc - 3*(n+1)
	correction := 1 - tieSum(ties)/(n*n*n-n)
	if correction == 0 {
		return math.NaN(), math.NaN(), apperrors.Computationf("all numbers are identical in kruskal-wallis")
	}
	h /= correction
	return h, dist.KruskalWallisPValue(h, len(samples)), nil
}

// KruskalWallis compares the sorted groups of group_var per test variable.
func KruskalWallis(ds *dataset.Dataset, params Params) (any, error) {
	var p groupComparisonParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	f, err := ds.Frame(append([]string{p.GroupVar}, p.TestVars...), true)
	if err != nil {
		return nil, err
	}
	groups := groupRows(f, p.GroupVar, true)
	if len(groups) < 2 {
		return nil, apperrors.Validationf("grouping variable needs at least 2 categories, found %d", len(groups))
	}
	results := make(map[string]KruskalResult, len(p.TestVars))
	for _, name := range p.TestVars {
		col, err := floats(f, name)
		if err != nil {
			results[name] = KruskalResult{Error: err.Error(), HStat: math.NaN(), Sig: math.NaN()}
			continue
		}
		samples := make([][]float64, len(groups))
		for i, g := range groups {
			samples[i] = pick(col, g.rows)
		}
		h, sig, err := KruskalH(samples...)
		if err != nil {
			results[name] = KruskalResult{Label: ds.Label(name), Error: err.Error(), HStat: math.NaN(), Sig: math.NaN()}
			continue
		}
		results[name] = KruskalResult{
			Label:   ds.Label(name),
			HStat:   h,
			DF:      len(groups) - 1,
			Sig:     sig,
			SigText: SigText(sig),
		}
	}
	return results, nil
}

// WilcoxonSignedRank returns T = min(R+, R-) over the non-zero
// differences x-y and its two-sided p-value.
func WilcoxonSignedRank(x, y []float64) (t, p float64, err error) {
	var d []float64
	for i := range x {
		if diff := x[i] - y[i]; diff != 0 {
			d = append(d, diff)
		}
	}
	if len(d) == 0 {
		return math.NaN(), math.NaN(), apperrors.Computationf("all differences are zero")
	}
	abs := make([]float64, len(d))
	for i, v := range d {
		abs[i] = math.Abs(v)
	}
	ranks, ties := rank(abs)
	var plus, minus float64
	for i, v := range d {
		if v > 0 {
			plus += ranks[i]
		} else {
			minus += ranks[i]
		}
	}
	t = math.Min(plus, minus)
	return t, dist.WilcoxonSignedRankPValue(t, len(d), tieSum(ties)), nil
}

// Wilcoxon runs the signed-rank test for each (var1[i], var2[i]).
func Wilcoxon(ds *dataset.Dataset, params Params) (any, error) {
	var p pairedParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	results := make([]PairedResult, 0, len(p.Var1))
	for _, pair := range p.pairs() {
		res := PairedResult{Pair: pair[0] + " - " + pair[1]}
		x, y, err := pairedColumns(ds, pair[0], pair[1])
		if err == nil {
			var t, sig float64
			if t, sig, err = WilcoxonSignedRank(x, y); err == nil {
				res.Stat, res.Sig, res.SigText = &t, &sig, SigText(sig)
			}
		}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}
