package stats

import (
	"math"

	gfloats "gonum.org/v1/gonum/floats"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// GroupStat is a group's mean and size.
type GroupStat struct {
	Mean float64 `json:"mean"`
	N    int     `json:"n"`
}

// IndependentTTestResult is one test variable of independent-ttest.
type IndependentTTestResult struct {
	Label         string               `json:"label,omitempty"`
	Levene        *TestStat            `json:"levene,omitempty"`
	EqualVariance bool                 `json:"equal_variance"`
	TStat         float64              `json:"t_stat"`
	DF            float64              `json:"df"`
	Sig           float64              `json:"sig"`
	SigText       string               `json:"sig_text"`
	MeanDiff      float64              `json:"mean_diff"`
	CohenD        float64              `json:"cohen_d"`
	GroupStats    map[string]GroupStat `json:"group_stats,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// PairedResult is one pair of paired-ttest or wilcoxon.
type PairedResult struct {
	Pair     string   `json:"pair"`
	TStat    *float64 `json:"t_stat,omitempty"`
	Stat     *float64 `json:"stat,omitempty"`
	DF       *float64 `json:"df,omitempty"`
	Sig      *float64 `json:"sig,omitempty"`
	SigText  string   `json:"sig_text,omitempty"`
	MeanDiff *float64 `json:"mean_diff,omitempty"`
	Corr     *float64 `json:"corr,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Levene is the median-centred (Brown-Forsythe) test of equal variances.
func Levene(groups ...[]float64) (w, p float64) {
	k := len(groups)
	var n int
	z := make([][]float64, k)
	zbar := make([]float64, k)
	var zall float64
	for i, g := range groups {
		med := median(g)
		z[i] = make([]float64, len(g))
		for j, v := range g {
			z[i][j] = math.Abs(v - med)
		}
		zbar[i] = mean(z[i])
		zall += gfloats.Sum(z[i])
		n += len(g)
	}
	if k < 2 || n <= k {
		return math.NaN(), math.NaN()
	}
	zall /= float64(n)
	var between, within float64
	for i := range groups {
		between += float64(len(z[i])) * (zbar[i] - zall) * (zbar[i] - zall)
		for _, v := range z[i] {
			within += (v - zbar[i]) * (v - zbar[i])
		}
	}
	if within == 0 {
		return math.NaN(), math.NaN()
	}
	w = float64(n-k) / float64(k-1) * between / within
	return w, dist.FTestPValue(w, float64(k-1), float64(n-k))
}

// TwoSampleT runs Student's t (equalVar) or Welch's t on two samples.
func TwoSampleT(a, b []float64, equalVar bool) (t, df, p float64) {
	n1, n2 := float64(len(a)), float64(len(b))
	v1, v2 := variance(a), variance(b)
	diff := mean(a) - mean(b)
	var se float64
	if equalVar {
		df = n1 + n2 - 2
		pooled := ((n1-1)*v1 + (n2-1)*v2) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	} else {
		q1, q2 := v1/n1, v2/n2
		se = math.Sqrt(q1 + q2)
		df = (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	}
	if se == 0 || math.IsNaN(se) {
		return math.NaN(), df, math.NaN()
	}
	t = diff / se
	return t, df, dist.TTestPValue(t, df)
}

// IndependentTTest compares two groups per test variable, picking the
// Student or Welch form from Levene's test.
func IndependentTTest(ds *dataset.Dataset, params Params) (any, error) {
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
	g1, g2 := groups[0], groups[1]

	results := make(map[string]IndependentTTestResult, len(p.TestVars))
	for _, name := range p.TestVars {
		col, err := floats(f, name)
		if err != nil {
			results[name] = IndependentTTestResult{Error: err.Error()}
			continue
		}
		d1, d2 := pick(col, g1.rows), pick(col, g2.rows)
		if len(d1) < 2 || len(d2) < 2 {
			results[name] = IndependentTTestResult{Error: "Insufficient data"}
			continue
		}
		lw, lp := Levene(d1, d2)
		equalVar := lp > alpha
		t, df, sig := TwoSampleT(d1, d2, equalVar)
		m1, m2 := mean(d1), mean(d2)
		lev := newTestStat(lw, lp)
		results[name] = IndependentTTestResult{
			Label:         ds.Label(name),
			Levene:        &lev,
			EqualVariance: equalVar,
			TStat:         t,
			DF:            df,
			Sig:           sig,
			SigText:       SigText(sig),
			MeanDiff:      m1 - m2,
			CohenD: dist.EffectSizeCohenD(m1, m2, math.Sqrt(variance(d1)), math.Sqrt(variance(d2)),
				len(d1), len(d2)),
			GroupStats: map[string]GroupStat{
				g1.key.String(): {Mean: m1, N: len(d1)},
				g2.key.String(): {Mean: m2, N: len(d2)},
			},
		}
	}
	return results, nil
}

// PairedTTest runs a dependent-samples t test for each (var1[i], var2[i]).
func PairedTTest(ds *dataset.Dataset, params Params) (any, error) {
	var p pairedParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	results := make([]PairedResult, 0, len(p.Var1))
	for _, pair := range p.pairs() {
		results = append(results, pairedTTest(ds, pair[0], pair[1]))
	}
	return results, nil
}

func pairedTTest(ds *dataset.Dataset, v1, v2 string) PairedResult {
	res := PairedResult{Pair: ds.Label(v1) + " - " + ds.Label(v2)}
	x, y, err := pairedColumns(ds, v1, v2)
	if err != nil {
		res.Pair = v1 + " - " + v2
		res.Error = err.Error()
		return res
	}
	n := len(x)
	if n < 2 {
		res.Error = "Insufficient data"
		return res
	}
	d := make([]float64, n)
	for i := range x {
		d[i] = x[i] - y[i]
	}
	se := math.Sqrt(variance(d) / float64(n))
	if se == 0 {
		res.Error = "differences have zero variance"
		return res
	}
	t := mean(d) / se
	df := float64(n - 1)
	sig := dist.TTestPValue(t, df)
	diff := mean(x) - mean(y)
	corr := pearson(x, y)
	res.TStat, res.DF, res.Sig, res.MeanDiff, res.Corr = &t, &df, &sig, &diff, &corr
	res.SigText = SigText(sig)
	return res
}

// pairedColumns returns complete numeric pairs of two variables.
func pairedColumns(ds *dataset.Dataset, v1, v2 string) (x, y []float64, err error) {
	f, err := ds.Frame([]string{v1, v2}, true)
	if err != nil {
		return nil, nil, err
	}
	if x, err = numericColumn(f, v1); err != nil {
		return nil, nil, err
	}
	if v1 == v2 {
		return x, append([]float64(nil), x...), nil
	}
	if y, err = numericColumn(f, v2); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
