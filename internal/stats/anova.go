package stats

import (
	"math"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// AnovaRow is one source line of the ANOVA table.
type AnovaRow struct {
	Source string   `json:"Source"`
	SS     float64  `json:"SS"`
	DF     int      `json:"DF"`
	MS     float64  `json:"MS"`
	F      *float64 `json:"F,omitempty"`
	PUnc   *float64 `json:"p-unc,omitempty"`
	NP2    *float64 `json:"np2,omitempty"`
}

// GroupDescriptive summarises the dependent variable within one level.
type GroupDescriptive struct {
	Level dataset.Value `json:"level"`
	Count int           `json:"count"`
	Mean  float64       `json:"mean"`
	Std   float64       `json:"std"`
	Min   float64       `json:"min"`
	Q25   float64       `json:"25%"`
	Q50   float64       `json:"50%"`
	Q75   float64       `json:"75%"`
	Max   float64       `json:"max"`
}

// TukeyComparison is one pairwise post-hoc comparison.
type TukeyComparison struct {
	A      dataset.Value `json:"A"`
	B      dataset.Value `json:"B"`
	MeanA  float64       `json:"mean(A)"`
	MeanB  float64       `json:"mean(B)"`
	Diff   float64       `json:"diff"`
	SE     float64       `json:"se"`
	T      float64       `json:"T"`
	PTukey float64       `json:"p-tukey"`
	Hedges float64       `json:"hedges"`
}

// AnovaResult is the output for one dependent variable.
type AnovaResult struct {
	Label        string             `json:"label,omitempty"`
	Factor       string             `json:"factor,omitempty"`
	AnovaTable   []AnovaRow         `json:"anova_table,omitempty"`
	Descriptives []GroupDescriptive `json:"descriptives,omitempty"`
	Posthoc      []TukeyComparison  `json:"posthoc"`
	Sig          *float64           `json:"sig,omitempty"`
	SigText      string             `json:"sig_text,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// OneWayAnova runs a between-subjects ANOVA per dependent variable, with
// Tukey HSD comparisons when the omnibus test is significant.
func OneWayAnova(ds *dataset.Dataset, params Params) (any, error) {
	var p anovaParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	if _, err := ds.Frame([]string{p.Factor}, false); err != nil {
		return nil, err
	}
	results := make(map[string]AnovaResult, len(p.DependentList))
	for _, dv := range p.DependentList {
		res, err := anovaFor(ds, dv, p.Factor)
		if err != nil {
			results[dv] = AnovaResult{Error: err.Error(), Posthoc: []TukeyComparison{}}
			continue
		}
		results[dv] = res
	}
	return results, nil
}

func anovaFor(ds *dataset.Dataset, dv, factor string) (AnovaResult, error) {
	f, err := ds.Frame([]string{dv, factor}, true)
	if err != nil {
		return AnovaResult{}, err
	}
	col, err := floats(f, dv)
	if err != nil {
		return AnovaResult{}, err
	}
	levels := groupRows(f, factor, true)
	k := len(levels)
	if k < 2 {
		return AnovaResult{}, apperrors.Validationf("factor %q needs at least 2 levels, found %d", factor, k)
	}

	samples := make([][]float64, k)
	var all []float64
	for i, g := range levels {
		samples[i] = pick(col, g.rows)
		all = append(all, samples[i]...)
	}
	n := len(all)
	if n <= k {
		return AnovaResult{}, apperrors.Computationf("not enough observations for %d groups", k)
	}

	grand := mean(all)
	var ssb, ssw float64
	for _, s := range samples {
		m := mean(s)
		ssb += float64(len(s)) * (m - grand) * (m - grand)
		for _, v := range s {
			ssw += (v - m) * (v - m)
		}
	}
	dfb, dfw := k-1, n-k
	msb, msw := ssb/float64(dfb), ssw/float64(dfw)
	fval := msb / msw
	if msw == 0 {
		fval = math.NaN()
	}
	pval := dist.FTestPValue(fval, float64(dfb), float64(dfw))
	np2 := ssb / (ssb + ssw)

	res := AnovaResult{
		Label:  ds.Label(dv),
		Factor: factor,
		AnovaTable: []AnovaRow{
			{Source: factor, SS: ssb, DF: dfb, MS: msb, F: &fval, PUnc: &pval, NP2: &np2},
			{Source: "Within", SS: ssw, DF: dfw, MS: msw},
		},
		Posthoc: []TukeyComparison{},
		Sig:     &pval,
		SigText: SigText(pval),
	}
	for i, g := range levels {
		res.Descriptives = append(res.Descriptives, describeGroup(g.key, samples[i]))
	}
	if pval < alpha {
		res.Posthoc = tukeyHSD(levels, samples, msw, dfw)
	}
	return res, nil
}

func describeGroup(level dataset.Value, xs []float64) GroupDescriptive {
	s := sortedCopy(xs)
	return GroupDescriptive{
		Level: level,
		Count: len(xs),
		Mean:  mean(xs),
		Std:   math.Sqrt(variance(xs)),
		Min:   quantile(s, 0),
		Q25:   quantile(s, 0.25),
		Q50:   quantile(s, 0.5),
		Q75:   quantile(s, 0.75),
		Max:   quantile(s, 1),
	}
}

// tukeyHSD compares every pair of levels with the Tukey-Kramer statistic.
func tukeyHSD(levels []group, samples [][]float64, mse float64, dfw int) []TukeyComparison {
	k := float64(len(levels))
	var out []TukeyComparison
	for i := 0; i < len(levels); i++ {
		for j := i + 1; j < len(levels); j++ {
			a, b := samples[i], samples[j]
			ma, mb := mean(a), mean(b)
			se := math.Sqrt(mse * (1/float64(len(a)) + 1/float64(len(b))))
			t := (ma - mb) / se
			d := dist.EffectSizeCohenD(ma, mb, math.Sqrt(variance(a)), math.Sqrt(variance(b)), len(a), len(b))
			out = append(out, TukeyComparison{
				A:      levels[i].key,
				B:      levels[j].key,
				MeanA:  ma,
				MeanB:  mb,
				Diff:   ma - mb,
				SE:     se,
				T:      t,
				PTukey: TukeyPValue(math.Sqrt2*math.Abs(t), k, float64(dfw)),
				Hedges: dist.EffectSizeHedgesG(d, len(a)+len(b)),
			})
		}
	}
	return out
}
