package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"onthesis/domain/dataset"
)

// TestStat is a statistic with its p-value.
type TestStat struct {
	Stat    float64 `json:"stat"`
	Sig     float64 `json:"sig"`
	SigText string  `json:"sig_text"`
}

func newTestStat(stat, p float64) TestStat {
	return TestStat{Stat: stat, Sig: p, SigText: SigText(p)}
}

// NormalityResult is one variable's normality verdict.
type NormalityResult struct {
	Variable string    `json:"variable,omitempty"`
	Label    string    `json:"label,omitempty"`
	N        int       `json:"n,omitempty"`
	Shapiro  *TestStat `json:"shapiro,omitempty"`
	KS       *TestStat `json:"ks,omitempty"`
	Normal   *bool     `json:"normal,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Normality runs Shapiro-Wilk (the verdict) and a one-sample KS test on
// the standardized values of each variable.
func Normality(ds *dataset.Dataset, params Params) (any, error) {
	var p variablesParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	f, err := ds.Frame(p.Variables, true)
	if err != nil {
		return nil, err
	}

	results := make([]NormalityResult, 0, len(p.Variables))
	for _, name := range p.Variables {
		lbl := ds.Label(name)
		xs, err := numericColumn(f, name)
		if err != nil {
			results = append(results, NormalityResult{Variable: lbl, Error: err.Error()})
			continue
		}
		if len(xs) < 3 {
			results = append(results, NormalityResult{Variable: lbl, Error: "N < 3"})
			continue
		}
		w, sp, err := ShapiroWilk(xs)
		if err != nil {
			results = append(results, NormalityResult{Variable: lbl, Error: err.Error()})
			continue
		}
		d, kp := KolmogorovSmirnovNormal(xs)
		normal := sp > alpha
		sh, ks := newTestStat(w, sp), newTestStat(d, kp)
		results = append(results, NormalityResult{
			Label:   lbl,
			N:       len(xs),
			Shapiro: &sh,
			KS:      &ks,
			Normal:  &normal,
		})
	}
	return results, nil
}

var errZeroRange = errors.New("all values are identical")

// Shapiro-Wilk polynomial coefficients (Royston 1995, AS R94).
var (
	swG  = []float64{-2.273, 0.459}
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
)

func poly(cc []float64, x float64) float64 {
	ret := cc[0]
	if n := len(cc); n > 1 {
		p := x * cc[n-1]
		for j := n - 2; j > 0; j-- {
			p = (p + cc[j]) * x
		}
		ret += p
	}
	return ret
}

// ShapiroWilk returns W and its p-value for 3 <= n <= 5000 values.
func ShapiroWilk(values []float64) (w, p float64, err error) {
	const small = 1e-19
	x := sortedCopy(values)
	n := len(x)
	if n < 3 {
		return math.NaN(), math.NaN(), errors.New("N < 3")
	}
	an := float64(n)
	nn2 := n / 2
	a := make([]float64, nn2+1) // 1-based

	if n == 3 {
		a[1] = math.Sqrt(0.5)
	} else {
		an25 := an + 0.25
		var summ2 float64
		for i := 1; i <= nn2; i++ {
			a[i] = distuv.UnitNormal.Quantile((float64(i) - 0.375) / an25)
			summ2 += a[i] * a[i]
		}
		summ2 *= 2
		ssumm2 := math.Sqrt(summ2)
		rsn := 1 / math.Sqrt(an)
		a1 := poly(swC1, rsn) - a[1]/ssumm2

		var i1 int
		var fac float64
		if n > 5 {
			i1 = 3
			a2 := -a[2]/ssumm2 + poly(swC2, rsn)
			fac = math.Sqrt((summ2 - 2*(a[1]*a[1]) - 2*(a[2]*a[2])) /
				(1 - 2*(a1*a1) - 2*(a2*a2)))
			a[2] = a2
		} else {
			i1 = 2
			fac = math.Sqrt((summ2 - 2*(a[1]*a[1])) / (1 - 2*(a1*a1)))
		}
		a[1] = a1
		for i := i1; i <= nn2; i++ {
			a[i] /= -fac
		}
	}

	rng := x[n-1] - x[0]
	if rng < small {
		return math.NaN(), math.NaN(), errZeroRange
	}

	xx := x[0] / rng
	sx := xx
	sa := -a[1]
	for i, j := 1, n-1; i < n; j-- {
		xi := x[i] / rng
		sx += xi
		i++
		if i != j {
			sa += float64(sign(i-j)) * a[min(i, j)]
		}
	}

	sa /= an
	sx /= an
	var ssa, ssx, sax float64
	for i, j := 0, n-1; i < n; i, j = i+1, j-1 {
		var asa float64
		if i != j {
			asa = float64(sign(i-j))*a[1+min(i, j)] - sa
		} else {
			asa = -sa
		}
		xsx := x[i]/rng - sx
		ssa += asa * asa
		ssx += xsx * xsx
		sax += asa * xsx
	}

	ssassx := math.Sqrt(ssa * ssx)
	w1 := (ssassx - sax) * (ssassx + sax) / (ssa * ssx)
	w = 1 - w1

	if n == 3 {
		const pi6, stqr = 6 / math.Pi, math.Pi / 3
		p = pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return w, math.Max(p, 0), nil
	}

	y := math.Log(w1)
	lxx := math.Log(an)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return w, 1e-99, nil
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		m = poly(swC5, lxx)
		s = math.Exp(poly(swC6, lxx))
	}
	return w, distuv.Normal{Mu: m, Sigma: s}.Survival(y), nil
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// KolmogorovSmirnovNormal tests the standardized sample against N(0, 1).
func KolmogorovSmirnovNormal(values []float64) (d, p float64) {
	n := len(values)
	sd := math.Sqrt(variance(values))
	if n < 2 || sd == 0 || math.IsNaN(sd) {
		return math.NaN(), math.NaN()
	}
	m := mean(values)
	z := make([]float64, n)
	for i, v := range values {
		z[i] = (v - m) / sd
	}
	z = sortedCopy(z)
	nf := float64(n)
	for i, v := range z {
		cdf := distuv.UnitNormal.CDF(v)
		d = math.Max(d, math.Max(float64(i+1)/nf-cdf, cdf-float64(i)/nf))
	}
	return d, dist.KolmogorovPValue(d, n)
}
