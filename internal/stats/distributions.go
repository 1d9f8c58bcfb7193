package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the reference distributions
// used for p-values and critical values.
type Distributions struct{}

var dist Distributions

// TTestPValue computes the two-tailed p-value of a t statistic. Fractional
// degrees of freedom are allowed for the Welch correction.
func (Distributions) TTestPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return math.NaN()
	}
	return 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
}

// TCritical returns the two-tailed critical t value at alpha.
func (Distributions) TCritical(alpha, df float64) float64 {
	if df <= 0 {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - alpha/2)
}

// CorrelationPValue computes the p-value of a correlation coefficient via
// the t transform.
func (d Distributions) CorrelationPValue(r float64, n int) float64 {
	if n < 3 || math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	return d.TTestPValue(r*math.Sqrt(df/(1-r*r)), df)
}

// FTestPValue computes the upper-tail p-value of an F statistic.
func (Distributions) FTestPValue(f, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(f) {
		return math.NaN()
	}
	return distuv.F{D1: df1, D2: df2}.Survival(f)
}

// ChiSquarePValue computes the upper-tail p-value of a chi-square statistic.
func (Distributions) ChiSquarePValue(chi2, df float64) float64 {
	if df <= 0 || math.IsNaN(chi2) {
		return math.NaN()
	}
	return distuv.ChiSquared{K: df}.Survival(chi2)
}

// NormalTwoTailed returns 2·P(Z > |z|).
func (Distributions) NormalTwoTailed(z float64) float64 {
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// MannWhitneyPValue computes the two-sided p-value for U (the statistic of
// the first sample). Small samples without ties use the exact null
// distribution; otherwise the normal approximation with tie and continuity
// corrections.
func (d Distributions) MannWhitneyPValue(u float64, n1, n2 int, tieTerm float64) float64 {
	if n1 <= 0 || n2 <= 0 {
		return math.NaN()
	}
	prod := float64(n1 * n2)
	uMax := math.Max(u, prod-u)
	if (n1 < 8 || n2 < 8) && tieTerm == 0 {
		return math.Min(1, 2*mannWhitneyExactSF(int(math.Round(uMax)), n1, n2))
	}
	n := float64(n1 + n2)
	sd := math.Sqrt(prod / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if sd == 0 {
		return math.NaN()
	}
	z := (uMax - prod/2 - 0.5) / sd
	return math.Min(1, 2*distuv.UnitNormal.Survival(z))
}

// mannWhitneyExactSF returns P(U >= k) under the null.
func mannWhitneyExactSF(k, n1, n2 int) float64 {
	maxU := n1 * n2
	if k <= 0 {
		return 1
	}
	if k > maxU {
		return 0
	}
	// prev[m][u] counts orderings of m first-sample values and j second-sample
	// values with statistic u, built one second-sample value at a time.
	prev := make([][]float64, n1+1)
	for m := 0; m <= n1; m++ {
		prev[m] = make([]float64, maxU+1)
		prev[m][0] = 1
	}
	for j := 1; j <= n2; j++ {
		cur := make([][]float64, n1+1)
		for m := 0; m <= n1; m++ {
			cur[m] = make([]float64, maxU+1)
			for u := 0; u <= maxU; u++ {
				c := prev[m][u]
				if m > 0 && u-j >= 0 {
					c += cur[m-1][u-j]
				}
				cur[m][u] = c
			}
		}
		prev = cur
	}
	var total, tail float64
	for u, c := range prev[n1] {
		total += c
		if u >= k {
			tail += c
		}
	}
	return tail / total
}

// KruskalWallisPValue uses the chi-square approximation with k-1 df.
func (d Distributions) KruskalWallisPValue(h float64, k int) float64 {
	if k < 2 {
		return math.NaN()
	}
	return d.ChiSquarePValue(h, float64(k-1))
}

// WilcoxonSignedRankPValue computes the two-sided p-value for the signed
// rank statistic. Samples of at most 50 without ties use the exact
// distribution; others the normal approximation with tie correction.
func (d Distributions) WilcoxonSignedRankPValue(t float64, n int, tieTerm float64) float64 {
	if n <= 0 {
		return math.NaN()
	}
	if n <= 50 && tieTerm == 0 {
		return wilcoxonSignedRankExactTwoSided(t, n)
	}
	nf := float64(n)
	mean := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - tieTerm/48
	if variance <= 0 {
		return math.NaN()
	}
	return d.NormalTwoTailed((t - mean) / math.Sqrt(variance))
}

func wilcoxonSignedRankExactTwoSided(t float64, n int) float64 {
	wObs := int(math.Round(t))
	if wObs < 0 {
		wObs = 0
	}

	totalRankSum := n * (n + 1) / 2
	if wObs > totalRankSum {
		wObs = totalRankSum
	}

	// Two-sided p-value uses symmetry: P(W+ <= w) where w = min(W+, total-W+), then *2.
	w := wObs
	if totalRankSum-wObs < w {
		w = totalRankSum - wObs
	}

	// dp[s] = number of sign assignments producing W+ = s.
	dp := make([]float64, totalRankSum+1)
	dp[0] = 1
	for r := 1; r <= n; r++ {
		for s := totalRankSum; s >= r; s-- {
			dp[s] += dp[s-r]
		}
	}

	totalOutcomes := math.Ldexp(1, n)
	var cum float64
	for s := 0; s <= w; s++ {
		cum += dp[s]
	}
	return math.Min(1, 2*cum/totalOutcomes)
}

// EffectSizeCohenD computes Cohen's d for two groups with pooled SD.
func (Distributions) EffectSizeCohenD(mean1, mean2, std1, std2 float64, n1, n2 int) float64 {
	if n1+n2 <= 2 {
		return math.NaN()
	}
	pooled := math.Sqrt((float64(n1-1)*std1*std1 + float64(n2-1)*std2*std2) / float64(n1+n2-2))
	if pooled == 0 {
		return math.NaN()
	}
	return (mean1 - mean2) / pooled
}

// EffectSizeHedgesG applies the small-sample bias correction to d.
func (Distributions) EffectSizeHedgesG(cohenD float64, totalN int) float64 {
	if totalN < 3 {
		return cohenD
	}
	return cohenD * (1.0 - 3.0/(4.0*float64(totalN)-9.0))
}

// KolmogorovPValue returns the asymptotic two-sided p-value for the
// one-sample statistic D with Stephens' small-sample adjustment.
func (Distributions) KolmogorovPValue(d float64, n int) float64 {
	if n <= 0 || math.IsNaN(d) {
		return math.NaN()
	}
	sn := math.Sqrt(float64(n))
	return kolmogorovQ((sn + 0.12 + 0.11/sn) * d)
}

// kolmogorovQ is the Kolmogorov survival function Q(λ).
func kolmogorovQ(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	if lambda < 1.18 {
		y := math.Exp(-math.Pi * math.Pi / (8 * lambda * lambda))
		var sum float64
		for j := 1; j <= 9; j += 2 {
			sum += math.Pow(y, float64(j*j))
		}
		return math.Max(0, math.Min(1, 1-math.Sqrt(2*math.Pi)/lambda*sum))
	}
	x := math.Exp(-2 * lambda * lambda)
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Pow(x, float64(j*j))
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return math.Max(0, math.Min(1, 2*sum))
}
