package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributions_PValues(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
		tol  float64
	}{
		{"t two-tailed at 0", dist.TTestPValue(0, 10), 1, 1e-12},
		{"t two-tailed t=5 df=8", dist.TTestPValue(-5, 8), 0.001053, 1e-5},
		{"F(2,6) closed form", dist.FTestPValue(27, 2, 6), 0.001, 1e-9},
		{"chi2 df=2 closed form", dist.ChiSquarePValue(7.2, 2), math.Exp(-3.6), 1e-12},
		{"normal two-tailed 1.96", dist.NormalTwoTailed(1.96), 0.05, 1e-3},
		{"perfect correlation", dist.CorrelationPValue(1, 10), 0, 0},
		{"t critical df=3", dist.TCritical(0.05, 3), 3.182446, 1e-5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, tt.tol)
		})
	}
}

func TestDistributions_InvalidInputsAreNaN(t *testing.T) {
	assert.True(t, math.IsNaN(dist.TTestPValue(1, 0)))
	assert.True(t, math.IsNaN(dist.FTestPValue(math.NaN(), 1, 1)))
	assert.True(t, math.IsNaN(dist.ChiSquarePValue(1, 0)))
	assert.True(t, math.IsNaN(dist.CorrelationPValue(0.5, 2)))
	assert.True(t, math.IsNaN(dist.KruskalWallisPValue(1, 1)))
}

func TestMannWhitneyPValue_Exact(t *testing.T) {
	// Complete separation of 3 vs 3: one arrangement in C(6,3)=20.
	assert.InDelta(t, 0.1, dist.MannWhitneyPValue(0, 3, 3, 0), 1e-12)
	assert.InDelta(t, 0.1, dist.MannWhitneyPValue(9, 3, 3, 0), 1e-12)
	assert.InDelta(t, 1.0, dist.MannWhitneyPValue(4.5, 3, 3, 0), 1e-12)
}

func TestWilcoxonSignedRankPValue_Exact(t *testing.T) {
	// All five differences share a sign: 2 of 2^5 sign patterns are as extreme.
	assert.InDelta(t, 0.0625, dist.WilcoxonSignedRankPValue(0, 5, 0), 1e-12)
}

func TestStudentizedRange(t *testing.T) {
	tests := []struct {
		q, k, df float64
		want     float64
	}{
		{3.773, 3, 12, 0.95},
		{3.958, 4, 20, 0.95},
		{3.877, 3, 10, 0.95},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, StudentizedRangeCDF(tt.q, tt.k, tt.df), 2e-3, "q=%v k=%v df=%v", tt.q, tt.k, tt.df)
	}
	assert.Equal(t, 0.0, StudentizedRangeCDF(0, 3, 12))
	p := TukeyPValue(10, 3, 12)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.Less(t, p, 1e-3)
}

func TestShapiroWilk(t *testing.T) {
	w, p, err := ShapiroWilk([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.98676, w, 1e-4)
	assert.InDelta(t, 0.96717, p, 1e-3)

	w, p, err = ShapiroWilk([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-9)
	assert.InDelta(t, 1.0, p, 1e-9)

	_, _, err = ShapiroWilk([]float64{4, 4, 4, 4})
	assert.ErrorIs(t, err, errZeroRange)
}

func TestKendallTau(t *testing.T) {
	tau, p := KendallTau([]float64{1, 2, 3, 4, 5}, []float64{3, 1, 2, 5, 4})
	assert.InDelta(t, 0.4, tau, 1e-12)
	assert.Greater(t, p, 0.05)

	tau, _ = KendallTau([]float64{1, 2, 3}, []float64{3, 2, 1})
	assert.InDelta(t, -1.0, tau, 1e-12)
}

func TestRank_AveragesTies(t *testing.T) {
	ranks, ties := rank([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
	assert.Equal(t, []int{2}, ties)
	assert.Equal(t, 6.0, tieSum(ties))
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 1.75, quantile(s, 0.25))
	assert.Equal(t, 2.5, quantile(s, 0.5))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestSigText(t *testing.T) {
	assert.Equal(t, "< .001", SigText(0.0004))
	assert.Equal(t, "0.049", SigText(0.0491))
	assert.Equal(t, "NaN", SigText(math.NaN()))
}

func TestCorrelationStrength(t *testing.T) {
	tests := map[float64]string{
		0.1:   "Very Weak",
		-0.3:  "Weak",
		0.5:   "Moderate",
		-0.85: "Strong",
		0.95:  "Very Strong",
	}
	for r, want := range tests {
		assert.Equal(t, want, CorrelationStrength(r), "r=%v", r)
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(median(nil)))
}
