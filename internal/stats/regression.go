package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// Coefficient is one row of the regression coefficient table. VIF holds a
// number, or "-" for the constant and single-predictor models.
type Coefficient struct {
	Variable string  `json:"variable"`
	B        float64 `json:"B"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	Sig      float64 `json:"sig"`
	SigText  string  `json:"sig_text"`
	VIF      any     `json:"vif"`
}

// AssumptionTest is a statistic with its pass/fail verdict.
type AssumptionTest struct {
	Stat    *float64 `json:"stat"`
	Sig     *float64 `json:"sig"`
	SigText string   `json:"sig_text,omitempty"`
	Pass    *bool    `json:"pass"`
}

// VIFEntry is one predictor's variance inflation factor.
type VIFEntry struct {
	Variable string  `json:"variable"`
	VIF      float64 `json:"vif"`
}

// RegressionAssumptions groups the classical OLS assumption checks.
type RegressionAssumptions struct {
	Normality struct {
		KS         AssumptionTest `json:"ks"`
		Shapiro    AssumptionTest `json:"shapiro"`
		Conclusion string         `json:"conclusion"`
	} `json:"normality"`
	Autocorrelation struct {
		DurbinWatson float64 `json:"durbin_watson"`
		Conclusion   string  `json:"conclusion"`
	} `json:"autocorrelation"`
	Heteroscedasticity struct {
		BreuschPagan struct {
			LM      float64 `json:"lm"`
			LMSig   float64 `json:"lm_sig"`
			FVal    float64 `json:"f_val"`
			Sig     float64 `json:"sig"`
			SigText string  `json:"sig_text"`
		} `json:"breusch_pagan"`
		Conclusion string `json:"conclusion"`
	} `json:"heteroscedasticity"`
	Multicollinearity struct {
		VIFData    []VIFEntry `json:"vif_data"`
		Conclusion string     `json:"conclusion"`
	} `json:"multicollinearity"`
}

// RegressionDiagnostics lists influential rows by Cook's distance.
type RegressionDiagnostics struct {
	OutliersDetected int   `json:"outliers_detected"`
	OutlierRows      []int `json:"outlier_rows"`
}

// RegressionResult is the output of linear-regression.
type RegressionResult struct {
	N            int                   `json:"n"`
	RSquare      float64               `json:"r_square"`
	AdjRSquare   float64               `json:"adj_r_square"`
	FVal         float64               `json:"f_val"`
	SigF         float64               `json:"sig_f"`
	SigFText     string                `json:"sig_f_text"`
	Coefficients []Coefficient         `json:"coefficients"`
	Assumptions  RegressionAssumptions `json:"assumptions"`
	Diagnostics  RegressionDiagnostics `json:"diagnostics"`
}

// olsFit is an ordinary least squares fit solved through the SVD
// pseudo-inverse, so rank-deficient designs still produce estimates.
type olsFit struct {
	n, p, rank int
	beta       []float64
	cov        *mat.Dense // unscaled (XᵀX)⁺
	resid      []float64
	leverage   []float64
	sse, sst   float64
}

func fitOLS(x *mat.Dense, y []float64) (*olsFit, error) {
	n, p := x.Dims()
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, apperrors.Computationf("regression design matrix could not be factorized")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := float64(max(n, p)) * s[0] * 2.220446049250313e-16
	rank := 0
	for _, sv := range s {
		if sv > tol {
			rank++
		}
	}

	fit := &olsFit{n: n, p: p, rank: rank, beta: make([]float64, p), resid: make([]float64, n), leverage: make([]float64, n)}
	uty := make([]float64, rank)
	for i := 0; i < rank; i++ {
		for r := 0; r < n; r++ {
			uty[i] += u.At(r, i) * y[r]
		}
	}
	for j := 0; j < p; j++ {
		for i := 0; i < rank; i++ {
			fit.beta[j] += v.At(j, i) / s[i] * uty[i]
		}
	}
	fit.cov = mat.NewDense(p, p, nil)
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			var c float64
			for i := 0; i < rank; i++ {
				c += v.At(a, i) * v.At(b, i) / (s[i] * s[i])
			}
			fit.cov.Set(a, b, c)
		}
	}

	ybar := mean(y)
	for r := 0; r < n; r++ {
		var yhat, h float64
		for j := 0; j < p; j++ {
			yhat += x.At(r, j) * fit.beta[j]
		}
		for i := 0; i < rank; i++ {
			h += u.At(r, i) * u.At(r, i)
		}
		fit.resid[r] = y[r] - yhat
		fit.leverage[r] = h
		fit.sse += fit.resid[r] * fit.resid[r]
		fit.sst += (y[r] - ybar) * (y[r] - ybar)
	}
	return fit, nil
}

func (f *olsFit) dfResid() int { return f.n - f.rank }
func (f *olsFit) dfModel() int { return f.rank - 1 }

func (f *olsFit) mse() float64 {
	if f.dfResid() <= 0 {
		return math.NaN()
	}
	return f.sse / float64(f.dfResid())
}

// rSquared is the centred R², so the design must contain a constant.
func (f *olsFit) rSquared() float64 {
	if f.sst == 0 {
		return math.NaN()
	}
	return 1 - f.sse/f.sst
}

func (f *olsFit) fTest() (fval, p float64) {
	dfm, dfr := f.dfModel(), f.dfResid()
	if dfm <= 0 || dfr <= 0 {
		return math.NaN(), math.NaN()
	}
	fval = ((f.sst - f.sse) / float64(dfm)) / f.mse()
	return fval, dist.FTestPValue(fval, float64(dfm), float64(dfr))
}

// designMatrix prepends a constant column to the predictors.
func designMatrix(cols [][]float64, n int) *mat.Dense {
	x := mat.NewDense(n, len(cols)+1, nil)
	for r := 0; r < n; r++ {
		x.Set(r, 0, 1)
		for j, c := range cols {
			x.Set(r, j+1, c[r])
		}
	}
	return x
}

// LinearRegression fits OLS with a constant and runs the classical
// assumption checks on the residuals.
func LinearRegression(ds *dataset.Dataset, params Params) (any, error) {
	var p regressionParams
	if err := decodeParams(params, &p, true); err != nil {
		return nil, err
	}
	f, err := ds.Frame(append([]string{p.Dependent}, p.Independents...), true)
	if err != nil {
		return nil, err
	}
	y, err := numericColumn(f, p.Dependent)
	if err != nil {
		return nil, err
	}
	n := len(y)
	if n == 0 || n < len(p.Independents)+2 {
		return nil, apperrors.Computationf("not enough data for regression: %d complete rows for %d predictors", n, len(p.Independents))
	}
	preds := make([][]float64, len(p.Independents))
	for i, name := range p.Independents {
		if preds[i], err = numericColumn(f, name); err != nil {
			return nil, err
		}
	}

	x := designMatrix(preds, n)
	fit, err := fitOLS(x, y)
	if err != nil {
		return nil, err
	}
	mse := fit.mse()
	fval, sigF := fit.fTest()
	r2 := fit.rSquared()
	res := &RegressionResult{
		N:          n,
		RSquare:    r2,
		AdjRSquare: math.NaN(),
		FVal:       fval,
		SigF:       sigF,
		SigFText:   SigText(sigF),
	}
	if fit.dfResid() > 0 {
		res.AdjRSquare = 1 - (1-r2)*float64(n-1)/float64(fit.dfResid())
	}

	vifs := make([]VIFEntry, 0, len(preds))
	if len(preds) > 1 {
		for i, name := range p.Independents {
			vifs = append(vifs, VIFEntry{Variable: name, VIF: varianceInflation(preds, i, n)})
		}
	}

	names := append([]string{"const"}, p.Independents...)
	for j, name := range names {
		se := math.Sqrt(fit.cov.At(j, j) * mse)
		t := fit.beta[j] / se
		sig := dist.TTestPValue(t, float64(fit.dfResid()))
		var vif any = "-"
		if j > 0 && len(vifs) > 0 {
			vif = vifs[j-1].VIF
		}
		res.Coefficients = append(res.Coefficients, Coefficient{
			Variable: name, B: fit.beta[j], StdErr: se, T: t, Sig: sig, SigText: SigText(sig), VIF: vif,
		})
	}

	checkResidualNormality(&res.Assumptions, fit.resid)
	dw := DurbinWatson(fit.resid)
	res.Assumptions.Autocorrelation.DurbinWatson = dw
	res.Assumptions.Autocorrelation.Conclusion = "Autocorrelation Present or Inconclusive"
	if dw > 1.5 && dw < 2.5 {
		res.Assumptions.Autocorrelation.Conclusion = "No Autocorrelation"
	}
	checkHeteroscedasticity(&res.Assumptions, x, fit.resid)
	res.Assumptions.Multicollinearity.VIFData = vifs
	res.Assumptions.Multicollinearity.Conclusion = "No Multicollinearity"
	for _, v := range vifs {
		if !(v.VIF < 10) {
			res.Assumptions.Multicollinearity.Conclusion = "Multicollinearity Present"
			break
		}
	}

	res.Diagnostics.OutlierRows = cooksOutliers(fit, mse)
	res.Diagnostics.OutliersDetected = len(res.Diagnostics.OutlierRows)
	return res, nil
}

// varianceInflation regresses predictor i on the others plus a constant.
func varianceInflation(preds [][]float64, i, n int) float64 {
	others := make([][]float64, 0, len(preds)-1)
	for j, c := range preds {
		if j != i {
			others = append(others, c)
		}
	}
	aux, err := fitOLS(designMatrix(others, n), preds[i])
	if err != nil {
		return math.NaN()
	}
	r2 := aux.rSquared()
	if r2 >= 1 {
		return math.Inf(1)
	}
	return 1 / (1 - r2)
}

func checkResidualNormality(a *RegressionAssumptions, resid []float64) {
	norm := &a.Normality
	d, kp := KolmogorovSmirnovNormal(resid)
	ksPass := kp > alpha
	norm.KS = AssumptionTest{Stat: &d, Sig: &kp, SigText: SigText(kp), Pass: &ksPass}
	if n := len(resid); n >= 3 && n < 5000 {
		if w, sp, err := ShapiroWilk(resid); err == nil {
			shPass := sp > alpha
			norm.Shapiro = AssumptionTest{Stat: &w, Sig: &sp, SigText: SigText(sp), Pass: &shPass}
		}
	}
	norm.Conclusion = "Not Normal"
	if ksPass {
		norm.Conclusion = "Normal"
	}
}

// DurbinWatson is Σ(eₜ - eₜ₋₁)² / Σeₜ².
func DurbinWatson(resid []float64) float64 {
	var num, den float64
	for i, e := range resid {
		den += e * e
		if i > 0 {
			d := e - resid[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// checkHeteroscedasticity runs the studentized (Koenker) Breusch-Pagan
// test: squared residuals regressed on the design.
func checkHeteroscedasticity(a *RegressionAssumptions, x *mat.Dense, resid []float64) {
	bp := &a.Heteroscedasticity.BreuschPagan
	e2 := make([]float64, len(resid))
	for i, e := range resid {
		e2[i] = e * e
	}
	bp.LM, bp.LMSig, bp.FVal, bp.Sig = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	aux, err := fitOLS(x, e2)
	if err == nil {
		r2 := aux.rSquared()
		_, p := x.Dims()
		bp.LM = float64(aux.n) * r2
		bp.LMSig = dist.ChiSquarePValue(bp.LM, float64(p-1))
		bp.FVal, bp.Sig = aux.fTest()
	}
	bp.SigText = SigText(bp.Sig)
	a.Heteroscedasticity.Conclusion = "Heteroscedasticity Present"
	if bp.Sig > alpha {
		a.Heteroscedasticity.Conclusion = "Homoscedastic"
	}
}

// cooksOutliers returns the row positions whose Cook's distance exceeds 4/n.
func cooksOutliers(fit *olsFit, mse float64) []int {
	out := []int{}
	cut := 4 / float64(fit.n)
	for r, e := range fit.resid {
		h := fit.leverage[r]
		if h >= 1 || mse == 0 || math.IsNaN(mse) {
			continue
		}
		d := e * e / (float64(fit.p) * mse) * h / ((1 - h) * (1 - h))
		if d > cut {
			out = append(out, r)
		}
	}
	return out
}
