package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Studentized range distribution by Gauss-Legendre quadrature (Copenhaver
// and Holland, AS 190).

var (
	legendre12Nodes = [6]float64{
		0.981560634246719250690549090149,
		0.904117256370474856678465866119,
		0.769902674194304687036893833213,
		0.587317954286617447296702418941,
		0.367831498998180193752691536644,
		0.125233408511468915472441369464,
	}
	legendre12Weights = [6]float64{
		0.047175336386511827194615961485,
		0.106939325995318430960254718194,
		0.160078328543346226334652529543,
		0.203167426723065921749064455810,
		0.233492536538354808760849898925,
		0.249147045813402785000562436043,
	}
	legendre16Nodes = [8]float64{
		0.989400934991649932596154173450,
		0.944575023073232576077988415535,
		0.865631202387831743880467897712,
		0.755404408355003033895101194847,
		0.617876244402643748446671764049,
		0.458016777657227386342419442984,
		0.281603550779258913230460501460,
		0.950125098376374401853193354250e-1,
	}
	legendre16Weights = [8]float64{
		0.271524594117540948517805724560e-1,
		0.622535239386478928628438369944e-1,
		0.951585116824927848099251076022e-1,
		0.124628971255533872052476282192,
		0.149595988816576732081501730547,
		0.169156519395002538189312079030,
		0.182603415044923588866763667969,
		0.189450610455068496285396723208,
	}
)

// rangeProbability is P(range of cc unit normals < w), raised to the rr-th
// power for rr independent ranges.
func rangeProbability(w, rr, cc float64) float64 {
	const (
		c1     = -30.0
		c2     = -50.0
		c3     = 60.0
		bb     = 8.0
		wlar   = 3.0
		wincr1 = 2.0
		wincr2 = 3.0
	)
	qsqz := w * 0.5
	if qsqz >= bb {
		return 1
	}

	prW := 2*distuv.UnitNormal.CDF(qsqz) - 1
	if prW >= math.Exp(c2/cc) {
		prW = math.Pow(prW, cc)
	} else {
		prW = 0
	}

	wincr := wincr2
	if w > wlar {
		wincr = wincr1
	}

	blb := qsqz
	binc := (bb - qsqz) / wincr
	bub := blb + binc
	einsum := 0.0
	cc1 := cc - 1

	for wi := 1.0; wi <= wincr; wi++ {
		elsum := 0.0
		a := 0.5 * (bub + blb)
		b := 0.5 * (bub - blb)

		for jj := 1; jj <= 12; jj++ {
			var j int
			var xx float64
			if jj > 6 {
				j = 12 - jj + 1
				xx = legendre12Nodes[j-1]
			} else {
				j = jj
				xx = -legendre12Nodes[j-1]
			}
			ac := a + b*xx
			qexpo := ac * ac
			if qexpo > c3 {
				break
			}
			pplus := 2 * distuv.UnitNormal.CDF(ac)
			pminus := 2 * distuv.UnitNormal.CDF(ac-w)
			rinsum := pplus*0.5 - pminus*0.5
			if rinsum >= math.Exp(c1/cc1) {
				elsum += legendre12Weights[j-1] * math.Exp(-0.5*qexpo) * math.Pow(rinsum, cc1)
			}
		}
		elsum *= 2 * b * cc / math.Sqrt(2*math.Pi)
		einsum += elsum
		blb = bub
		bub += binc
	}

	prW += einsum
	if prW <= math.Exp(c1/rr) {
		return 0
	}
	prW = math.Pow(prW, rr)
	if prW >= 1 {
		return 1
	}
	return prW
}

// StudentizedRangeCDF is P(Q < q) for k groups and df error degrees of
// freedom.
func StudentizedRangeCDF(q, k, df float64) float64 {
	const (
		eps1  = -30.0
		eps2  = 1.0e-14
		dhaf  = 100.0
		dquar = 800.0
		deigh = 5000.0
		dlarg = 25000.0
	)
	const rr = 1.0
	if q <= 0 {
		return 0
	}
	if df < 2 || k < 2 {
		return math.NaN()
	}
	if math.IsInf(q, 1) {
		return 1
	}
	if df > dlarg {
		return rangeProbability(q, rr, k)
	}

	f2 := df * 0.5
	lg, _ := math.Lgamma(f2)
	f2lf := f2*math.Log(df) - df*math.Ln2 - lg
	f21 := f2 - 1
	ff4 := df * 0.25

	var ulen float64
	switch {
	case df <= dhaf:
		ulen = 1
	case df <= dquar:
		ulen = 0.5
	case df <= deigh:
		ulen = 0.25
	default:
		ulen = 0.125
	}
	f2lf += math.Log(ulen)

	ans := 0.0
	for i := 1; i <= 50; i++ {
		otsum := 0.0
		twa1 := float64(2*i-1) * ulen

		for jj := 1; jj <= 16; jj++ {
			var j int
			var t1 float64
			if jj > 8 {
				j = jj - 8 - 1
				t1 = f2lf + f21*math.Log(twa1+legendre16Nodes[j]*ulen) - (legendre16Nodes[j]*ulen+twa1)*ff4
			} else {
				j = jj - 1
				t1 = f2lf + f21*math.Log(twa1-legendre16Nodes[j]*ulen) + (legendre16Nodes[j]*ulen-twa1)*ff4
			}
			if t1 < eps1 {
				continue
			}
			var qsqz float64
			if jj > 8 {
				qsqz = q * math.Sqrt((legendre16Nodes[j]*ulen+twa1)*0.5)
			} else {
				qsqz = q * math.Sqrt((-(legendre16Nodes[j] * ulen) + twa1) * 0.5)
			}
			otsum += rangeProbability(qsqz, rr, k) * legendre16Weights[j] * math.Exp(t1)
		}

		if float64(i)*ulen >= 1 && otsum <= eps2 {
			break
		}
		ans += otsum
	}
	return math.Min(ans, 1)
}

// TukeyPValue is the upper tail of the studentized range.
func TukeyPValue(q, k, df float64) float64 {
	p := 1 - StudentizedRangeCDF(q, k, df)
	if p < 0 {
		return 0
	}
	return p
}
