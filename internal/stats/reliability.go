package stats

import (
	"math"

	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
)

// ItemReliability is one item of a reliability analysis.
type ItemReliability struct {
	Item           string  `json:"item"`
	CITC           float64 `json:"citc"`
	AlphaIfDeleted float64 `json:"alpha_if_deleted"`
}

// ReliabilityResult is the output of reliability.
type ReliabilityResult struct {
	CronbachAlpha float64           `json:"cronbach_alpha"`
	NItems        int               `json:"n_items"`
	Items         []ItemReliability `json:"items"`
	Conclusion    string            `json:"conclusion"`
}

// ItemValidity is one item of a validity analysis.
type ItemValidity struct {
	Item    string  `json:"item"`
	RHitung float64 `json:"r_hitung"`
	RTabel  float64 `json:"r_tabel"`
	Sig     float64 `json:"sig"`
	SigText string  `json:"sig_text"`
	Valid   bool    `json:"valid"`
}

// ValidityResult is the output of validity.
type ValidityResult struct {
	RTabel float64        `json:"r_tabel"`
	Items  []ItemValidity `json:"items"`
}

// itemMatrix loads the complete rows of the item columns.
func itemMatrix(ds *dataset.Dataset, items []string) ([][]float64, error) {
	f, err := ds.Frame(items, true)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(items))
	for i, name := range items {
		if cols[i], err = numericColumn(f, name); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

func rowTotals(cols [][]float64) []float64 {
	if len(cols) == 0 {
		return nil
	}
	total := make([]float64, len(cols[0]))
	for _, c := range cols {
		for r, v := range c {
			total[r] += v
		}
	}
	return total
}

// CronbachAlpha is k/(k-1)·(1 - Σσ²ᵢ/σ²ₜ) with sample variances.
func CronbachAlpha(cols [][]float64) float64 {
	k := float64(len(cols))
	if k < 2 {
		return math.NaN()
	}
	var itemVar float64
	for _, c := range cols {
		itemVar += variance(c)
	}
	totalVar := variance(rowTotals(cols))
	if totalVar == 0 || math.IsNaN(totalVar) {
		return math.NaN()
	}
	return k / (k - 1) * (1 - itemVar/totalVar)
}

// Reliability reports Cronbach's alpha with corrected item-total
// correlations and alpha-if-item-deleted.
func Reliability(ds *dataset.Dataset, params Params) (any, error) {
	var p itemsParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	cols, err := itemMatrix(ds, p.Items)
	if err != nil {
		return nil, err
	}
	if len(cols[0]) < 2 {
		return nil, apperrors.Computationf("reliability needs at least 2 complete rows")
	}
	alpha := CronbachAlpha(cols)
	total := rowTotals(cols)
	res := ReliabilityResult{CronbachAlpha: alpha, NItems: len(p.Items)}
	for i, name := range p.Items {
		rest := make([]float64, len(total))
		for r := range total {
			rest[r] = total[r] - cols[i][r]
		}
		others := make([][]float64, 0, len(cols)-1)
		others = append(others, cols[:i]...)
		others = append(others, cols[i+1:]...)
		res.Items = append(res.Items, ItemReliability{
			Item:           ds.Label(name),
			CITC:           pearson(cols[i], rest),
			AlphaIfDeleted: CronbachAlpha(others),
		})
	}
	res.Conclusion = "Not Reliable"
	if alpha > 0.6 {
		res.Conclusion = "Reliable"
	}
	return res, nil
}

// Validity correlates each item with the total score and compares r to
// the critical value at alpha 0.05 with n-2 degrees of freedom.
func Validity(ds *dataset.Dataset, params Params) (any, error) {
	var p itemsParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	cols, err := itemMatrix(ds, p.Items)
	if err != nil {
		return nil, err
	}
	n := len(cols[0])
	if n < 3 {
		return nil, apperrors.Computationf("validity needs at least 3 complete rows, found %d", n)
	}
	t := dist.TCritical(alpha, float64(n-2))
	rTabel := math.Sqrt(t * t / (float64(n-2) + t*t))
	total := rowTotals(cols)
	res := ValidityResult{RTabel: rTabel}
	for i, name := range p.Items {
		r := pearson(cols[i], total)
		sig := dist.CorrelationPValue(r, n)
		res.Items = append(res.Items, ItemValidity{
			Item:    ds.Label(name),
			RHitung: r,
			RTabel:  rTabel,
			Sig:     sig,
			SigText: SigText(sig),
			Valid:   r > rTabel,
		})
	}
	return res, nil
}
