package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"onthesis/domain/dataset"
)

// ScaleStats summarises a scale variable.
type ScaleStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// FrequencyRow is one value of a nominal frequency table.
type FrequencyRow struct {
	Value      dataset.Value `json:"value"`
	Label      string        `json:"label"`
	Freq       int           `json:"freq"`
	Percent    float64       `json:"percent"`
	CumPercent float64       `json:"cum_percent"`
}

// DescriptiveResult is the per-variable output of descriptive-analysis.
type DescriptiveResult struct {
	Label          string          `json:"label"`
	N              int             `json:"n"`
	Missing        int             `json:"missing"`
	Type           dataset.Measure `json:"type"`
	Stats          *ScaleStats     `json:"stats,omitempty"`
	FrequencyTable []FrequencyRow  `json:"frequency_table,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Descriptive reports scale statistics or a frequency table per variable,
// chosen by measurement level.
func Descriptive(ds *dataset.Dataset, params Params) (any, error) {
	var p variablesParams
	if err := decodeParams(params, &p, false); err != nil {
		return nil, err
	}
	f, err := ds.Frame(p.Variables, false)
	if err != nil {
		return nil, err
	}

	results := make(map[string]DescriptiveResult, len(p.Variables))
	for _, name := range p.Variables {
		meta, _ := ds.Variable(name)
		measure := meta.Measure
		if measure == "" {
			measure = dataset.MeasureScale
		}
		values := nonMissing(f.Values(name))
		res := DescriptiveResult{
			Label:   ds.Label(name),
			N:       len(values),
			Missing: f.Len() - len(values),
			Type:    measure,
		}
		switch {
		case len(values) == 0:
			res.Error = "No valid data."
		case measure == dataset.MeasureScale:
			xs, err := numericColumn(f, name)
			if err != nil {
				res.Error = err.Error()
				break
			}
			res.Stats = scaleStats(xs)
		default:
			res.FrequencyTable = frequencyTable(meta, values)
		}
		results[name] = res
	}
	return results, nil
}

func nonMissing(values []dataset.Value) []dataset.Value {
	out := make([]dataset.Value, 0, len(values))
	for _, v := range values {
		if !v.IsMissing() {
			out = append(out, v)
		}
	}
	return out
}

func scaleStats(xs []float64) *ScaleStats {
	s := &ScaleStats{
		Std:      math.NaN(),
		Skewness: math.NaN(),
		Kurtosis: math.NaN(),
	}
	s.Mean, _ = mstats.Mean(xs)
	s.Median, _ = mstats.Median(xs)
	s.Min, _ = mstats.Min(xs)
	s.Max, _ = mstats.Max(xs)
	if len(xs) >= 2 {
		s.Std, _ = mstats.StandardDeviationSample(xs)
	}
	if len(xs) >= 3 && s.Std > 0 {
		s.Skewness = stat.Skew(xs, nil)
	}
	if len(xs) >= 4 && s.Std > 0 {
		s.Kurtosis = stat.ExKurtosis(xs, nil)
	}
	return s
}

func frequencyTable(meta dataset.VariableMetadata, values []dataset.Value) []FrequencyRow {
	counts := map[string]*FrequencyRow{}
	var rows []*FrequencyRow
	for _, v := range values {
		k := v.String()
		if v.IsText() {
			k = "s:" + k
		}
		row, ok := counts[k]
		if !ok {
			row = &FrequencyRow{Value: v, Label: v.String()}
			if l, ok := meta.ValueLabel(v); ok {
				row.Label = l
			}
			counts[k] = row
			rows = append(rows, row)
		}
		row.Freq++
	}
	sort.Slice(rows, func(i, j int) bool { return dataset.Compare(rows[i].Value, rows[j].Value) < 0 })

	out := make([]FrequencyRow, len(rows))
	total := float64(len(values))
	var cum float64
	for i, r := range rows {
		r.Percent = float64(r.Freq) / total * 100
		cum += r.Percent
		r.CumPercent = cum
		out[i] = *r
	}
	return out
}
