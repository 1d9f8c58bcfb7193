package dataset

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

const (
	outlierZ          = 3.0
	outlierMinSamples = 10
	lowMissingPct     = 5.0
)

// QualityReport is the dataset-level diagnostic produced by ScanDataQuality.
type QualityReport struct {
	TotalRows  int             `json:"total_rows"`
	TotalCols  int             `json:"total_cols"`
	Duplicates int             `json:"duplicates"`
	Columns    []ColumnQuality `json:"columns"`
}

// ColumnQuality describes one column.
type ColumnQuality struct {
	Name            string   `json:"name"`
	Type            VarType  `json:"type"`
	Missing         int      `json:"missing"`
	MissingPct      float64  `json:"missing_pct"`
	Unique          int      `json:"unique"`
	Outliers        int      `json:"outliers"`
	Recommendations []string `json:"recommendations"`
}

// ScanDataQuality reports missing values, distinct counts, z-score
// outliers and duplicate rows.
func (d *Dataset) ScanDataQuality() QualityReport {
	t := d.table
	report := QualityReport{
		TotalRows:  t.NumRows(),
		TotalCols:  t.NumCols(),
		Duplicates: t.duplicateCount(t.allIndexes()),
		Columns:    make([]ColumnQuality, 0, t.NumCols()),
	}

	for i, name := range t.columns {
		cq := ColumnQuality{
			Name:            name,
			Type:            d.meta[name].Type,
			Recommendations: []string{},
		}
		distinct := make(map[string]struct{})
		for _, row := range t.rows {
			v := row[i]
			if v.IsMissing() {
				cq.Missing++
				continue
			}
			distinct[v.key()] = struct{}{}
		}
		cq.Unique = len(distinct)
		if report.TotalRows > 0 {
			cq.MissingPct = math.Round(float64(cq.Missing)/float64(report.TotalRows)*1000) / 10
		}
		if columnIsNumeric(t.rows, i) {
			cq.Outliers = countOutliers(d.numbers(i))
		}

		if cq.Missing > 0 {
			if cq.MissingPct < lowMissingPct {
				cq.Recommendations = append(cq.Recommendations, "Impute missing values (mean, median or mode).")
			} else {
				cq.Recommendations = append(cq.Recommendations, "Drop rows or impute missing values.")
			}
		}
		if cq.Outliers > 0 {
			cq.Recommendations = append(cq.Recommendations, fmt.Sprintf("%d outliers detected.", cq.Outliers))
		}
		report.Columns = append(report.Columns, cq)
	}
	return report
}

// countOutliers counts values with |z| > 3 using the sample standard deviation.
func countOutliers(values []float64) int {
	if len(values) < outlierMinSamples {
		return 0
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return 0
	}
	n := 0
	for _, v := range values {
		if math.Abs((v-mean)/sd) > outlierZ {
			n++
		}
	}
	return n
}
