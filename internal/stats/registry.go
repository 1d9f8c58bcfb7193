package stats

import (
	"sort"

	"onthesis/domain/dataset"
)

// Procedure runs one statistical analysis on a dataset. The result is a
// JSON-shaped value; cleaning for transport happens at the caller.
type Procedure func(ds *dataset.Dataset, params Params) (any, error)

var procedures = map[string]Procedure{
	"descriptive-analysis": Descriptive,
	"normality":            Normality,
	"independent-ttest":    IndependentTTest,
	"paired-ttest":         PairedTTest,
	"oneway-anova":         OneWayAnova,
	"correlation-analysis": Correlation,
	"linear-regression":    LinearRegression,
	"mann-whitney":         MannWhitney,
	"kruskal-wallis":       KruskalWallis,
	"wilcoxon":             Wilcoxon,
	"reliability":          Reliability,
	"validity":             Validity,
	"chi-square":           ChiSquare,
}

// Registry returns a copy of the analysis table keyed by identifier.
func Registry() map[string]Procedure {
	out := make(map[string]Procedure, len(procedures))
	for k, v := range procedures {
		out[k] = v
	}
	return out
}

// Lookup finds the procedure for an analysis identifier.
func Lookup(analysisType string) (Procedure, bool) {
	p, ok := procedures[analysisType]
	return p, ok
}

// Names lists the supported identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(procedures))
	for k := range procedures {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
