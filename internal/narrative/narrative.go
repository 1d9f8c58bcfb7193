// Package narrative attaches a short plain-language summary to analysis
// results for downstream writing tools.
package narrative

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// Key is the result field that carries the summary.
	Key = "narrative_summary"

	Unavailable = "Narrative summary unavailable."
	Completed   = "Analysis completed."
)

var sigKeys = []string{"sig", "sig_2tailed", "p_value", "significance"}

// Enrich adds Key to result and returns it. It never fails: a malformed
// result yields the Unavailable text instead.
func Enrich(result map[string]any, analysisType string) (out map[string]any) {
	if result == nil {
		result = map[string]any{}
	}
	defer func() {
		if r := recover(); r != nil {
			result[Key] = Unavailable
			out = result
		}
	}()

	hints, err := hintsFor(result, analysisType)
	switch {
	case err != nil:
		result[Key] = Unavailable
	case len(hints) == 0:
		result[Key] = Completed
	default:
		result[Key] = strings.Join(hints, " ")
	}
	return result
}

func hintsFor(result map[string]any, analysisType string) ([]string, error) {
	var hints []string
	var err error
	switch analysisType {
	case "correlation-analysis":
		hints, err = correlationHints(result)
	case "oneway-anova", "kruskal-wallis":
		hints, err = groupDifferenceHints(result)
	case "descriptive-analysis":
		hints, err = descriptiveHints(result)
	case "linear-regression":
		hints, err = regressionHints(result)
	case "reliability":
		hints, err = reliabilityHints(result)
	}
	if err != nil || len(hints) > 0 {
		return hints, err
	}
	return genericHints(result)
}

func correlationHints(result map[string]any) ([]string, error) {
	matrix, ok := result["matrix"].(map[string]any)
	if !ok {
		return nil, nil
	}
	var maxR float64
	var pair string
	for _, v1 := range sortedKeys(matrix) {
		row, ok := matrix[v1].(map[string]any)
		if !ok {
			continue
		}
		for _, v2 := range sortedKeys(row) {
			if v1 == v2 {
				continue
			}
			cell, ok := row[v2].(map[string]any)
			if !ok {
				continue
			}
			r, present, err := toFloat(cell["r"])
			if err != nil {
				return nil, err
			}
			if present && math.Abs(r) > maxR {
				maxR, pair = math.Abs(r), v1+" & "+v2
			}
		}
	}
	if maxR == 0 {
		return nil, nil
	}
	strength := "moderate"
	switch {
	case maxR > 0.8:
		strength = "very strong"
	case maxR > 0.6:
		strength = "strong"
	}
	return []string{fmt.Sprintf("Strongest correlation: %s (r=%.3f, %s).", pair, maxR, strength)}, nil
}

func groupDifferenceHints(result map[string]any) ([]string, error) {
	var hints []string
	for _, dv := range sortedKeys(result) {
		entry, ok := result[dv].(map[string]any)
		if !ok {
			continue
		}
		sig, present, err := findSig(entry)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		status := "not significant"
		if sig < 0.05 {
			status = "significant"
		}
		hints = append(hints, fmt.Sprintf("Group difference on %s is %s (Sig=%.3f).", dv, status, sig))
	}
	return hints, nil
}

func descriptiveHints(result map[string]any) ([]string, error) {
	var top string
	topMean := math.Inf(-1)
	for _, name := range sortedKeys(result) {
		entry, ok := result[name].(map[string]any)
		if !ok {
			continue
		}
		stats, ok := entry["stats"].(map[string]any)
		if !ok {
			continue
		}
		m, present, err := toFloat(stats["mean"])
		if err != nil {
			return nil, err
		}
		if present && m > topMean {
			top, topMean = name, m
		}
	}
	if top == "" {
		return nil, nil
	}
	return []string{fmt.Sprintf("Highest mean: %s (Mean=%.2f).", top, topMean)}, nil
}

func regressionHints(result map[string]any) ([]string, error) {
	var hints []string
	r2, present, err := toFloat(result["r_square"])
	if err != nil {
		return nil, err
	}
	if present {
		hints = append(hints, fmt.Sprintf("Model explains %.1f%% of the variance (R-Square).", r2*100))
	}
	sigF, present, err := toFloat(result["sig_f"])
	if err != nil {
		return nil, err
	}
	if present {
		status := "no significant effect"
		if sigF < 0.05 {
			status = "significant effect"
		}
		hints = append(hints, fmt.Sprintf("Simultaneous test: %s (Sig. F=%.3f).", status, sigF))
	}
	return hints, nil
}

func reliabilityHints(result map[string]any) ([]string, error) {
	alpha, present, err := toFloat(result["cronbach_alpha"])
	if err != nil || !present {
		return nil, err
	}
	status := "Not Reliable"
	if alpha > 0.6 {
		status = "Reliable"
	}
	return []string{fmt.Sprintf("Cronbach Alpha = %.3f (%s).", alpha, status)}, nil
}

// genericHints reports a hypothesis verdict from the first significance
// value found at the top level, in details[0], or in the first nested
// object.
func genericHints(result map[string]any) ([]string, error) {
	sig, present, err := findSig(result)
	if err != nil {
		return nil, err
	}
	if !present {
		if details, ok := result["details"].([]any); ok && len(details) > 0 {
			if first, ok := details[0].(map[string]any); ok {
				if sig, present, err = findSig(first); err != nil {
					return nil, err
				}
			}
		}
	}
	if !present {
		for _, k := range sortedKeys(result) {
			nested, ok := result[k].(map[string]any)
			if !ok {
				continue
			}
			if sig, present, err = findSig(nested); err != nil {
				return nil, err
			}
			break
		}
	}
	if !present {
		return nil, nil
	}
	verdict := "hypothesis rejected"
	if sig < 0.05 {
		verdict = "hypothesis accepted"
	}
	return []string{fmt.Sprintf("Test result: %s (Sig. %.3f).", verdict, sig)}, nil
}

func findSig(m map[string]any) (float64, bool, error) {
	for _, k := range sigKeys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		return toFloat(v)
	}
	return 0, false, nil
}

// toFloat converts a cleaned JSON scalar. nil is absent; anything that is
// not a number is an error.
func toFloat(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	}
	return 0, false, fmt.Errorf("not a number: %T", v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
