package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrich(t *testing.T) {
	tests := []struct {
		name         string
		analysisType string
		result       map[string]any
		want         string
	}{
		{
			name:         "correlation strongest pair",
			analysisType: "correlation-analysis",
			result: map[string]any{"matrix": map[string]any{
				"x": map[string]any{"x": map[string]any{"r": 1.0}, "y": map[string]any{"r": -0.72}},
				"y": map[string]any{"x": map[string]any{"r": -0.72}, "y": map[string]any{"r": 1.0}},
			}},
			want: "Strongest correlation: x & y (r=0.720, strong).",
		},
		{
			name:         "anova verdict per dependent",
			analysisType: "oneway-anova",
			result: map[string]any{
				"score": map[string]any{"sig": 0.001},
				"age":   map[string]any{"sig": 0.4},
			},
			want: "Group difference on age is not significant (Sig=0.400). Group difference on score is significant (Sig=0.001).",
		},
		{
			name:         "descriptive highest mean",
			analysisType: "descriptive-analysis",
			result: map[string]any{
				"a": map[string]any{"stats": map[string]any{"mean": 2.5}},
				"b": map[string]any{"stats": map[string]any{"mean": 7.25}},
				"c": map[string]any{"frequency_table": []any{}},
			},
			want: "Highest mean: b (Mean=7.25).",
		},
		{
			name:         "regression",
			analysisType: "linear-regression",
			result:       map[string]any{"r_square": 0.6, "sig_f": 0.03},
			want:         "Model explains 60.0% of the variance (R-Square). Simultaneous test: significant effect (Sig. F=0.030).",
		},
		{
			name:         "reliability",
			analysisType: "reliability",
			result:       map[string]any{"cronbach_alpha": 0.55},
			want:         "Cronbach Alpha = 0.550 (Not Reliable).",
		},
		{
			name:         "generic top level",
			analysisType: "chi-square",
			result:       map[string]any{"chi2": 4.1, "sig": 0.043},
			want:         "Test result: hypothesis accepted (Sig. 0.043).",
		},
		{
			name:         "generic details list",
			analysisType: "normality",
			result:       map[string]any{"details": []any{map[string]any{"sig": 0.2}}},
			want:         "Test result: hypothesis rejected (Sig. 0.200).",
		},
		{
			name:         "generic first nested object",
			analysisType: "independent-ttest",
			result:       map[string]any{"y": map[string]any{"sig": 0.01, "sig_text": "0.010"}},
			want:         "Test result: hypothesis accepted (Sig. 0.010).",
		},
		{
			name:         "nothing to say",
			analysisType: "validity",
			result:       map[string]any{"items": []any{}},
			want:         Completed,
		},
		{
			name:         "malformed value",
			analysisType: "linear-regression",
			result:       map[string]any{"r_square": "high"},
			want:         Unavailable,
		},
		{
			name:         "malformed matrix cell",
			analysisType: "correlation-analysis",
			result: map[string]any{"matrix": map[string]any{
				"x": map[string]any{"y": map[string]any{"r": []int{1}}},
			}},
			want: Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Enrich(tt.result, tt.analysisType)
			assert.Equal(t, tt.want, out[Key])
		})
	}
}

func TestEnrich_NilResult(t *testing.T) {
	out := Enrich(nil, "correlation-analysis")
	assert.Equal(t, Completed, out[Key])
}
