package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "onthesis/internal/errors"
)

// Params are the caller-supplied named parameters of one analysis.
type Params map[string]any

// StringList accepts either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*s = many
	return nil
}

var validate = validator.New()

// decodeParams maps named parameters onto dst and validates its tags.
// Unknown names are rejected unless allowUnknown is set.
func decodeParams(params Params, dst any, allowUnknown bool) error {
	if params == nil {
		params = Params{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return apperrors.Validationf("invalid parameters: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if !allowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validationf("invalid parameters: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.Validationf("invalid parameters: %s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

type variablesParams struct {
	Variables StringList `json:"variables" validate:"required,min=1,dive,required"`
}

type groupComparisonParams struct {
	GroupVar string     `json:"group_var" validate:"required"`
	TestVars StringList `json:"test_vars" validate:"required,min=1,dive,required"`
}

type pairedParams struct {
	Var1 StringList `json:"var1" validate:"required,min=1,dive,required"`
	Var2 StringList `json:"var2" validate:"required,min=1,dive,required"`
}

// pairs zips var1 and var2 up to the shorter list.
func (p pairedParams) pairs() [][2]string {
	n := min(len(p.Var1), len(p.Var2))
	out := make([][2]string, n)
	for i := 0; i < n; i++ {
		out[i] = [2]string{p.Var1[i], p.Var2[i]}
	}
	return out
}

type anovaParams struct {
	DependentList StringList `json:"dependent_list" validate:"required,min=1,dive,required"`
	Factor        string     `json:"factor" validate:"required"`
}

type correlationParams struct {
	Variables StringList `json:"variables" validate:"required,min=2,dive,required"`
	Method    string     `json:"method" validate:"omitempty,oneof=pearson spearman kendall"`
}

type regressionParams struct {
	Dependent    string     `json:"dependent" validate:"required"`
	Independents StringList `json:"independents" validate:"required,min=1,dive,required"`
}

type itemsParams struct {
	Items StringList `json:"items" validate:"required,min=2,dive,required"`
}

type crosstabParams struct {
	RowVar string `json:"row_var" validate:"required"`
	ColVar string `json:"col_var" validate:"required"`
}

// Decode maps named parameters onto dst, rejecting unknown names, and
// validates its struct tags. Failures are validation errors.
func Decode(params Params, dst any) error {
	return decodeParams(params, dst, false)
}
