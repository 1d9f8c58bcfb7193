package dataset

import (
	"encoding/json"
	"fmt"
)

// VarType is the storage kind of a variable.
type VarType string

const (
	TypeNumeric VarType = "Numeric"
	TypeString  VarType = "String"
)

// Measure is the measurement level used for analysis routing.
type Measure string

const (
	MeasureScale   Measure = "scale"
	MeasureNominal Measure = "nominal"
	MeasureOrdinal Measure = "ordinal"
)

// Align is the display alignment of a variable.
type Align string

const (
	AlignRight Align = "Right"
	AlignLeft  Align = "Left"
)

const (
	defaultRole  = "input"
	defaultWidth = 8
)

// ParseVarType validates a type name.
func ParseVarType(s string) (VarType, error) {
	switch VarType(s) {
	case TypeNumeric, TypeString:
		return VarType(s), nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// ParseMeasure validates a measurement level name.
func ParseMeasure(s string) (Measure, error) {
	switch Measure(s) {
	case MeasureScale, MeasureNominal, MeasureOrdinal:
		return Measure(s), nil
	}
	return "", fmt.Errorf("unknown measure %q", s)
}

// VariableMetadata describes one column.
type VariableMetadata struct {
	Name          string            `json:"name"`
	Label         string            `json:"label"`
	Type          VarType           `json:"type"`
	Measure       Measure           `json:"measure"`
	Role          string            `json:"role"`
	MissingValues []Value           `json:"missing_values"`
	Width         int               `json:"width"`
	Decimals      int               `json:"decimals"`
	Align         Align             `json:"align"`
	ValueLabels   map[string]string `json:"value_labels"`
}

func defaultVariable(name string, numeric bool) VariableMetadata {
	v := VariableMetadata{
		Name:          name,
		Role:          defaultRole,
		Width:         defaultWidth,
		MissingValues: []Value{},
		ValueLabels:   map[string]string{},
	}
	if numeric {
		v.Type, v.Measure, v.Align, v.Decimals = TypeNumeric, MeasureScale, AlignRight, 2
	} else {
		v.Type, v.Measure, v.Align, v.Decimals = TypeString, MeasureNominal, AlignLeft, 0
	}
	return v
}

// InferVariable derives metadata from a column's values. Numeric columns
// are scale; any column holding text is nominal, whether it is a small
// categorical code set or free text.
func InferVariable(name string, values []Value) VariableMetadata {
	numeric := true
	for _, v := range values {
		if v.IsText() {
			numeric = false
			break
		}
	}
	return defaultVariable(name, numeric)
}

// UnmarshalJSON fills absent keys with the inference defaults for the
// decoded type.
func (m *VariableMetadata) UnmarshalJSON(data []byte) error {
	type plain VariableMetadata
	p := plain(defaultVariable("", false))
	p.Type, p.Measure, p.Align = "", "", ""
	p.Decimals = -1
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Type == "" {
		p.Type = TypeString
	}
	if p.Measure == "" {
		p.Measure = MeasureNominal
		if p.Type == TypeNumeric {
			p.Measure = MeasureScale
		}
	}
	if p.Align == "" {
		p.Align = AlignLeft
		if p.Type == TypeNumeric {
			p.Align = AlignRight
		}
	}
	if p.Decimals < 0 {
		p.Decimals = 0
		if p.Type == TypeNumeric {
			p.Decimals = 2
		}
	}
	if p.MissingValues == nil {
		p.MissingValues = []Value{}
	}
	if p.ValueLabels == nil {
		p.ValueLabels = map[string]string{}
	}
	*m = VariableMetadata(p)
	return nil
}

// DisplayLabel returns the label, falling back to the name.
func (m VariableMetadata) DisplayLabel() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

// ValueLabel returns the label attached to a coded value, if any.
func (m VariableMetadata) ValueLabel(v Value) (string, bool) {
	if v.IsMissing() || len(m.ValueLabels) == 0 {
		return "", false
	}
	l, ok := m.ValueLabels[v.String()]
	return l, ok
}

// IsMissing reports whether v is missing or one of the sentinel codes.
func (m VariableMetadata) IsMissing(v Value) bool {
	if v.IsMissing() {
		return true
	}
	for _, code := range m.MissingValues {
		if code.Equal(v) {
			return true
		}
		if cf, ok := code.AsFloat(); ok {
			if vf, ok := v.AsFloat(); ok && cf == vf {
				return true
			}
		}
	}
	return false
}

func (m VariableMetadata) clone() VariableMetadata {
	c := m
	c.MissingValues = append([]Value{}, m.MissingValues...)
	c.ValueLabels = make(map[string]string, len(m.ValueLabels))
	for k, v := range m.ValueLabels {
		c.ValueLabels[k] = v
	}
	return c
}
