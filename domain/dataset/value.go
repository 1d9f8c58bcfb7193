package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the content of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is one table cell: missing, a number or a piece of text.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the missing-value marker.
func Missing() Value { return Value{} }

// Number wraps a float. NaN becomes Missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a string. The empty string becomes Missing.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// ParseCell interprets raw input: empty is missing, numeric text is a number.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing()
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	return Text(raw)
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsText() bool    { return v.kind == KindText }

// Float returns the number held by the cell without coercion.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// AsFloat coerces the cell to a number; text that does not parse yields false.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return parseNumber(v.text)
	}
	return math.NaN(), false
}

// String renders the cell; whole numbers print without a fraction.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	}
	return ""
}

// FormatNumber prints f with the shortest exact representation.
func FormatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Native returns nil, float64 or string.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	}
	return nil
}

// Equal reports exact equality; two missing cells are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	}
	return true
}

// key is a collision-free identity used for grouping and deduplication.
func (v Value) key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return "s:" + v.text
	}
	return "m:"
}

// Compare orders missing first, then numbers, then text.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case KindText:
		return strings.Compare(a.text, b.text)
	}
	return 0
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(FormatNumber(v.num)), nil
	case KindText:
		return json.Marshal(v.text)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Missing()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("cell must be a number, string or null: %w", err)
	}
	*v = Number(f)
	return nil
}

// FromAny converts decoded JSON or Go scalars into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Missing()
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case bool:
		if t {
			return Number(1)
		}
		return Number(0)
	case string:
		return Text(t)
	}
	return Text(fmt.Sprint(x))
}

// ParseColumn applies the ingest rule to a raw text column: if every
// non-empty cell is numeric the column becomes numbers, otherwise every
// non-empty cell stays text.
func ParseColumn(raw []string) []Value {
	out := make([]Value, len(raw))
	numeric := true
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, ok := parseNumber(s); !ok {
			numeric = false
			break
		}
	}
	for i, s := range raw {
		if strings.TrimSpace(s) == "" {
			out[i] = Missing()
			continue
		}
		if numeric {
			f, _ := parseNumber(s)
			out[i] = Number(f)
		} else {
			out[i] = Text(s)
		}
	}
	return out
}
