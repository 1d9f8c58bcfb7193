// Package jsonsafe converts analysis results into plain JSON-ready values.
package jsonsafe

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	"onthesis/domain/dataset"
)

var (
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	valueType     = reflect.TypeOf(dataset.Value{})
)

// Clean walks v and returns maps, slices and scalars only. Floats are
// rounded to three decimals; NaN and ±Inf become nil. Structs become maps
// keyed by their json tags, honouring "-" and omitempty.
func Clean(v any) any {
	if v == nil {
		return nil
	}
	return clean(reflect.ValueOf(v))
}

// Round3 rounds to three decimals and maps non-finite values to nil.
func Round3(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	r := math.Round(f*1000) / 1000
	if r == 0 {
		return 0.0
	}
	return r
}

func clean(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if rv.Type() == valueType {
		native := rv.Interface().(dataset.Value).Native()
		if f, ok := native.(float64); ok {
			return Round3(f)
		}
		return native
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return clean(rv.Elem())
	case reflect.Float32, reflect.Float64:
		return Round3(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return passthrough(rv)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = clean(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = clean(rv.Index(i))
		}
		return out
	case reflect.Struct:
		if rv.Type().Implements(marshalerType) {
			return rv.Interface()
		}
		out := map[string]any{}
		cleanStruct(rv, out)
		return out
	}
	return passthrough(rv)
}

func passthrough(rv reflect.Value) any {
	if rv.CanInterface() {
		return rv.Interface()
	}
	return nil
}

func cleanStruct(rv reflect.Value, out map[string]any) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if field.Anonymous && name == "" {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				cleanStruct(fv, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if strings.Contains(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		out[name] = clean(fv)
	}
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// Map cleans v and returns it as an object, or nil when v is not one.
func Map(v any) map[string]any {
	m, _ := Clean(v).(map[string]any)
	return m
}
