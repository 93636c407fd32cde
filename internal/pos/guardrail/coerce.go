// internal/pos/guardrail/coerce.go
package guardrail

import (
	"encoding/json"
	"math"
	"reflect"
)

// CoerceParams returns a copy of params holding only JSON primitives or nil.
// Nested values are serialised to a JSON string; values that cannot be
// serialised are dropped.
func CoerceParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if c, ok := coerceValue(v); ok {
			out[k] = c
		}
	}
	return out
}

func coerceValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case string, bool:
		return x, true
	case int:
		return x, true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return coerceInteger(x)
	case float32:
		return coerceFloat(float64(x))
	case float64:
		return coerceFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return coerceFloat(f)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return string(data), true
}

func coerceInteger(v interface{}) (interface{}, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), true
		}
		return int(u), true
	}
	return nil, false
}

// coerceFloat turns integral floats into ints; NaN and infinities have no
// JSON form and are dropped.
func coerceFloat(f float64) (interface{}, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f), true
	}
	return f, true
}
