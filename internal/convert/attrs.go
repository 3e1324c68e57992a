package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// convertAttributes coerces raw attribute values to their declared
// field types. Values that cannot be coerced are stored as their
// string form rather than dropped; nils stay nil.
func convertAttributes(fields []FieldDef, raw map[string]any) map[string]any {
	attrs := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			attrs[f.Name] = nil
			continue
		}
		attrs[f.Name] = coerce(f.Type, v)
	}
	return attrs
}

func coerce(t FieldType, v any) any {
	switch t {
	case FieldInteger:
		if n, ok := toInt64(v); ok {
			return n
		}
	case FieldReal:
		if f, ok := toFloat64(v); ok {
			return f
		}
	case FieldText:
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		// encoding/json decodes all numbers as float64.
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
