package sysinfo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Accessors for the untyped JSON tree. Every accessor reports presence
// explicitly; a value of the wrong type counts as absent.

func object(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func list(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}

func str(m map[string]any, key string) (string, bool) {
	switch v := m[key].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// toFloat accepts JSON numbers and numeric strings ("2397", " -2 ").
func toFloat(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func float(m map[string]any, key string) *float64 {
	f, ok := toFloat(m[key])
	if !ok {
		return nil
	}
	return &f
}

// Values outside the target integer range count as absent.
func integer(m map[string]any, key string) *int {
	f, ok := toFloat(m[key])
	if !ok {
		return nil
	}
	f = math.Round(f)
	if f < math.MinInt || f >= math.MaxInt {
		return nil
	}
	i := int(f)
	return &i
}

func integer64(m map[string]any, key string) *int64 {
	f, ok := toFloat(m[key])
	if !ok {
		return nil
	}
	f = math.Round(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	i := int64(f)
	return &i
}
