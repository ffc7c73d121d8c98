package febos

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerce converts a decoded upstream value to the representation stored
// for t: int64, float64, bool or string.
func coerce(t ValueType, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: null to %s", ErrCoercion, t)
	}

	switch t {
	case ValueInt:
		return toInt(raw)
	case ValueFloat:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %v (%T) to float", ErrCoercion, raw, raw)
		}
		return f, nil
	case ValueBool:
		return toBool(raw)
	case ValueString:
		return toString(raw), nil
	}
	return nil, fmt.Errorf("%w: unknown value type %q", ErrCoercion, t)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	}

	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v (%T) to int", ErrCoercion, raw, raw)
	}
	return int64(math.Trunc(f)), nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}

	f, ok := toFloat(raw)
	if !ok {
		return false, fmt.Errorf("%w: %v (%T) to bool", ErrCoercion, raw, raw)
	}
	return f != 0, nil
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprint(raw)
}
