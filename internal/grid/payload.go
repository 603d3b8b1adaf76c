package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// SanitizePayload keeps the payload keys that name writable fields of ds and
// coerces their values, in field order. System fields and reserved columns
// are always discarded silently. Other unknown keys are dropped, or rejected
// when strict is set.
func SanitizePayload(ds *domain.Dataset, payload map[string]any, strict bool) ([]ddl.Assignment, error) {
	if strict {
		for key := range payload {
			if domain.IsReservedColumn(key) {
				continue
			}
			if _, ok := ds.FieldByName(key); !ok {
				return nil, domain.ErrValidation("unknown field %q", key)
			}
		}
	}

	out := make([]ddl.Assignment, 0, len(payload))
	for _, f := range ds.Fields {
		raw, present := payload[f.Name]
		if !present || !f.Writable() {
			continue
		}
		col, err := column(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := Coerce(f, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ddl.Assignment{Column: col, Value: v})
	}
	return out, nil
}

// Coerce converts a decoded JSON value to the Go type stored for f. A nil
// value stays nil.
func Coerce(f domain.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch f.Type {
	case domain.FieldInteger:
		out, err = toInt64(v)
	case domain.FieldFloat:
		out, err = toFloat64(v)
	case domain.FieldBoolean:
		out, err = toBool(v)
	default:
		out, err = toString(v)
	}
	if err != nil {
		return nil, domain.ErrValidation("field %q expects %s: %v", f.Name, f.Type, err)
	}
	return out, nil
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case map[string]any, []any:
		return "", fmt.Errorf("got %T", v)
	default:
		return fmt.Sprint(v), nil
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return wholeFloat(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		fl, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return wholeFloat(fl)
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("got %T", v)
	}
}

func wholeFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("got %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		return strconv.ParseBool(x.String())
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	default:
		return false, fmt.Errorf("got %T", v)
	}
}
