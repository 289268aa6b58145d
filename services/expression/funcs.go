package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// utilityEnv builds the fixed allow-listed environment visible to every
// expression: pure utility namespaces plus a few top-level conversions.
// Everything here is side-effect-free and shared safely across concurrent
// evaluations. Context variables are merged on top at run time.
func utilityEnv() map[string]any {
	return map[string]any{
		"math": map[string]any{
			"abs":   mathFunc(math.Abs),
			"ceil":  mathFunc(math.Ceil),
			"floor": mathFunc(math.Floor),
			"round": mathFunc(math.Round),
			"sqrt":  mathFunc(math.Sqrt),
			"pow":   mathFunc2(math.Pow),
			"min":   mathFunc2(math.Min),
			"max":   mathFunc2(math.Max),
		},
		"strings": map[string]any{
			"upper":    strings.ToUpper,
			"lower":    strings.ToLower,
			"trim":     strings.TrimSpace,
			"replace":  strings.ReplaceAll,
			"contains": strings.Contains,
			"split": func(s, sep string) []any {
				parts := strings.Split(s, sep)
				items := make([]any, len(parts))
				for i, p := range parts {
					items[i] = p
				}
				return items
			},
			"join": func(items []any, sep string) string {
				parts := make([]string, len(items))
				for i, item := range items {
					parts[i] = stringify(item)
				}
				return strings.Join(parts, sep)
			},
		},
		"json": map[string]any{
			"encode": func(v any) (string, error) {
				raw, err := json.Marshal(v)
				if err != nil {
					return "", err
				}
				return string(raw), nil
			},
			"decode": func(s string) (any, error) {
				var v any
				if err := json.Unmarshal([]byte(s), &v); err != nil {
					return nil, err
				}
				return v, nil
			},
		},
		"date": map[string]any{
			"now": func() time.Time {
				return time.Now().UTC()
			},
			"parse": func(layout, value string) (time.Time, error) {
				return time.Parse(layout, value)
			},
			"format": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
			"unix": func(t time.Time) int64 {
				return t.Unix()
			},
		},
		"toString": stringify,
		"toNumber": toNumber,
		"toBool":   truthy,
	}
}

// mathFunc adapts a float64 function to accept any numeric operand. Integer
// literals are the default numeric form in expressions, and the engine does
// not convert them to float64 on its own.
func mathFunc(fn func(float64) float64) func(any) (float64, error) {
	return func(v any) (float64, error) {
		n, err := toNumber(v)
		if err != nil {
			return 0, err
		}
		return fn(n), nil
	}
}

func mathFunc2(fn func(float64, float64) float64) func(any, any) (float64, error) {
	return func(a, b any) (float64, error) {
		x, err := toNumber(a)
		if err != nil {
			return 0, err
		}
		y, err := toNumber(b)
		if err != nil {
			return 0, err
		}
		return fn(x, y), nil
	}
}

// stringify coerces a value to its textual form. Composite values render as
// JSON rather than Go syntax.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		if raw, err := json.Marshal(v); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", v)
	}
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}
