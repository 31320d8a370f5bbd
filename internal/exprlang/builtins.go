package exprlang

import (
	"fmt"
	"strconv"
	"strings"

	"autonomy-core/internal/apperr"
)

// FormatFloat renders a float the way the language's numeric literals
// read: always with a decimal point, so a whole-number result like
// 51500.0 doesn't get truncated down to the integer-looking "51500".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, apperr.Domain("", "type mismatch", fmt.Sprintf("cannot convert %q to a number", t), err)
		}
		return f, nil
	default:
		return 0, apperr.Domain("", "type mismatch", fmt.Sprintf("cannot convert %T to a number", v), nil)
	}
}

func numericBinary(x, y any, f func(a, b float64) float64) (any, error) {
	xf, err := toNumber(x)
	if err != nil {
		return nil, err
	}
	yf, err := toNumber(y)
	if err != nil {
		return nil, err
	}
	return f(xf, yf), nil
}

func equalValues(x, y any) bool {
	xf, xerr := toNumber(x)
	yf, yerr := toNumber(y)
	if xerr == nil && yerr == nil {
		return xf == yf
	}
	return fmt.Sprint(x) == fmt.Sprint(y) && sameType(x, y)
}

func sameType(x, y any) bool {
	switch x.(type) {
	case string:
		_, ok := y.(string)
		return ok
	case bool:
		_, ok := y.(bool)
		return ok
	case nil:
		return y == nil
	default:
		return true
	}
}

func callLen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, apperr.Domain("", "wrong argument count", "len takes exactly one argument", nil)
	}
	switch t := args[0].(type) {
	case string:
		return float64(len([]rune(t))), nil
	case map[string]any:
		return float64(len(t)), nil
	case []any:
		return float64(len(t)), nil
	default:
		return nil, apperr.Domain("", "type mismatch", "len requires a string, object, or array", nil)
	}
}

func callFloat(args []any) (any, error) {
	if len(args) != 1 {
		return nil, apperr.Domain("", "wrong argument count", "float takes exactly one argument", nil)
	}
	return toNumber(args[0])
}

func callInt(args []any) (any, error) {
	if len(args) != 1 {
		return nil, apperr.Domain("", "wrong argument count", "int takes exactly one argument", nil)
	}
	f, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	return float64(int64(f)), nil
}

func callStr(args []any) (any, error) {
	if len(args) != 1 {
		return nil, apperr.Domain("", "wrong argument count", "str takes exactly one argument", nil)
	}
	switch t := args[0].(type) {
	case string:
		return t, nil
	case float64:
		return FormatFloat(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "null", nil
	default:
		return fmt.Sprint(t), nil
	}
}

func callAbs(args []any) (any, error) {
	if len(args) != 1 {
		return nil, apperr.Domain("", "wrong argument count", "abs takes exactly one argument", nil)
	}
	f, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return -f, nil
	}
	return f, nil
}

func callMinMax(args []any, wantMax bool) (any, error) {
	if len(args) < 2 {
		return nil, apperr.Domain("", "wrong argument count", "min/max take at least two arguments", nil)
	}
	best, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		f, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		if (wantMax && f > best) || (!wantMax && f < best) {
			best = f
		}
	}
	return best, nil
}
