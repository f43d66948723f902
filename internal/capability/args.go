package capability

import (
	"fmt"
	"math"
	"strconv"
)

// Arguments are the dynamically typed values passed by a script. Numbers may
// arrive as any Go numeric kind; tables arrive as map[any]any or []any.
type Arguments []any

// Len returns the number of arguments.
func (a Arguments) Len() int {
	return len(a)
}

// Get returns argument i, or nil when absent.
func (a Arguments) Get(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// bad builds the type fault for argument i, distinguishing a missing
// argument from an explicit nil.
func (a Arguments) bad(i int, expected string) *Fault {
	if i >= len(a) {
		return Argumentf("bad argument #%d (%s expected, got no value)", i+1, expected)
	}
	return BadArgument(i, expected, a[i])
}

// Real returns argument i as a finite float.
func (a Arguments) Real(i int) (float64, error) {
	v := a.Get(i)
	n, ok := toNumber(v)
	if !ok {
		return 0, a.bad(i, "number")
	}
	if math.IsNaN(n) {
		return 0, Argumentf("bad argument #%d (number expected, got nan)", i+1)
	}
	if math.IsInf(n, 0) {
		return 0, Argumentf("bad argument #%d (number expected, got inf)", i+1)
	}
	return n, nil
}

// Int returns argument i truncated toward zero.
func (a Arguments) Int(i int) (int, error) {
	n, err := a.Real(i)
	if err != nil {
		return 0, err
	}
	if n >= math.MaxInt64 || n <= math.MinInt64 {
		return 0, Argumentf("bad argument #%d (number has no integer representation)", i+1)
	}
	return int(n), nil
}

// Bool returns argument i as a boolean.
func (a Arguments) Bool(i int) (bool, error) {
	v := a.Get(i)
	b, ok := v.(bool)
	if !ok {
		return false, a.bad(i, "boolean")
	}
	return b, nil
}

// String returns argument i as a string. Numbers are not coerced.
func (a Arguments) String(i int) (string, error) {
	v := a.Get(i)
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", a.bad(i, "string")
}

// OptBool returns argument i, or def when it is absent or nil.
func (a Arguments) OptBool(i int, def bool) (bool, error) {
	if a.Get(i) == nil {
		return def, nil
	}
	return a.Bool(i)
}

// OptString returns argument i, or def when it is absent or nil.
func (a Arguments) OptString(i int, def string) (string, error) {
	if a.Get(i) == nil {
		return def, nil
	}
	return a.String(i)
}

// OptInt returns argument i, or def when it is absent or nil.
func (a Arguments) OptInt(i int, def int) (int, error) {
	if a.Get(i) == nil {
		return def, nil
	}
	return a.Int(i)
}

// Text renders argument i the way a script's tostring would. A missing or
// nil argument renders as the empty string.
func (a Arguments) Text(i int) string {
	switch v := a.Get(i).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		if n, ok := toNumber(v); ok {
			return formatNumber(n)
		}
		return fmt.Sprint(v)
	}
}

// TypeName returns the script-facing type name of v.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "boolean"
	case string, []byte:
		return "string"
	case map[any]any, map[string]any, []any:
		return "table"
	}
	if _, ok := toNumber(v); ok {
		return "number"
	}
	return "userdata"
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', 14, 64)
}
