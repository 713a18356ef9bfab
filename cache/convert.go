package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// As converts an untyped read result to a typed one. Conversion covers
// direct assertions, numeric widening/narrowing, string↔number, and a
// JSON round-trip for structured payloads. A conversion failure is
// returned as an ErrSerialization-wrapped error; callers that are not in
// strict mode treat it as a miss (see GetAs).
func As[T any](v Value[any]) (Value[T], error) {
	if !v.HasValue() {
		return Missing[T](), nil
	}
	if v.IsNull() {
		return Null[T](), nil
	}
	tv, err := coerce[T](v.Value())
	if err != nil {
		return Missing[T](), err
	}
	return Found(tv), nil
}

func coerce[T any](raw any) (T, error) {
	var zero T
	if tv, ok := raw.(T); ok {
		return tv, nil
	}
	target := reflect.TypeOf(zero)
	if target == nil {
		// T is an interface the payload does not satisfy.
		return zero, fmt.Errorf("%w: %T does not satisfy requested interface", ErrSerialization, raw)
	}
	if raw == nil {
		return zero, nil
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return zero, err
		}
		out := reflect.New(target).Elem()
		if out.OverflowInt(n) {
			return zero, fmt.Errorf("%w: %d overflows %s", ErrSerialization, n, target)
		}
		out.SetInt(n)
		return out.Interface().(T), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return zero, err
		}
		if n < 0 {
			return zero, fmt.Errorf("%w: %d is negative for %s", ErrSerialization, n, target)
		}
		out := reflect.New(target).Elem()
		if out.OverflowUint(uint64(n)) {
			return zero, fmt.Errorf("%w: %d overflows %s", ErrSerialization, n, target)
		}
		out.SetUint(uint64(n))
		return out.Interface().(T), nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return zero, err
		}
		out := reflect.New(target).Elem()
		out.SetFloat(f)
		return out.Interface().(T), nil
	case reflect.String:
		var s string
		var have bool
		switch t := raw.(type) {
		case string:
			s, have = t, true
		case []byte:
			s, have = string(t), true
		case fmt.Stringer:
			s, have = t.String(), true
		default:
			if f, err := toFloat64(raw); err == nil {
				if f == math.Trunc(f) && math.Abs(f) < 1e15 {
					s = strconv.FormatInt(int64(f), 10)
				} else {
					s = strconv.FormatFloat(f, 'g', -1, 64)
				}
				have = true
			}
		}
		if have {
			out := reflect.New(target).Elem()
			out.SetString(s)
			return out.Interface().(T), nil
		}
	case reflect.Bool:
		if s, ok := raw.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				out := reflect.New(target).Elem()
				out.SetBool(b)
				return out.Interface().(T), nil
			}
		}
	}

	// Structural fallback: marshal the stored shape and rebuild it as T.
	b, err := json.Marshal(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	out := reflect.New(target)
	if err := json.Unmarshal(b, out.Interface()); err != nil {
		return zero, fmt.Errorf("%w: cannot convert %T to %s: %v", ErrSerialization, raw, target, err)
	}
	return out.Elem().Interface().(T), nil
}

// toInt64 parses the payload as an integer. Floats qualify only when the
// fractional part is zero, matching how external numeric backends treat
// whole-valued doubles as integers.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrSerialization, n)
		}
		return int64(n), nil
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrSerialization, n)
		}
		return floatToInt64(f)
	case json.Number:
		return toInt64(string(n))
	}
	return 0, fmt.Errorf("%w: %T is not numeric", ErrSerialization, v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v has a fractional part", ErrSerialization, f)
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v overflows int64", ErrSerialization, f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrSerialization, n)
		}
		return f, nil
	case json.Number:
		return n.Float64()
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

// equalValues compares a stored payload against an expected one for the
// compare-and-swap operations. Numeric payloads compare by value across
// representations; everything else falls back to deep equality.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aerr := toFloat64(a)
	bf, berr := toFloat64(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	if aerr == nil || berr == nil {
		// Only one side is numeric; a string may still match a number
		// textually, which deep equality below will not catch. That is
		// intentional: "5" and 5 compare by numeric value above only when
		// both parse.
		return false
	}
	return reflect.DeepEqual(a, b)
}

// jsonKey is the dedup identity of a non-comparable list element. The
// distinct type keeps encoded forms from colliding with genuine string
// elements.
type jsonKey string

// normalizeElement maps a list element to a comparable identity used for
// dedup. Numerics collapse to int64/float64 so 1, int32(1), and 1.0 are
// one element.
func normalizeElement(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return t
	case float32:
		return float64(t)
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t <= math.MaxInt64 {
			return int64(t)
		}
		return t
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		n, _ := toInt64(v)
		return n
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return t
	}
	if rv := reflect.ValueOf(v); rv.Type().Comparable() {
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return jsonKey(fmt.Sprintf("%v", v))
	}
	return jsonKey(b)
}

// canonicalString orders list elements for stable pagination.
func canonicalString(v any) string { return fmt.Sprintf("%v", v) }
