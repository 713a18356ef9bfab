package cache

import (
	"reflect"
	"time"
)

// deepClone copies a value so cached state cannot be mutated through
// aliases held by callers. Primitives, strings, and known-immutable types
// are returned as-is.
func deepClone(v any) any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, complex64, complex128,
		time.Time, time.Duration:
		return v
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

func cloneValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		np := reflect.New(rv.Type().Elem())
		np.Elem().Set(cloneValue(rv.Elem()))
		return np
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		ns := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ns.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return ns
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		nm := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			nm.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return nm
	case reflect.Array:
		na := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			na.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return na
	case reflect.Struct:
		// Whole-value copy first (covers unexported fields), then deep
		// copies of the exported reference fields.
		ns := reflect.New(rv.Type()).Elem()
		ns.Set(rv)
		for i := 0; i < rv.NumField(); i++ {
			if !ns.Field(i).CanSet() {
				continue
			}
			switch rv.Field(i).Kind() {
			case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Array, reflect.Struct, reflect.Interface:
				ns.Field(i).Set(cloneValue(rv.Field(i)))
			}
		}
		return ns
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		ni := reflect.New(rv.Type()).Elem()
		ni.Set(cloneValue(rv.Elem()))
		return ni
	default:
		return rv
	}
}
