// Package size estimates the bytes cached values occupy. Estimates are
// deliberately cheap: fixed costs for primitives, sampling for large
// collections, and a structural serialization fallback for everything
// else. Exact heap accounting is not a goal.
package size

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"
)

const (
	// objectOverhead approximates per-object header and pointer costs
	// that a serialized length does not reflect.
	objectOverhead = 48

	// sampleLimit caps how many collection elements are measured before
	// extrapolating from the collection's length.
	sampleLimit = 50

	// typeCacheLimit bounds the per-type estimate cache used by the
	// reflective fallback.
	typeCacheLimit = 1024
)

// Estimator estimates value sizes. It is safe for concurrent use; the
// zero value is not valid, use NewEstimator.
type Estimator struct {
	mu    sync.RWMutex
	types map[reflect.Type]int64
}

// NewEstimator returns an estimator with an empty type cache.
func NewEstimator() *Estimator {
	return &Estimator{types: make(map[reflect.Type]int64)}
}

// Estimate returns the approximate bytes v occupies. The signature
// matches cache.SizeCalculator.
func (e *Estimator) Estimate(v any) (int64, error) {
	return e.estimate(v, 0)
}

func (e *Estimator) estimate(v any, depth int) (int64, error) {
	if v == nil {
		return 0, nil
	}

	// Fast paths: fixed table for primitives, lengths for text.
	switch t := v.(type) {
	case bool, int8, uint8:
		return 1, nil
	case int16, uint16:
		return 2, nil
	case int32, uint32, float32:
		return 4, nil
	case int, int64, uint, uint64, uintptr, float64, time.Duration:
		return 8, nil
	case complex64:
		return 8, nil
	case complex128, time.Time:
		return 16, nil
	case string:
		return int64(len(t)) + 16, nil
	case []byte:
		return int64(len(t)) + 24, nil
	}

	if depth > 8 {
		// Deeply nested shapes fall back to the serialized form below
		// rather than walking further.
		return e.serializedSize(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 8, nil
		}
		n, err := e.estimate(rv.Elem().Interface(), depth+1)
		return n + 8, err
	case reflect.Slice, reflect.Array:
		return e.sampleSequence(rv, depth)
	case reflect.Map:
		return e.sampleMap(rv, depth)
	}

	return e.serializedSize(v)
}

// sampleSequence measures up to sampleLimit elements and extrapolates by
// the sequence's length.
func (e *Estimator) sampleSequence(rv reflect.Value, depth int) (int64, error) {
	n := rv.Len()
	if n == 0 {
		return objectOverhead, nil
	}
	limit := n
	if limit > sampleLimit {
		limit = sampleLimit
	}
	var sampled int64
	for i := 0; i < limit; i++ {
		s, err := e.estimate(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return 0, err
		}
		sampled += s
	}
	return sampled*int64(n)/int64(limit) + objectOverhead, nil
}

func (e *Estimator) sampleMap(rv reflect.Value, depth int) (int64, error) {
	n := rv.Len()
	if n == 0 {
		return objectOverhead, nil
	}
	var sampled int64
	count := 0
	iter := rv.MapRange()
	for iter.Next() && count < sampleLimit {
		ks, err := e.estimate(iter.Key().Interface(), depth+1)
		if err != nil {
			return 0, err
		}
		vs, err := e.estimate(iter.Value().Interface(), depth+1)
		if err != nil {
			return 0, err
		}
		sampled += ks + vs
		count++
	}
	if count == 0 {
		return objectOverhead, nil
	}
	return sampled*int64(n)/int64(count) + objectOverhead, nil
}

// serializedSize measures arbitrary values by structural serialization
// length plus a fixed object overhead, with the type's static footprint
// as the last resort.
func (e *Estimator) serializedSize(v any) (int64, error) {
	if b, err := json.Marshal(v); err == nil {
		return int64(len(b)) + objectOverhead, nil
	}

	// Not serializable (channels, funcs, cycles): fall back to the
	// type's static footprint, cached per concrete type.
	t := reflect.TypeOf(v)
	e.mu.RLock()
	cached, ok := e.types[t]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	n := int64(t.Size()) + objectOverhead

	e.mu.Lock()
	if len(e.types) >= typeCacheLimit {
		// Cheap reset beats tracking recency for a bound this loose.
		e.types = make(map[reflect.Type]int64)
	}
	e.types[t] = n
	e.mu.Unlock()
	return n, nil
}

// Of is a convenience for one-off estimates without a shared cache.
func Of(v any) (int64, error) {
	return NewEstimator().Estimate(v)
}

