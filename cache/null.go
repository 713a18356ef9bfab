package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// NullCache satisfies the contract while storing nothing: reads miss,
// writes report success, counts are zero. It stands in wherever a cache
// collaborator is optional, and keeps per-family call counters so tests
// can assert it was (or was not) touched.
type NullCache struct {
	reads   atomic.Int64
	writes  atomic.Int64
	removes atomic.Int64
}

var _ Cache = (*NullCache)(nil)

// NewNull returns a no-op cache.
func NewNull() *NullCache { return &NullCache{} }

// ReadCalls returns the number of read operations performed.
func (n *NullCache) ReadCalls() int64 { return n.reads.Load() }

// WriteCalls returns the number of write operations performed.
func (n *NullCache) WriteCalls() int64 { return n.writes.Load() }

// RemoveCalls returns the number of remove operations performed.
func (n *NullCache) RemoveCalls() int64 { return n.removes.Load() }

// Get implements Cache.
func (n *NullCache) Get(context.Context, string) (Value[any], error) {
	n.reads.Add(1)
	return Missing[any](), nil
}

// GetAll implements Cache.
func (n *NullCache) GetAll(_ context.Context, keys []string) (map[string]Value[any], error) {
	n.reads.Add(1)
	out := make(map[string]Value[any], len(keys))
	for _, k := range keys {
		out[k] = Missing[any]()
	}
	return out, nil
}

// Has implements Cache.
func (n *NullCache) Has(context.Context, string) (bool, error) {
	n.reads.Add(1)
	return false, nil
}

// GetExpiration implements Cache.
func (n *NullCache) GetExpiration(context.Context, string) (*time.Duration, error) {
	n.reads.Add(1)
	return nil, nil
}

// GetAllExpiration implements Cache.
func (n *NullCache) GetAllExpiration(context.Context, []string) (map[string]*time.Duration, error) {
	n.reads.Add(1)
	return map[string]*time.Duration{}, nil
}

// GetList implements Cache.
func (n *NullCache) GetList(context.Context, string, int, int) (Value[[]any], error) {
	n.reads.Add(1)
	return Missing[[]any](), nil
}

// Set implements Cache.
func (n *NullCache) Set(context.Context, string, any, *time.Duration) (bool, error) {
	n.writes.Add(1)
	return true, nil
}

// Add implements Cache.
func (n *NullCache) Add(context.Context, string, any, *time.Duration) (bool, error) {
	n.writes.Add(1)
	return true, nil
}

// Replace implements Cache.
func (n *NullCache) Replace(context.Context, string, any, *time.Duration) (bool, error) {
	n.writes.Add(1)
	return true, nil
}

// ReplaceIfEqual implements Cache.
func (n *NullCache) ReplaceIfEqual(context.Context, string, any, any, *time.Duration) (bool, error) {
	n.writes.Add(1)
	return true, nil
}

// RemoveIfEqual implements Cache.
func (n *NullCache) RemoveIfEqual(context.Context, string, any) (bool, error) {
	n.removes.Add(1)
	return true, nil
}

// SetAll implements Cache.
func (n *NullCache) SetAll(_ context.Context, values map[string]any, _ *time.Duration) (int, error) {
	n.writes.Add(1)
	return len(values), nil
}

// SetExpiration implements Cache.
func (n *NullCache) SetExpiration(context.Context, string, time.Duration) error {
	n.writes.Add(1)
	return nil
}

// SetAllExpiration implements Cache.
func (n *NullCache) SetAllExpiration(context.Context, map[string]*time.Duration) error {
	n.writes.Add(1)
	return nil
}

// Increment implements Cache.
func (n *NullCache) Increment(_ context.Context, _ string, amount int64, _ *time.Duration) (int64, error) {
	n.writes.Add(1)
	return amount, nil
}

// IncrementFloat implements Cache.
func (n *NullCache) IncrementFloat(_ context.Context, _ string, amount float64, _ *time.Duration) (float64, error) {
	n.writes.Add(1)
	return amount, nil
}

// SetIfHigher implements Cache.
func (n *NullCache) SetIfHigher(_ context.Context, _ string, value int64, _ *time.Duration) (int64, error) {
	n.writes.Add(1)
	return value, nil
}

// SetIfHigherFloat implements Cache.
func (n *NullCache) SetIfHigherFloat(_ context.Context, _ string, value float64, _ *time.Duration) (float64, error) {
	n.writes.Add(1)
	return value, nil
}

// SetIfLower implements Cache.
func (n *NullCache) SetIfLower(_ context.Context, _ string, value int64, _ *time.Duration) (int64, error) {
	n.writes.Add(1)
	return value, nil
}

// SetIfLowerFloat implements Cache.
func (n *NullCache) SetIfLowerFloat(_ context.Context, _ string, value float64, _ *time.Duration) (float64, error) {
	n.writes.Add(1)
	return value, nil
}

// ListAdd implements Cache.
func (n *NullCache) ListAdd(_ context.Context, _ string, values []any, _ *time.Duration) (int, error) {
	n.writes.Add(1)
	return len(values), nil
}

// ListRemove implements Cache.
func (n *NullCache) ListRemove(context.Context, string, []any, *time.Duration) (int, error) {
	n.removes.Add(1)
	return 0, nil
}

// Remove implements Cache.
func (n *NullCache) Remove(context.Context, string) (bool, error) {
	n.removes.Add(1)
	return false, nil
}

// RemoveAll implements Cache.
func (n *NullCache) RemoveAll(context.Context, ...string) (int, error) {
	n.removes.Add(1)
	return 0, nil
}

// RemoveByPrefix implements Cache.
func (n *NullCache) RemoveByPrefix(context.Context, string) (int, error) {
	n.removes.Add(1)
	return 0, nil
}

// Close implements Cache.
func (n *NullCache) Close() error { return nil }
