package cache

import (
	"context"
	"sync"
	"time"
)

// ScopedCache prefixes every key with "{scope}:" so several logical
// caches can share one backend. The scope is set exactly once — either at
// construction or later via SetScope; reassignment fails with
// ErrInvalidState. Nested scoping concatenates prefixes.
type ScopedCache struct {
	inner Cache

	mu       sync.RWMutex
	scope    string
	hasScope bool
}

var _ Cache = (*ScopedCache)(nil)

// NewScoped wraps inner with the given scope.
func NewScoped(inner Cache, scope string) *ScopedCache {
	sc := &ScopedCache{inner: inner}
	if scope != "" {
		sc.scope = scope
		sc.hasScope = true
	}
	return sc
}

// Scope returns the configured scope ("" when unset).
func (sc *ScopedCache) Scope() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.scope
}

// SetScope sets the scope on an unscoped instance. A second assignment
// fails with ErrInvalidState.
func (sc *ScopedCache) SetScope(scope string) error {
	if scope == "" {
		return invalidArgf("scope must not be empty")
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.hasScope {
		return ErrInvalidState
	}
	sc.scope = scope
	sc.hasScope = true
	return nil
}

// ThrowsOnSerializationError forwards the wrapped cache's strict-read
// setting to the typed helpers.
func (sc *ScopedCache) ThrowsOnSerializationError() bool { return strictSerialization(sc.inner) }

func (sc *ScopedCache) prefix() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if !sc.hasScope {
		return ""
	}
	return sc.scope + ":"
}

func (sc *ScopedCache) key(key string) string { return sc.prefix() + key }

func (sc *ScopedCache) keys(keys []string) []string {
	if keys == nil {
		return nil
	}
	p := sc.prefix()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = p + k
	}
	return out
}

// unprefix maps a result set keyed by scoped keys back to caller keys.
func unprefix[V any](m map[string]V, p string) map[string]V {
	if p == "" {
		return m
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k[len(p):]] = v
	}
	return out
}

// Get implements Cache.
func (sc *ScopedCache) Get(ctx context.Context, key string) (Value[any], error) {
	return sc.inner.Get(ctx, sc.key(key))
}

// GetAll implements Cache.
func (sc *ScopedCache) GetAll(ctx context.Context, keys []string) (map[string]Value[any], error) {
	m, err := sc.inner.GetAll(ctx, sc.keys(keys))
	if err != nil {
		return nil, err
	}
	return unprefix(m, sc.prefix()), nil
}

// Has implements Cache.
func (sc *ScopedCache) Has(ctx context.Context, key string) (bool, error) {
	return sc.inner.Has(ctx, sc.key(key))
}

// GetExpiration implements Cache.
func (sc *ScopedCache) GetExpiration(ctx context.Context, key string) (*time.Duration, error) {
	return sc.inner.GetExpiration(ctx, sc.key(key))
}

// GetAllExpiration implements Cache.
func (sc *ScopedCache) GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error) {
	m, err := sc.inner.GetAllExpiration(ctx, sc.keys(keys))
	if err != nil {
		return nil, err
	}
	return unprefix(m, sc.prefix()), nil
}

// GetList implements Cache.
func (sc *ScopedCache) GetList(ctx context.Context, key string, page, pageSize int) (Value[[]any], error) {
	return sc.inner.GetList(ctx, sc.key(key), page, pageSize)
}

// Set implements Cache.
func (sc *ScopedCache) Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	return sc.inner.Set(ctx, sc.key(key), value, ttl)
}

// Add implements Cache.
func (sc *ScopedCache) Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	return sc.inner.Add(ctx, sc.key(key), value, ttl)
}

// Replace implements Cache.
func (sc *ScopedCache) Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	return sc.inner.Replace(ctx, sc.key(key), value, ttl)
}

// ReplaceIfEqual implements Cache.
func (sc *ScopedCache) ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error) {
	return sc.inner.ReplaceIfEqual(ctx, sc.key(key), value, expected, ttl)
}

// RemoveIfEqual implements Cache.
func (sc *ScopedCache) RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error) {
	return sc.inner.RemoveIfEqual(ctx, sc.key(key), expected)
}

// SetAll implements Cache.
func (sc *ScopedCache) SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error) {
	if values == nil {
		return 0, invalidArgf("values must not be nil")
	}
	p := sc.prefix()
	scoped := make(map[string]any, len(values))
	for k, v := range values {
		scoped[p+k] = v
	}
	return sc.inner.SetAll(ctx, scoped, ttl)
}

// SetExpiration implements Cache.
func (sc *ScopedCache) SetExpiration(ctx context.Context, key string, ttl time.Duration) error {
	return sc.inner.SetExpiration(ctx, sc.key(key), ttl)
}

// SetAllExpiration implements Cache.
func (sc *ScopedCache) SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error {
	if expirations == nil {
		return invalidArgf("expirations must not be nil")
	}
	p := sc.prefix()
	scoped := make(map[string]*time.Duration, len(expirations))
	for k, ttl := range expirations {
		scoped[p+k] = ttl
	}
	return sc.inner.SetAllExpiration(ctx, scoped)
}

// Increment implements Cache.
func (sc *ScopedCache) Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error) {
	return sc.inner.Increment(ctx, sc.key(key), amount, ttl)
}

// IncrementFloat implements Cache.
func (sc *ScopedCache) IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error) {
	return sc.inner.IncrementFloat(ctx, sc.key(key), amount, ttl)
}

// SetIfHigher implements Cache.
func (sc *ScopedCache) SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	return sc.inner.SetIfHigher(ctx, sc.key(key), value, ttl)
}

// SetIfHigherFloat implements Cache.
func (sc *ScopedCache) SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return sc.inner.SetIfHigherFloat(ctx, sc.key(key), value, ttl)
}

// SetIfLower implements Cache.
func (sc *ScopedCache) SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	return sc.inner.SetIfLower(ctx, sc.key(key), value, ttl)
}

// SetIfLowerFloat implements Cache.
func (sc *ScopedCache) SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return sc.inner.SetIfLowerFloat(ctx, sc.key(key), value, ttl)
}

// ListAdd implements Cache.
func (sc *ScopedCache) ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	return sc.inner.ListAdd(ctx, sc.key(key), values, ttl)
}

// ListRemove implements Cache.
func (sc *ScopedCache) ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	return sc.inner.ListRemove(ctx, sc.key(key), values, ttl)
}

// Remove implements Cache.
func (sc *ScopedCache) Remove(ctx context.Context, key string) (bool, error) {
	return sc.inner.Remove(ctx, sc.key(key))
}

// RemoveAll implements Cache. With no keys it removes this scope's
// entries only, via the wrapped cache's prefix removal.
func (sc *ScopedCache) RemoveAll(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return sc.inner.RemoveByPrefix(ctx, sc.prefix())
	}
	return sc.inner.RemoveAll(ctx, sc.keys(keys)...)
}

// RemoveByPrefix implements Cache; prefixes concatenate.
func (sc *ScopedCache) RemoveByPrefix(ctx context.Context, prefix string) (int, error) {
	return sc.inner.RemoveByPrefix(ctx, sc.prefix()+prefix)
}

// Close is a no-op: the scoped view does not own the wrapped cache.
func (sc *ScopedCache) Close() error { return nil }
