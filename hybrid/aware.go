package hybrid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/cache"
)

// Aware decorates a remote cache for writers that keep no local tier:
// every write publishes the same invalidation message a hybrid instance
// would, so peer hybrids evict their local copies. Reads go straight to
// the remote cache.
type Aware struct {
	id     string
	remote cache.Cache
	bus    Bus
	log    *zap.Logger
}

var _ cache.Cache = (*Aware)(nil)

// NewAware wraps remote so that writes broadcast invalidations on bus.
func NewAware(remote cache.Cache, bus Bus, opts ...AwareOption) (*Aware, error) {
	if remote == nil || bus == nil {
		return nil, cache.ErrInvalidArgument
	}
	a := &Aware{
		id:     uuid.NewString(),
		remote: remote,
		bus:    bus,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AwareOption configures an Aware decorator.
type AwareOption func(*Aware)

// WithAwareLogger routes the decorator's warnings to log.
func WithAwareLogger(log *zap.Logger) AwareOption {
	return func(a *Aware) { a.log = log }
}

// InstanceID returns the id attached to outbound invalidations.
func (a *Aware) InstanceID() string { return a.id }

// ThrowsOnSerializationError forwards the remote cache's strict-read setting.
func (a *Aware) ThrowsOnSerializationError() bool {
	type strict interface{ ThrowsOnSerializationError() bool }
	if s, ok := a.remote.(strict); ok {
		return s.ThrowsOnSerializationError()
	}
	return false
}

func (a *Aware) invalidate(keys ...string) {
	if err := a.bus.Publish(context.Background(), Message{OriginID: a.id, Keys: keys}); err != nil {
		a.log.Warn("hybrid-aware: publish failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Get implements cache.Cache.
func (a *Aware) Get(ctx context.Context, key string) (cache.Value[any], error) {
	return a.remote.Get(ctx, key)
}

// GetAll implements cache.Cache.
func (a *Aware) GetAll(ctx context.Context, keys []string) (map[string]cache.Value[any], error) {
	return a.remote.GetAll(ctx, keys)
}

// Has implements cache.Cache.
func (a *Aware) Has(ctx context.Context, key string) (bool, error) {
	return a.remote.Has(ctx, key)
}

// GetExpiration implements cache.Cache.
func (a *Aware) GetExpiration(ctx context.Context, key string) (*time.Duration, error) {
	return a.remote.GetExpiration(ctx, key)
}

// GetAllExpiration implements cache.Cache.
func (a *Aware) GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error) {
	return a.remote.GetAllExpiration(ctx, keys)
}

// GetList implements cache.Cache.
func (a *Aware) GetList(ctx context.Context, key string, page, pageSize int) (cache.Value[[]any], error) {
	return a.remote.GetList(ctx, key, page, pageSize)
}

// Set implements cache.Cache.
func (a *Aware) Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := a.remote.Set(ctx, key, value, ttl)
	if err != nil {
		return false, err
	}
	a.invalidate(key)
	return ok, nil
}

// Add implements cache.Cache.
func (a *Aware) Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := a.remote.Add(ctx, key, value, ttl)
	if err != nil || !ok {
		return ok, err
	}
	a.invalidate(key)
	return true, nil
}

// Replace implements cache.Cache.
func (a *Aware) Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := a.remote.Replace(ctx, key, value, ttl)
	if err != nil || !ok {
		return ok, err
	}
	a.invalidate(key)
	return true, nil
}

// ReplaceIfEqual implements cache.Cache.
func (a *Aware) ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error) {
	ok, err := a.remote.ReplaceIfEqual(ctx, key, value, expected, ttl)
	if err != nil {
		return false, err
	}
	a.invalidate(key)
	return ok, nil
}

// RemoveIfEqual implements cache.Cache.
func (a *Aware) RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error) {
	ok, err := a.remote.RemoveIfEqual(ctx, key, expected)
	if err != nil {
		return false, err
	}
	a.invalidate(key)
	return ok, nil
}

// SetAll implements cache.Cache.
func (a *Aware) SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error) {
	n, err := a.remote.SetAll(ctx, values, ttl)
	if err != nil {
		return n, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	a.invalidate(keys...)
	return n, nil
}

// SetExpiration implements cache.Cache.
func (a *Aware) SetExpiration(ctx context.Context, key string, ttl time.Duration) error {
	if err := a.remote.SetExpiration(ctx, key, ttl); err != nil {
		return err
	}
	a.invalidate(key)
	return nil
}

// SetAllExpiration implements cache.Cache.
func (a *Aware) SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error {
	if err := a.remote.SetAllExpiration(ctx, expirations); err != nil {
		return err
	}
	keys := make([]string, 0, len(expirations))
	for k := range expirations {
		keys = append(keys, k)
	}
	a.invalidate(keys...)
	return nil
}

// Increment implements cache.Cache.
func (a *Aware) Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error) {
	n, err := a.remote.Increment(ctx, key, amount, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// IncrementFloat implements cache.Cache.
func (a *Aware) IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error) {
	n, err := a.remote.IncrementFloat(ctx, key, amount, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// SetIfHigher implements cache.Cache.
func (a *Aware) SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	n, err := a.remote.SetIfHigher(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// SetIfHigherFloat implements cache.Cache.
func (a *Aware) SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	n, err := a.remote.SetIfHigherFloat(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// SetIfLower implements cache.Cache.
func (a *Aware) SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	n, err := a.remote.SetIfLower(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// SetIfLowerFloat implements cache.Cache.
func (a *Aware) SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	n, err := a.remote.SetIfLowerFloat(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// ListAdd implements cache.Cache.
func (a *Aware) ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	n, err := a.remote.ListAdd(ctx, key, values, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// ListRemove implements cache.Cache.
func (a *Aware) ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	n, err := a.remote.ListRemove(ctx, key, values, ttl)
	if err != nil {
		return 0, err
	}
	a.invalidate(key)
	return n, nil
}

// Remove implements cache.Cache.
func (a *Aware) Remove(ctx context.Context, key string) (bool, error) {
	ok, err := a.remote.Remove(ctx, key)
	if err != nil {
		return false, err
	}
	a.invalidate(key)
	return ok, nil
}

// RemoveAll implements cache.Cache.
func (a *Aware) RemoveAll(ctx context.Context, keys ...string) (int, error) {
	n, err := a.remote.RemoveAll(ctx, keys...)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		if perr := a.bus.Publish(context.Background(), Message{OriginID: a.id, FlushAll: true}); perr != nil {
			a.log.Warn("hybrid-aware: publish failed", zap.Error(perr))
		}
	} else {
		a.invalidate(keys...)
	}
	return n, nil
}

// RemoveByPrefix implements cache.Cache.
func (a *Aware) RemoveByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := a.remote.RemoveByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	a.invalidate(prefix + "*")
	return n, nil
}

// Close is a no-op: the decorator does not own the remote cache.
func (a *Aware) Close() error { return nil }
