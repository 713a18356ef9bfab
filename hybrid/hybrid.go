package hybrid

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/cache"
	"github.com/IvanBrykalov/hybridcache/internal/singleflight"
)

// Cache is the two-tier composition: a local in-process engine in front
// of a shared remote cache, kept coherent by invalidation messages.
//
// Reads probe the local engine first; a local miss falls through to the
// remote tier and populates the local copy with the remote's remaining
// TTL. Every write flows through to the remote tier and broadcasts
// exactly one invalidation carrying this instance's id; receivers drop
// their own echoes, so a writer never evicts the copy it just wrote.
type Cache struct {
	id     string
	local  *cache.Engine
	remote cache.Cache
	bus    Bus
	log    *zap.Logger

	ownsRemote bool

	localHits     atomic.Int64
	remoteHits    atomic.Int64
	invalidations atomic.Int64

	// remote reads for one key are coalesced while a flight is out.
	sf singleflight.Group[remoteRead]

	cancelSub func()
	cancelExp func()
}

type remoteRead struct {
	value cache.Value[any]
	ttl   *time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a hybrid Cache.
type Option func(*Cache)

// WithLogger routes the hybrid tier's warnings to log.
func WithLogger(log *zap.Logger) Option {
	return func(h *Cache) { h.log = log }
}

// WithOwnedRemote makes Close cascade to the remote cache.
func WithOwnedRemote() Option {
	return func(h *Cache) { h.ownsRemote = true }
}

// New composes local, remote, and bus into a hybrid cache. The
// subscription is established here; message handling operates only on
// the local engine and therefore never contends with a caller's write
// path. New takes ownership of local: Close closes it.
func New(local *cache.Engine, remote cache.Cache, bus Bus, opts ...Option) (*Cache, error) {
	if local == nil || remote == nil || bus == nil {
		return nil, cache.ErrInvalidArgument
	}
	h := &Cache{
		// A fresh id per engine instance, never host identity: several
		// peers must be able to share one process in tests.
		id:     uuid.NewString(),
		local:  local,
		remote: remote,
		bus:    bus,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	cancel, err := bus.Subscribe(context.Background(), h.onMessage)
	if err != nil {
		return nil, err
	}
	h.cancelSub = cancel
	h.cancelExp = local.OnEntryExpired(h.onLocalExpired)
	return h, nil
}

// InstanceID returns this instance's unique id (the echo-suppression key).
func (h *Cache) InstanceID() string { return h.id }

// LocalHits returns the number of reads served by the local tier.
func (h *Cache) LocalHits() int64 { return h.localHits.Load() }

// RemoteHits returns the number of local misses served by the remote tier.
func (h *Cache) RemoteHits() int64 { return h.remoteHits.Load() }

// Invalidations returns the number of peer messages applied locally.
func (h *Cache) Invalidations() int64 { return h.invalidations.Load() }

// ThrowsOnSerializationError forwards the local engine's strict-read setting.
func (h *Cache) ThrowsOnSerializationError() bool { return h.local.ThrowsOnSerializationError() }

// ---- message handling ----

func (h *Cache) onMessage(msg Message) {
	if msg.OriginID == h.id {
		return // own echo
	}
	ctx := context.Background()
	h.invalidations.Add(1)

	if msg.FlushAll {
		if _, err := h.local.RemoveAll(ctx); err != nil {
			h.log.Warn("hybrid: flush-all invalidation failed", zap.Error(err))
		}
		return
	}
	for _, key := range msg.Keys {
		var err error
		switch {
		case strings.HasSuffix(key, "*"):
			_, err = h.local.RemoveByPrefix(ctx, strings.TrimSuffix(key, "*"))
		case msg.Expired:
			// The peer's copy expired; drop ours the same way without
			// echoing the expiration back onto the bus.
			err = h.local.RemoveExpired(ctx, key)
		default:
			_, err = h.local.Remove(ctx, key)
		}
		if err != nil {
			h.log.Warn("hybrid: invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (h *Cache) onLocalExpired(args cache.ExpiredArgs) {
	if !args.SendNotification {
		return
	}
	h.publish(Message{OriginID: h.id, Keys: []string{args.Key}, Expired: true})
}

// publish broadcasts fire-and-forget; a bus failure degrades coherence,
// not the write itself.
func (h *Cache) publish(msg Message) {
	if err := h.bus.Publish(context.Background(), msg); err != nil {
		h.log.Warn("hybrid: publish failed", zap.Strings("keys", msg.Keys), zap.Error(err))
	}
}

func (h *Cache) invalidate(keys ...string) {
	h.publish(Message{OriginID: h.id, Keys: keys})
}

// ---- reads ----

// Get implements cache.Cache.
func (h *Cache) Get(ctx context.Context, key string) (cache.Value[any], error) {
	v, err := h.local.Get(ctx, key)
	if err != nil {
		return cache.Missing[any](), err
	}
	if v.HasValue() {
		h.localHits.Add(1)
		return v, nil
	}

	r, err := h.sf.Do(ctx, key, func() (remoteRead, error) {
		rv, err := h.remote.Get(ctx, key)
		if err != nil || !rv.HasValue() {
			return remoteRead{value: rv}, err
		}
		ttl, err := h.remote.GetExpiration(ctx, key)
		if err != nil {
			return remoteRead{}, err
		}
		return remoteRead{value: rv, ttl: ttl}, nil
	})
	if err != nil {
		return cache.Missing[any](), err
	}
	if !r.value.HasValue() {
		return r.value, nil
	}

	h.remoteHits.Add(1)
	// Populate the local copy with the remote's remaining lifetime.
	var payload any
	if !r.value.IsNull() {
		payload = r.value.Value()
	}
	if _, err := h.local.Set(ctx, key, payload, r.ttl); err != nil {
		h.log.Warn("hybrid: local populate failed", zap.String("key", key), zap.Error(err))
	}
	return r.value, nil
}

// GetAll implements cache.Cache.
func (h *Cache) GetAll(ctx context.Context, keys []string) (map[string]cache.Value[any], error) {
	if keys == nil {
		return nil, cache.ErrInvalidArgument
	}
	out := make(map[string]cache.Value[any], len(keys))
	for _, k := range keys {
		v, err := h.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Has implements cache.Cache.
func (h *Cache) Has(ctx context.Context, key string) (bool, error) {
	ok, err := h.local.Has(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		h.localHits.Add(1)
		return true, nil
	}
	return h.remote.Has(ctx, key)
}

// GetExpiration implements cache.Cache; the remote tier is authoritative
// for lifetimes.
func (h *Cache) GetExpiration(ctx context.Context, key string) (*time.Duration, error) {
	return h.remote.GetExpiration(ctx, key)
}

// GetAllExpiration implements cache.Cache.
func (h *Cache) GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error) {
	return h.remote.GetAllExpiration(ctx, keys)
}

// GetList implements cache.Cache. List payloads are not locally cached —
// their per-element lifetimes cannot be represented by a plain local
// copy — so pages come straight from the remote tier.
func (h *Cache) GetList(ctx context.Context, key string, page, pageSize int) (cache.Value[[]any], error) {
	return h.remote.GetList(ctx, key, page, pageSize)
}

// ---- writes ----

// Set implements cache.Cache.
func (h *Cache) Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := h.remote.Set(ctx, key, value, ttl)
	if err != nil {
		return false, err
	}
	if _, lerr := h.local.Set(ctx, key, value, ttl); lerr != nil {
		h.log.Warn("hybrid: local set failed", zap.String("key", key), zap.Error(lerr))
	}
	h.invalidate(key)
	return ok, nil
}

// Add implements cache.Cache.
func (h *Cache) Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := h.remote.Add(ctx, key, value, ttl)
	if err != nil || !ok {
		return ok, err
	}
	if _, lerr := h.local.Set(ctx, key, value, ttl); lerr != nil {
		h.log.Warn("hybrid: local set failed", zap.String("key", key), zap.Error(lerr))
	}
	h.invalidate(key)
	return true, nil
}

// Replace implements cache.Cache.
func (h *Cache) Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	ok, err := h.remote.Replace(ctx, key, value, ttl)
	if err != nil || !ok {
		return ok, err
	}
	if _, lerr := h.local.Set(ctx, key, value, ttl); lerr != nil {
		h.log.Warn("hybrid: local set failed", zap.String("key", key), zap.Error(lerr))
	}
	h.invalidate(key)
	return true, nil
}

// ReplaceIfEqual implements cache.Cache. The remote compare is the
// authoritative one; the local copy is dropped rather than updated so the
// next read re-fetches the agreed value.
func (h *Cache) ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error) {
	ok, err := h.remote.ReplaceIfEqual(ctx, key, value, expected, ttl)
	if err != nil {
		return false, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return ok, nil
}

// RemoveIfEqual implements cache.Cache.
func (h *Cache) RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error) {
	ok, err := h.remote.RemoveIfEqual(ctx, key, expected)
	if err != nil {
		return false, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return ok, nil
}

// SetAll implements cache.Cache.
func (h *Cache) SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error) {
	n, err := h.remote.SetAll(ctx, values, ttl)
	if err != nil {
		return n, err
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if _, lerr := h.local.Set(ctx, k, v, ttl); lerr != nil {
			h.log.Warn("hybrid: local set failed", zap.String("key", k), zap.Error(lerr))
		}
		keys = append(keys, k)
	}
	h.invalidate(keys...)
	return n, nil
}

// SetExpiration implements cache.Cache.
func (h *Cache) SetExpiration(ctx context.Context, key string, ttl time.Duration) error {
	if err := h.remote.SetExpiration(ctx, key, ttl); err != nil {
		return err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return nil
}

// SetAllExpiration implements cache.Cache.
func (h *Cache) SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error {
	if err := h.remote.SetAllExpiration(ctx, expirations); err != nil {
		return err
	}
	keys := make([]string, 0, len(expirations))
	for k := range expirations {
		h.dropLocal(ctx, k)
		keys = append(keys, k)
	}
	h.invalidate(keys...)
	return nil
}

// Increment implements cache.Cache. Numeric state lives in the remote
// tier so concurrent peers agree on the result.
func (h *Cache) Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error) {
	n, err := h.remote.Increment(ctx, key, amount, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// IncrementFloat implements cache.Cache.
func (h *Cache) IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error) {
	n, err := h.remote.IncrementFloat(ctx, key, amount, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// SetIfHigher implements cache.Cache.
func (h *Cache) SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	n, err := h.remote.SetIfHigher(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// SetIfHigherFloat implements cache.Cache.
func (h *Cache) SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	n, err := h.remote.SetIfHigherFloat(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// SetIfLower implements cache.Cache.
func (h *Cache) SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	n, err := h.remote.SetIfLower(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// SetIfLowerFloat implements cache.Cache.
func (h *Cache) SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	n, err := h.remote.SetIfLowerFloat(ctx, key, value, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// ListAdd implements cache.Cache.
func (h *Cache) ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	n, err := h.remote.ListAdd(ctx, key, values, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// ListRemove implements cache.Cache.
func (h *Cache) ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	n, err := h.remote.ListRemove(ctx, key, values, ttl)
	if err != nil {
		return 0, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return n, nil
}

// Remove implements cache.Cache.
func (h *Cache) Remove(ctx context.Context, key string) (bool, error) {
	ok, err := h.remote.Remove(ctx, key)
	if err != nil {
		return false, err
	}
	h.dropLocal(ctx, key)
	h.invalidate(key)
	return ok, nil
}

// RemoveAll implements cache.Cache.
func (h *Cache) RemoveAll(ctx context.Context, keys ...string) (int, error) {
	n, err := h.remote.RemoveAll(ctx, keys...)
	if err != nil {
		return 0, err
	}
	if _, lerr := h.local.RemoveAll(ctx, keys...); lerr != nil {
		h.log.Warn("hybrid: local remove failed", zap.Error(lerr))
	}
	if len(keys) == 0 {
		h.publish(Message{OriginID: h.id, FlushAll: true})
	} else {
		h.invalidate(keys...)
	}
	return n, nil
}

// RemoveByPrefix implements cache.Cache. Peers receive the prefix as a
// single "prefix*" key.
func (h *Cache) RemoveByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := h.remote.RemoveByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if _, lerr := h.local.RemoveByPrefix(ctx, prefix); lerr != nil {
		h.log.Warn("hybrid: local remove failed", zap.Error(lerr))
	}
	h.invalidate(prefix + "*")
	return n, nil
}

func (h *Cache) dropLocal(ctx context.Context, key string) {
	if _, err := h.local.Remove(ctx, key); err != nil {
		h.log.Warn("hybrid: local remove failed", zap.String("key", key), zap.Error(err))
	}
}

// Close cancels the subscription and closes the local engine; the remote
// cache is closed only when WithOwnedRemote was set.
func (h *Cache) Close() error {
	if h.cancelExp != nil {
		h.cancelExp()
	}
	if h.cancelSub != nil {
		h.cancelSub()
	}
	err := h.local.Close()
	if h.ownsRemote {
		if rerr := h.remote.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
