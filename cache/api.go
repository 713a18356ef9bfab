package cache

import (
	"context"
	"time"
)

// Cache is the contract shared by the in-process engine, the decorators,
// and remote adapters. All methods are safe for concurrent use by
// multiple goroutines; writes to a single key are linearizable with
// respect to subsequent reads of that key.
//
// Keys must be non-empty strings; required collections must be non-nil.
// Violations fail with ErrInvalidArgument.
//
// Optional TTL parameters are *time.Duration (use TTL(d) to build one):
//
//   - nil: operation-specific. Set/Add/Replace clear any existing TTL;
//     Increment and ListRemove preserve the existing TTL (new keys get
//     none); SetIfHigher/SetIfLower clear the TTL when the condition is
//     met and do nothing otherwise; ListAdd records the listed elements
//     as never-expiring.
//   - > 0: sets the TTL (per element for ListAdd).
//   - <= 0: deletes the key (for ListAdd: removes the listed elements)
//     and returns the operation's failure value.
//
// A TTL of NeverExpires is equivalent to nil.
type Cache interface {
	// Get returns the payload for key: Missing if the key is absent or
	// expired, Null if a null payload was stored, Found otherwise.
	Get(ctx context.Context, key string) (Value[any], error)

	// GetAll maps every requested key to its read result.
	GetAll(ctx context.Context, keys []string) (map[string]Value[any], error)

	// Has reports presence under the same miss rules as Get.
	Has(ctx context.Context, key string) (bool, error)

	// GetExpiration returns the remaining TTL, or nil if the key is
	// absent, expired, or has no TTL.
	GetExpiration(ctx context.Context, key string) (*time.Duration, error)

	// GetAllExpiration returns remaining TTLs for the requested keys.
	// Absent and expired keys are omitted; present keys without a TTL map
	// to nil.
	GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error)

	// GetList returns one page (1-based) of the live elements of a list
	// entry, ordered by their canonical string form. Missing if the key
	// is absent, expired, or the live list is empty. Expired elements are
	// filtered without mutating the stored list.
	GetList(ctx context.Context, key string, page, pageSize int) (Value[[]any], error)

	// Set stores key unconditionally.
	Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error)

	// Add stores key only if it is absent (or expired).
	Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error)

	// Replace stores key only if it is already present.
	Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error)

	// ReplaceIfEqual atomically replaces the payload only when the
	// current payload equals expected.
	ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error)

	// RemoveIfEqual atomically removes key only when the current payload
	// equals expected.
	RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error)

	// SetAll stores every pair and returns the number stored.
	SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error)

	// SetExpiration updates a present key's TTL; ttl <= 0 deletes the
	// key. Missing keys are a no-op.
	SetExpiration(ctx context.Context, key string, ttl time.Duration) error

	// SetAllExpiration applies per-key TTL updates: nil clears the TTL,
	// positive sets it, <= 0 deletes the key. Missing keys are ignored.
	SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error

	// Increment atomically adds amount to the key's integer payload,
	// creating the key with value=amount when absent or expired. A
	// non-numeric current payload is logged and treated as absent.
	Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error)

	// IncrementFloat is Increment over the floating-point domain.
	IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error)

	// SetIfHigher stores value only when it is strictly greater than the
	// current payload. Returns the difference new-old when the condition
	// was met, the value itself when the key was absent, and 0 otherwise.
	SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error)

	// SetIfHigherFloat is SetIfHigher over the floating-point domain.
	SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error)

	// SetIfLower is the strictly-less-than counterpart of SetIfHigher.
	SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error)

	// SetIfLowerFloat is SetIfLower over the floating-point domain.
	SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error)

	// ListAdd records the non-nil values as elements of the list entry at
	// key, each with its own expiration instant. Duplicate adds update
	// the element's expiration. Returns the number of distinct elements
	// provided.
	ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error)

	// ListRemove removes the listed elements and prunes already-expired
	// ones. Returns the number of listed elements actually removed.
	ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error)

	// Remove deletes key. Returns false if it was absent or expired.
	Remove(ctx context.Context, key string) (bool, error)

	// RemoveAll deletes the given keys; with no keys it flushes the
	// entire cache. Returns the number of entries removed.
	RemoveAll(ctx context.Context, keys ...string) (int, error)

	// RemoveByPrefix deletes every key with the literal prefix; an empty
	// prefix flushes the entire cache. Returns the number removed.
	RemoveByPrefix(ctx context.Context, prefix string) (int, error)

	// Close releases the cache's resources. Operations after Close fail
	// with ErrInvalidState.
	Close() error
}

// serializationStrictness is probed by the typed read helpers to decide
// whether conversion failures surface or degrade to a miss.
type serializationStrictness interface {
	ThrowsOnSerializationError() bool
}

func strictSerialization(c Cache) bool {
	if s, ok := c.(serializationStrictness); ok {
		return s.ThrowsOnSerializationError()
	}
	return false
}

// GetAs reads key and converts the payload to T. Conversion failures are
// swallowed as a miss unless the cache is configured to surface them.
func GetAs[T any](ctx context.Context, c Cache, key string) (Value[T], error) {
	v, err := c.Get(ctx, key)
	if err != nil {
		return Missing[T](), err
	}
	tv, err := As[T](v)
	if err != nil && !strictSerialization(c) {
		return Missing[T](), nil
	}
	return tv, err
}

// GetAllAs reads the given keys and converts each payload to T.
func GetAllAs[T any](ctx context.Context, c Cache, keys []string) (map[string]Value[T], error) {
	vs, err := c.GetAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	strict := strictSerialization(c)
	out := make(map[string]Value[T], len(vs))
	for k, v := range vs {
		tv, err := As[T](v)
		if err != nil {
			if strict {
				return nil, err
			}
			tv = Missing[T]()
		}
		out[k] = tv
	}
	return out, nil
}

// GetListAs reads one page of a list entry and converts each element to T.
func GetListAs[T any](ctx context.Context, c Cache, key string, page, pageSize int) (Value[[]T], error) {
	v, err := c.GetList(ctx, key, page, pageSize)
	if err != nil {
		return Missing[[]T](), err
	}
	if !v.HasValue() {
		return Missing[[]T](), nil
	}
	strict := strictSerialization(c)
	elems := v.Value()
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		tv, err := coerce[T](el)
		if err != nil {
			if strict {
				return Missing[[]T](), err
			}
			continue
		}
		out = append(out, tv)
	}
	return Found(out), nil
}
