// Package cache provides a concurrent in-process cache engine with typed
// values, per-key expiration, atomic numeric and list operations, bounded
// capacity with size-aware eviction, and expiration notifications, plus
// the decorators that share its contract.
//
// # Design
//
//   - Concurrency: the engine is split into shards, each protected by an
//     RWMutex. Per-key read-modify-write operations hold the shard lock
//     across the update, which makes every single-key operation atomic.
//     The default shard count is a power of two chosen from CPU
//     parallelism.
//
//   - TTL: deadlines are absolute UnixNano ticks (0 = never). An entry
//     whose deadline has passed is semantically absent everywhere: reads
//     miss, Has reports false, Increment treats the key as new. Expired
//     entries are reclaimed lazily on access and by a throttled
//     background sweep, which also emits expiration notifications.
//
//   - Eviction: when MaxItems is exceeded the LRU policy picks victims
//     (smallest last-access tick, instance number as tiebreaker); when
//     MaxMemory is exceeded a size-aware waste score picks them. Already
//     expired entries are always evicted first. Compaction is bounded per
//     pass and runs after writes and inside maintenance.
//
//   - Sizing: an optional SizeCalculator estimates entry bytes at write
//     time; the size package provides a default estimator. MaxEntrySize
//     rejects oversize writes, silently or loudly per options.
//
//   - Lists: a list entry stores a set of elements, each with its own
//     expiration instant. The entry-level deadline is the maximum of the
//     element deadlines, so re-adding one element never slides the whole
//     list's lifetime.
//
//   - Typed reads: payloads are stored as-is and coerced on read via the
//     generic helpers (GetAs, GetAllAs, GetListAs). Conversion failures
//     degrade to a miss unless ThrowOnSerializationError is set.
//
// # Basic usage
//
//	c, _ := cache.New(cache.Options{MaxItems: 10_000})
//	defer c.Close()
//
//	c.Set(ctx, "greeting", "hello", cache.TTL(time.Minute))
//	v, _ := cache.GetAs[string](ctx, c, "greeting")
//	if v.HasValue() {
//	    _ = v.Value()
//	}
//
// # Counters
//
//	n, _ := c.Increment(ctx, "requests", 1, nil) // preserves existing TTL
//	d, _ := c.SetIfHigher(ctx, "peak", n, nil)   // returns the signed delta
//
// The hybrid package composes this engine with a remote cache and a
// pub/sub channel into a two-tier cache with invalidation; remote/redis
// provides the production remote tier.
package cache
