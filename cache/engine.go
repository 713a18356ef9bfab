package cache

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/internal/util"
	"github.com/IvanBrykalov/hybridcache/policy"
	"github.com/IvanBrykalov/hybridcache/policy/lru"
	"github.com/IvanBrykalov/hybridcache/policy/waste"
)

// maxCompactionRemovals bounds the work of a single compaction pass so
// concurrent insertions cannot turn it into an unbounded loop.
const maxCompactionRemovals = 10

// Engine is the in-process cache: a sharded map of key→entry with
// per-key expiration, atomic numeric and list operations, bounded
// capacity with size-aware eviction, and expiration notifications.
// All methods are safe for concurrent use by multiple goroutines.
type Engine struct {
	shards []*shard
	opt    Options
	log    *zap.Logger

	closed atomic.Bool
	seq    atomic.Int64

	hits     util.PaddedAtomicInt64
	misses   util.PaddedAtomicInt64
	writes   util.PaddedAtomicInt64
	memory   util.PaddedAtomicInt64
	evicts   util.PaddedAtomicInt64
	expireds util.PaddedAtomicInt64

	// Victim selection strategies; lruPolicy for item-count overflow,
	// wastePolicy for memory overflow.
	lruPolicy   policy.Policy
	wastePolicy policy.Policy

	// Entry-by-entry compaction runs under this coarse lock so evictions
	// do not interleave.
	compactMu sync.Mutex

	// UnixNano of the last maintenance run (throttle).
	lastMaint util.PaddedAtomicInt64

	subMu  sync.Mutex
	subSeq int64
	subs   map[int64]func(ExpiredArgs)

	stopJanitor chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

var _ Cache = (*Engine)(nil)

type shard struct {
	mu sync.RWMutex
	m  map[string]*entry
}

// New constructs an Engine with the provided Options.
func New(opt Options) (*Engine, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}
	shards := make([]*shard, sh)
	for i := range shards {
		shards[i] = &shard{m: make(map[string]*entry)}
	}

	e := &Engine{
		shards:      shards,
		opt:         opt,
		log:         opt.Logger,
		lruPolicy:   lru.New(),
		wastePolicy: waste.New(),
		subs:        make(map[int64]func(ExpiredArgs)),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	interval := opt.MaintenanceInterval
	if interval == 0 {
		interval = maintenanceThrottle
	}
	if interval > 0 {
		go e.janitor(interval)
	} else {
		close(e.janitorDone)
	}
	return e, nil
}

// ---- guards and small helpers ----

func (e *Engine) now() int64 {
	if e.opt.Clock != nil {
		return e.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

func (e *Engine) guard(ctx context.Context) error {
	if e.closed.Load() {
		return ErrInvalidState
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) keyGuard(ctx context.Context, key string) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if key == "" {
		return invalidArgf("key must not be empty")
	}
	return nil
}

func (e *Engine) shardFor(key string) *shard {
	return e.shards[util.ShardIndex(util.KeyHash(key), len(e.shards))]
}

func (e *Engine) nextInstance() int64 { return e.seq.Add(1) }

func (e *Engine) hit() {
	e.hits.Add(1)
	e.opt.Metrics.Hit()
}

func (e *Engine) miss() {
	e.misses.Add(1)
	e.opt.Metrics.Miss()
}

// addMemory applies a signed delta to the memory counter, clamping at
// zero and at MaxInt64.
func (e *Engine) addMemory(delta int64) {
	if delta == 0 {
		return
	}
	for {
		cur := e.memory.Load()
		next := cur + delta
		if delta > 0 && next < cur {
			e.log.Warn("cache memory counter saturated at max")
			next = math.MaxInt64
		}
		if next < 0 {
			next = 0
		}
		if e.memory.CompareAndSwap(cur, next) {
			return
		}
	}
}

// sizeOf estimates a value's size. Estimator failures surface as
// ErrCacheFailure: the estimate gates MaxEntrySize and the memory
// budget, so a write cannot proceed without one.
func (e *Engine) sizeOf(key string, v any) (int64, error) {
	if e.opt.SizeCalculator == nil {
		return 0, nil
	}
	n, err := e.opt.SizeCalculator(v)
	if err != nil {
		return 0, fmt.Errorf("%w: size calculator on %q: %v", ErrCacheFailure, key, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// checkEntrySize enforces MaxEntrySize. ok=false means the write must
// fail with the operation's failure value (err is non-nil in strict mode).
func (e *Engine) checkEntrySize(key string, v any, size int64) (ok bool, err error) {
	if e.opt.MaxEntrySize <= 0 || size <= e.opt.MaxEntrySize {
		return true, nil
	}
	if e.opt.ThrowOnMaxEntrySizeExceeded {
		return false, &MaxEntrySizeError{Key: key, Size: size, Max: e.opt.MaxEntrySize, TypeName: typeName(v)}
	}
	e.log.Debug("write rejected: max entry size exceeded",
		zap.String("key", key), zap.Int64("size", size), zap.Int64("max", e.opt.MaxEntrySize))
	return false, nil
}

// removeEntryLocked deletes an entry under the shard lock and releases
// its bytes from the memory counter.
func (s *shard) removeEntryLocked(e *Engine, key string, en *entry) {
	delete(s.m, key)
	e.addMemory(-en.size)
	en.size = 0
}

// markExpiredLocked makes the entry semantically absent without deleting
// it; the maintenance sweep reclaims it and emits the notification.
func (s *shard) markExpiredLocked(e *Engine, en *entry, now int64) {
	en.expiresAt = now - 1
	e.addMemory(-en.size)
	en.size = 0
}

// ThrowsOnSerializationError reports the engine's strict-read setting;
// used by the typed read helpers.
func (e *Engine) ThrowsOnSerializationError() bool { return e.opt.ThrowOnSerializationError }

// ---- write modes ----

type writeMode int

const (
	writeAlways writeMode = iota
	writeIfAbsent
	writeIfPresent
)

// upsert is the shared path behind Set/Add/Replace/SetAll.
func (e *Engine) upsert(key string, value any, ttl *time.Duration, mode writeMode) (bool, error) {
	now := e.now()
	var expires int64
	if ttl != nil {
		expires = now + int64(*ttl)
	}

	if e.opt.CloneOnAccess {
		value = deepClone(value)
	}
	size, err := e.sizeOf(key, value)
	if err != nil {
		return false, err
	}
	if ok, err := e.checkEntrySize(key, value, size); !ok {
		return false, err
	}

	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	switch mode {
	case writeIfAbsent:
		if present {
			s.mu.Unlock()
			return false, nil
		}
	case writeIfPresent:
		if !present {
			s.mu.Unlock()
			return false, nil
		}
	}

	var oldSize int64
	if exists {
		oldSize = en.size
		en.value = value
		en.expiresAt = expires
		en.lastAccess = now
		en.lastModified = now
		en.instance = e.nextInstance()
		en.size = size
	} else {
		s.m[key] = &entry{
			value:        value,
			expiresAt:    expires,
			lastAccess:   now,
			lastModified: now,
			instance:     e.nextInstance(),
			size:         size,
		}
	}
	s.mu.Unlock()

	e.addMemory(size - oldSize)
	e.afterWrite()
	return true, nil
}

// afterWrite updates write accounting and keeps the cache within its
// caps; callers must not hold a shard lock.
func (e *Engine) afterWrite() {
	e.writes.Add(1)
	e.opt.Metrics.Write()
	if e.overLimits() {
		e.compact()
	}
	e.maybeMaintain()
}

// ---- reads ----

// Get implements Cache.
func (e *Engine) Get(ctx context.Context, key string) (Value[any], error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return Missing[any](), err
	}
	v, _, ok := e.read(key)
	if !ok {
		e.miss()
		return Missing[any](), nil
	}
	e.hit()
	if v == nil {
		return Null[any](), nil
	}
	if lv, isList := v.(listValue); isList {
		return Found[any](lv.live(e.now())), nil
	}
	if e.opt.CloneOnAccess {
		v = deepClone(v)
	}
	return Found(v), nil
}

// read returns the live payload for key, updating lastAccess. Expired
// entries are reclaimed in place and the expiration notification fires.
func (e *Engine) read(key string) (v any, expiresAt int64, ok bool) {
	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists {
		s.mu.Unlock()
		return nil, 0, false
	}
	if en.expired(now) {
		s.removeEntryLocked(e, key, en)
		s.mu.Unlock()
		e.expireds.Add(1)
		e.opt.Metrics.Evict(EvictTTL)
		e.notifyExpired(key, true)
		return nil, 0, false
	}
	en.lastAccess = now
	v = en.value
	expiresAt = en.expiresAt
	s.mu.Unlock()
	return v, expiresAt, true
}

// GetAll implements Cache.
func (e *Engine) GetAll(ctx context.Context, keys []string) (map[string]Value[any], error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, invalidArgf("keys must not be nil")
	}
	out := make(map[string]Value[any], len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, invalidArgf("key must not be empty")
		}
		v, err := e.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Has implements Cache.
func (e *Engine) Has(ctx context.Context, key string) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	_, _, ok := e.read(key)
	if ok {
		e.hit()
	} else {
		e.miss()
	}
	return ok, nil
}

// GetExpiration implements Cache.
func (e *Engine) GetExpiration(ctx context.Context, key string) (*time.Duration, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return nil, err
	}
	now := e.now()
	s := e.shardFor(key)
	s.mu.RLock()
	en, exists := s.m[key]
	if !exists || en.expired(now) || en.expiresAt == 0 {
		s.mu.RUnlock()
		return nil, nil
	}
	d := time.Duration(en.expiresAt - now)
	s.mu.RUnlock()
	return &d, nil
}

// GetAllExpiration implements Cache.
func (e *Engine) GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, invalidArgf("keys must not be nil")
	}
	now := e.now()
	out := make(map[string]*time.Duration, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, invalidArgf("key must not be empty")
		}
		s := e.shardFor(k)
		s.mu.RLock()
		en, exists := s.m[k]
		switch {
		case !exists || en.expired(now):
			// omitted
		case en.expiresAt == 0:
			out[k] = nil
		default:
			d := time.Duration(en.expiresAt - now)
			out[k] = &d
		}
		s.mu.RUnlock()
	}
	return out, nil
}

// ---- writes ----

// Set implements Cache.
func (e *Engine) Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return false, err
	}
	return e.upsert(key, value, ttl, writeAlways)
}

// Add implements Cache.
func (e *Engine) Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return false, err
	}
	return e.upsert(key, value, ttl, writeIfAbsent)
}

// Replace implements Cache.
func (e *Engine) Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return false, err
	}
	return e.upsert(key, value, ttl, writeIfPresent)
}

// ReplaceIfEqual implements Cache.
func (e *Engine) ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return false, err
	}

	now := e.now()
	var expires int64
	if ttl != nil {
		expires = now + int64(*ttl)
	}
	if e.opt.CloneOnAccess {
		value = deepClone(value)
	}
	size, err := e.sizeOf(key, value)
	if err != nil {
		return false, err
	}
	if ok, err := e.checkEntrySize(key, value, size); !ok {
		return false, err
	}

	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists || en.expired(now) || !equalValues(en.value, expected) {
		s.mu.Unlock()
		return false, nil
	}
	oldSize := en.size
	en.value = value
	en.expiresAt = expires
	en.lastAccess = now
	en.lastModified = now
	en.instance = e.nextInstance()
	en.size = size
	s.mu.Unlock()

	e.addMemory(size - oldSize)
	e.afterWrite()
	return true, nil
}

// RemoveIfEqual implements Cache.
func (e *Engine) RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists || en.expired(now) || !equalValues(en.value, expected) {
		s.mu.Unlock()
		return false, nil
	}
	// Push the deadline into the past; the entry is now semantically
	// absent and the maintenance sweep reclaims it.
	s.markExpiredLocked(e, en, now)
	s.mu.Unlock()
	e.maybeMaintain()
	return true, nil
}

// SetAll implements Cache.
func (e *Engine) SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error) {
	if err := e.guard(ctx); err != nil {
		return 0, err
	}
	if values == nil {
		return 0, invalidArgf("values must not be nil")
	}
	for k := range values {
		if k == "" {
			return 0, invalidArgf("key must not be empty")
		}
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		for k := range values {
			if _, err := e.Remove(ctx, k); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	n := 0
	for k, v := range values {
		ok, err := e.upsert(k, v, ttl, writeAlways)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// SetExpiration implements Cache.
func (e *Engine) SetExpiration(ctx context.Context, key string, ttl time.Duration) error {
	if err := e.keyGuard(ctx, key); err != nil {
		return err
	}
	if ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return err
	}
	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists || en.expired(now) {
		s.mu.Unlock()
		return nil
	}
	if ttl == NeverExpires {
		en.expiresAt = 0
	} else {
		en.expiresAt = now + int64(ttl)
	}
	en.lastModified = now
	s.mu.Unlock()
	return nil
}

// SetAllExpiration implements Cache.
func (e *Engine) SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error {
	if err := e.guard(ctx); err != nil {
		return err
	}
	if expirations == nil {
		return invalidArgf("expirations must not be nil")
	}
	for k := range expirations {
		if k == "" {
			return invalidArgf("key must not be empty")
		}
	}
	now := e.now()
	for k, ttl := range expirations {
		ttl = normalizeTTL(ttl)
		if ttl != nil && *ttl <= 0 {
			if _, err := e.Remove(ctx, k); err != nil {
				return err
			}
			continue
		}
		s := e.shardFor(k)
		s.mu.Lock()
		en, exists := s.m[k]
		if !exists || en.expired(now) {
			s.mu.Unlock()
			continue
		}
		if ttl == nil {
			en.expiresAt = 0
		} else {
			en.expiresAt = now + int64(*ttl)
		}
		en.lastModified = now
		s.mu.Unlock()
	}
	return nil
}

// ---- removal ----

// Remove implements Cache.
func (e *Engine) Remove(ctx context.Context, key string) (bool, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return false, err
	}
	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists {
		s.mu.Unlock()
		return false, nil
	}
	wasLive := !en.expired(now)
	s.removeEntryLocked(e, key, en)
	s.mu.Unlock()
	return wasLive, nil
}

// RemoveAll implements Cache.
func (e *Engine) RemoveAll(ctx context.Context, keys ...string) (int, error) {
	if err := e.guard(ctx); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return e.flush(), nil
	}
	n := 0
	for _, k := range keys {
		if k == "" {
			return n, invalidArgf("key must not be empty")
		}
		removed, err := e.Remove(ctx, k)
		if err != nil {
			return n, err
		}
		if removed {
			n++
		}
	}
	return n, nil
}

func (e *Engine) flush() int {
	now := e.now()
	n := 0
	for _, s := range e.shards {
		s.mu.Lock()
		for _, en := range s.m {
			if !en.expired(now) {
				n++
			}
		}
		s.m = make(map[string]*entry)
		s.mu.Unlock()
	}
	e.memory.Store(0)
	return n
}

// RemoveByPrefix implements Cache.
func (e *Engine) RemoveByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := e.guard(ctx); err != nil {
		return 0, err
	}
	if prefix == "" {
		return e.flush(), nil
	}
	now := e.now()
	n := 0
	for _, s := range e.shards {
		s.mu.Lock()
		for k, en := range s.m {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			if !en.expired(now) {
				n++
			}
			s.removeEntryLocked(e, k, en)
		}
		s.mu.Unlock()
	}
	return n, nil
}

// RemoveExpired drops a key that a peer reported as expired, without
// re-broadcasting: the notification fires with SendNotification=false.
// The hybrid tier uses this to converge on remote expirations.
func (e *Engine) RemoveExpired(ctx context.Context, key string) error {
	if err := e.keyGuard(ctx, key); err != nil {
		return err
	}
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists {
		s.mu.Unlock()
		return nil
	}
	s.removeEntryLocked(e, key, en)
	s.mu.Unlock()
	e.expireds.Add(1)
	e.opt.Metrics.Evict(EvictTTL)
	e.notifyExpired(key, false)
	return nil
}

// ---- introspection ----

// Stats is a snapshot of the engine's counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Writes  int64
	Evicted int64
	Expired int64
	Entries int
	Memory  int64
}

// Stats returns a point-in-time snapshot of the engine counters. Entries
// counts only live (non-expired) entries.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:    e.hits.Load(),
		Misses:  e.misses.Load(),
		Writes:  e.writes.Load(),
		Evicted: e.evicts.Load(),
		Expired: e.expireds.Load(),
		Entries: e.Count(),
		Memory:  e.memory.Load(),
	}
}

// Count returns the number of live entries.
func (e *Engine) Count() int {
	now := e.now()
	n := 0
	for _, s := range e.shards {
		s.mu.RLock()
		for _, en := range s.m {
			if !en.expired(now) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}

// itemCount is the raw resident count, expired entries included; the
// capacity check uses it because expired residents still occupy the map.
func (e *Engine) itemCount() int {
	n := 0
	for _, s := range e.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Close clears the map, stops the maintenance task, and unsubscribes all
// expiration listeners. Further operations fail with ErrInvalidState.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.stopJanitor)
		<-e.janitorDone
		for _, s := range e.shards {
			s.mu.Lock()
			s.m = make(map[string]*entry)
			s.mu.Unlock()
		}
		e.memory.Store(0)
		e.subMu.Lock()
		e.subs = make(map[int64]func(ExpiredArgs))
		e.subMu.Unlock()
	})
	return nil
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
