package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Increment implements Cache.
func (e *Engine) Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return 0, err
	}

	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	var cur int64
	if present {
		n, err := toInt64(en.value)
		if err != nil {
			// Tolerated: the existing payload is not numeric. Log and
			// treat the key as absent, resetting it to the amount.
			e.log.Error("increment on non-numeric value, resetting",
				zap.String("key", key), zap.Error(err))
			present = false
		} else {
			cur = n
		}
	}
	newVal := cur + amount

	ok, err := e.applyNumericLocked(s, key, en, present, newVal, ttl, now, true)
	s.mu.Unlock()
	if !ok {
		return 0, err
	}

	e.afterWrite()
	return newVal, nil
}

// IncrementFloat implements Cache.
func (e *Engine) IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return 0, err
	}

	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	var cur float64
	if present {
		f, err := toFloat64(en.value)
		if err != nil {
			e.log.Error("increment on non-numeric value, resetting",
				zap.String("key", key), zap.Error(err))
			present = false
		} else {
			cur = f
		}
	}
	newVal := cur + amount

	ok, err := e.applyNumericLocked(s, key, en, present, newVal, ttl, now, true)
	s.mu.Unlock()
	if !ok {
		return 0, err
	}

	e.afterWrite()
	return newVal, nil
}

// SetIfHigher implements Cache.
func (e *Engine) SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	return e.setIfCompare(ctx, key, value, ttl, true)
}

// SetIfLower implements Cache.
func (e *Engine) SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	return e.setIfCompare(ctx, key, value, ttl, false)
}

// SetIfHigherFloat implements Cache.
func (e *Engine) SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return e.setIfCompareFloat(ctx, key, value, ttl, true)
}

// SetIfLowerFloat implements Cache.
func (e *Engine) SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return e.setIfCompareFloat(ctx, key, value, ttl, false)
}

// setIfCompare is the integer conditional-set core. The returned value is
// the signed magnitude of the change: the value itself when the key was
// absent, new-old (or old-new for lower) when the condition was met, and
// 0 when it failed.
func (e *Engine) setIfCompare(ctx context.Context, key string, value int64, ttl *time.Duration, higher bool) (int64, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return 0, err
	}

	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	if !present {
		ok, err := e.applyNumericLocked(s, key, en, false, value, ttl, now, false)
		s.mu.Unlock()
		if !ok {
			return 0, err
		}
		e.afterWrite()
		return value, nil
	}

	cur, err := toInt64(en.value)
	if err != nil {
		// Same degradation as Increment: an unparsable payload is
		// treated as absent and overwritten.
		e.log.Error("conditional set on non-numeric value, resetting",
			zap.String("key", key), zap.Error(err))
		ok, aerr := e.applyNumericLocked(s, key, en, true, value, ttl, now, false)
		s.mu.Unlock()
		if !ok {
			return 0, aerr
		}
		e.afterWrite()
		return value, nil
	}

	if (higher && value <= cur) || (!higher && value >= cur) {
		s.mu.Unlock()
		return 0, nil
	}

	ok, err := e.applyNumericLocked(s, key, en, true, value, ttl, now, false)
	s.mu.Unlock()
	if !ok {
		return 0, err
	}
	e.afterWrite()

	if higher {
		return value - cur, nil
	}
	return cur - value, nil
}

func (e *Engine) setIfCompareFloat(ctx context.Context, key string, value float64, ttl *time.Duration, higher bool) (float64, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		_, err := e.Remove(ctx, key)
		return 0, err
	}

	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	if !present {
		ok, err := e.applyNumericLocked(s, key, en, false, value, ttl, now, false)
		s.mu.Unlock()
		if !ok {
			return 0, err
		}
		e.afterWrite()
		return value, nil
	}

	cur, err := toFloat64(en.value)
	if err != nil {
		e.log.Error("conditional set on non-numeric value, resetting",
			zap.String("key", key), zap.Error(err))
		ok, aerr := e.applyNumericLocked(s, key, en, true, value, ttl, now, false)
		s.mu.Unlock()
		if !ok {
			return 0, aerr
		}
		e.afterWrite()
		return value, nil
	}

	if (higher && value <= cur) || (!higher && value >= cur) {
		s.mu.Unlock()
		return 0, nil
	}

	ok, err := e.applyNumericLocked(s, key, en, true, value, ttl, now, false)
	s.mu.Unlock()
	if !ok {
		return 0, err
	}
	e.afterWrite()

	if higher {
		return value - cur, nil
	}
	return cur - value, nil
}

// applyNumericLocked writes a numeric result under the shard lock. It
// enforces MaxEntrySize like every other write path: ok=false means the
// value was not committed and the operation must return its failure
// value (err is non-nil in strict mode or on an estimator failure).
//
// TTL handling differs between the numeric families:
//   - increments (preserveTTL=true): nil ttl keeps the existing deadline,
//     a positive ttl replaces it; new keys get no deadline from nil.
//   - conditional sets (preserveTTL=false): nil ttl clears the deadline,
//     a positive ttl replaces it.
func (e *Engine) applyNumericLocked(s *shard, key string, en *entry, present bool, value any, ttl *time.Duration, now int64, preserveTTL bool) (bool, error) {
	var expires int64
	switch {
	case ttl != nil:
		expires = now + int64(*ttl)
	case preserveTTL && present:
		expires = en.expiresAt
	default:
		expires = 0
	}

	size, err := e.sizeOf(key, value)
	if err != nil {
		return false, err
	}
	if ok, err := e.checkEntrySize(key, value, size); !ok {
		return false, err
	}
	var oldSize int64
	if en != nil && present {
		oldSize = en.size
		en.value = value
		en.expiresAt = expires
		en.lastAccess = now
		en.lastModified = now
		en.size = size
	} else if en != nil {
		// Resident but expired: reuse the record as a fresh entry.
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
	e.addMemory(size - oldSize)
	return true, nil
}
