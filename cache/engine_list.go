package cache

import (
	"context"
	"sort"
	"time"
)

// ListAdd implements Cache.
func (e *Engine) ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	if values == nil {
		return 0, invalidArgf("values must not be nil")
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		// A non-positive TTL removes the listed elements instead of
		// recording them.
		if _, err := e.listRemove(key, values, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	now := e.now()
	var elemExpires int64
	if ttl != nil {
		elemExpires = now + int64(*ttl)
	}

	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	present := exists && !en.expired(now)

	// Work on a copy so a rejected write (oversize, estimator failure)
	// leaves the stored list untouched.
	lv := make(listValue, len(values))
	if present {
		if existing, ok := en.value.(listValue); ok {
			for id, el := range existing {
				lv[id] = el
			}
		}
	}

	// Per-element deadlines keep repeated adds from sliding the whole
	// list's lifetime: each write renews only the elements it names.
	// The return value counts distinct non-nil input elements.
	added := 0
	seen := make(map[any]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		id := normalizeElement(v)
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			added++
		}
		if e.opt.CloneOnAccess {
			v = deepClone(v)
		}
		lv[id] = listElement{value: v, expiresAt: elemExpires}
	}
	lv.prune(now)

	if len(lv) == 0 {
		// Nothing live to keep: either all inputs were nil, or pruning
		// emptied an existing list.
		if exists {
			s.removeEntryLocked(e, key, en)
		}
		s.mu.Unlock()
		return added, nil
	}

	size, err := e.sizeOf(key, lv)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if ok, err := e.checkEntrySize(key, lv, size); !ok {
		s.mu.Unlock()
		return 0, err
	}
	var oldSize int64
	if exists {
		oldSize = en.size
		en.value = lv
		en.expiresAt = lv.entryDeadline()
		en.lastAccess = now
		en.lastModified = now
		en.size = size
		if !present {
			en.instance = e.nextInstance()
		}
	} else {
		s.m[key] = &entry{
			value:        lv,
			expiresAt:    lv.entryDeadline(),
			lastAccess:   now,
			lastModified: now,
			instance:     e.nextInstance(),
			size:         size,
		}
	}
	s.mu.Unlock()

	e.addMemory(size - oldSize)
	e.afterWrite()
	return added, nil
}

// ListRemove implements Cache.
func (e *Engine) ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return 0, err
	}
	if values == nil {
		return 0, invalidArgf("values must not be nil")
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		if _, err := e.Remove(ctx, key); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return e.listRemove(key, values, ttl)
}

// listRemove removes the listed elements, prunes expired ones, and
// applies the entry-level TTL update (nil preserves, positive replaces).
func (e *Engine) listRemove(key string, values []any, ttl *time.Duration) (int, error) {
	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists || en.expired(now) {
		s.mu.Unlock()
		return 0, nil
	}
	existing, ok := en.value.(listValue)
	if !ok {
		s.mu.Unlock()
		return 0, nil
	}

	// Work on a copy so a rejected write leaves the stored list untouched.
	lv := make(listValue, len(existing))
	for id, el := range existing {
		lv[id] = el
	}

	removed := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		id := normalizeElement(v)
		if el, found := lv[id]; found {
			live := el.expiresAt == 0 || el.expiresAt > now
			delete(lv, id)
			if live {
				removed++
			}
		}
	}
	lv.prune(now)

	if len(lv) == 0 {
		s.removeEntryLocked(e, key, en)
		s.mu.Unlock()
		e.afterWrite()
		return removed, nil
	}

	size, err := e.sizeOf(key, lv)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if ok, err := e.checkEntrySize(key, lv, size); !ok {
		s.mu.Unlock()
		return 0, err
	}

	en.value = lv
	if ttl != nil {
		en.expiresAt = now + int64(*ttl)
	} else {
		en.expiresAt = lv.entryDeadline()
	}
	oldSize := en.size
	en.lastAccess = now
	en.lastModified = now
	en.size = size
	s.mu.Unlock()

	e.addMemory(size - oldSize)
	e.afterWrite()
	return removed, nil
}

// GetList implements Cache.
func (e *Engine) GetList(ctx context.Context, key string, page, pageSize int) (Value[[]any], error) {
	if err := e.keyGuard(ctx, key); err != nil {
		return Missing[[]any](), err
	}
	if page < 1 {
		return Missing[[]any](), invalidArgf("page must be >= 1, got %d", page)
	}
	if pageSize < 1 {
		return Missing[[]any](), invalidArgf("page size must be >= 1, got %d", pageSize)
	}

	now := e.now()
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists {
		s.mu.Unlock()
		e.miss()
		return Missing[[]any](), nil
	}
	if en.expired(now) {
		s.removeEntryLocked(e, key, en)
		s.mu.Unlock()
		e.expireds.Add(1)
		e.opt.Metrics.Evict(EvictTTL)
		e.notifyExpired(key, true)
		e.miss()
		return Missing[[]any](), nil
	}
	lv, ok := en.value.(listValue)
	if !ok {
		s.mu.Unlock()
		e.miss()
		return Missing[[]any](), nil
	}
	en.lastAccess = now
	// Read-only view: expired elements are filtered out here without
	// mutating the stored list.
	live := lv.live(now)
	s.mu.Unlock()

	if len(live) == 0 {
		e.miss()
		return Missing[[]any](), nil
	}
	e.hit()

	sort.Slice(live, func(i, j int) bool {
		return canonicalString(live[i]) < canonicalString(live[j])
	})

	start := (page - 1) * pageSize
	if start >= len(live) {
		return Found([]any{}), nil
	}
	end := start + pageSize
	if end > len(live) {
		end = len(live)
	}
	pageElems := live[start:end]

	if e.opt.CloneOnAccess {
		cloned := make([]any, len(pageElems))
		for i, v := range pageElems {
			cloned[i] = deepClone(v)
		}
		pageElems = cloned
	}
	out := make([]any, len(pageElems))
	copy(out, pageElems)
	return Found(out), nil
}
