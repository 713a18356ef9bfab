package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/policy"
)

const (
	// maintenanceThrottle is the minimum spacing between maintenance runs.
	maintenanceThrottle = 250 * time.Millisecond

	// sweepIdleThreshold keeps the sweep away from entries that were
	// touched a moment ago; a racing reader may still be reporting them.
	sweepIdleThreshold = 300 * time.Millisecond
)

// janitor drives periodic maintenance until the engine closes.
func (e *Engine) janitor(interval time.Duration) {
	defer close(e.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.maintain()
		case <-e.stopJanitor:
			return
		}
	}
}

// maybeMaintain runs maintenance in the background if enough time has
// passed since the last run. Writes never block on it.
func (e *Engine) maybeMaintain() {
	now := e.now()
	last := e.lastMaint.Load()
	if now-last < int64(maintenanceThrottle) {
		return
	}
	if !e.lastMaint.CompareAndSwap(last, now) {
		return // another caller claimed this run
	}
	go e.maintain()
}

// maintain sweeps expired entries, re-checks capacity, and reconciles the
// memory counter against the live entry set.
func (e *Engine) maintain() {
	if e.closed.Load() {
		return
	}
	now := e.now()
	idleBefore := now - int64(sweepIdleThreshold)

	var expired []string
	for _, s := range e.shards {
		s.mu.Lock()
		for k, en := range s.m {
			if en.expired(now) && en.lastAccess <= idleBefore {
				s.removeEntryLocked(e, k, en)
				expired = append(expired, k)
			}
		}
		s.mu.Unlock()
	}
	for _, k := range expired {
		e.expireds.Add(1)
		e.opt.Metrics.Evict(EvictTTL)
		e.notifyExpired(k, true)
	}

	if e.overLimits() {
		e.compact()
	}

	// Recalculate memory from a snapshot of the live set to correct the
	// drift the per-write deltas accumulate.
	if e.opt.SizeCalculator != nil {
		var total int64
		now = e.now()
		for _, s := range e.shards {
			s.mu.RLock()
			for _, en := range s.m {
				if !en.expired(now) {
					total += en.size
				}
			}
			s.mu.RUnlock()
		}
		e.memory.Store(total)
		e.opt.Metrics.Size(e.itemCount(), total)
	} else {
		e.opt.Metrics.Size(e.itemCount(), 0)
	}
}

func (e *Engine) overLimits() bool {
	if e.opt.MaxItems > 0 && e.itemCount() > e.opt.MaxItems {
		return true
	}
	if e.opt.MaxMemory > 0 && e.memory.Load() > e.opt.MaxMemory {
		return true
	}
	return false
}

// compact evicts one victim at a time under a coarse lock, re-checking
// the overflow condition after each removal. The pass is bounded so
// concurrent insertions cannot keep it running forever.
func (e *Engine) compact() {
	e.compactMu.Lock()
	defer e.compactMu.Unlock()

	for i := 0; i < maxCompactionRemovals; i++ {
		overItems := e.opt.MaxItems > 0 && e.itemCount() > e.opt.MaxItems
		overMemory := e.opt.MaxMemory > 0 && e.memory.Load() > e.opt.MaxMemory
		if !overItems && !overMemory {
			return
		}

		// Item-count overflow uses LRU; memory overflow uses the
		// size-aware waste score.
		pol := e.lruPolicy
		reason := EvictPolicy
		if overMemory && !overItems {
			pol = e.wastePolicy
			reason = EvictCapacity
		}

		now := e.now()
		key, ok := pol.Victim(now, e.candidates(now))
		if !ok {
			return
		}
		if !e.evict(key, reason) {
			// Lost a race with a concurrent remove; try the next victim.
			continue
		}
	}
	if e.overLimits() {
		e.log.Warn("compaction removal bound reached while still over limits",
			zap.Int("bound", maxCompactionRemovals))
	}
}

// candidates snapshots the resident entries for victim selection.
func (e *Engine) candidates(now int64) []policy.Candidate {
	out := make([]policy.Candidate, 0, 64)
	for _, s := range e.shards {
		s.mu.RLock()
		for k, en := range s.m {
			out = append(out, policy.Candidate{
				Key:          k,
				Size:         en.size,
				LastAccess:   en.lastAccess,
				LastModified: en.lastModified,
				Instance:     en.instance,
				Expired:      en.expired(now),
			})
		}
		s.mu.RUnlock()
	}
	return out
}

// evict removes a compaction victim if it is still resident.
func (e *Engine) evict(key string, reason EvictReason) bool {
	s := e.shardFor(key)
	s.mu.Lock()
	en, exists := s.m[key]
	if !exists {
		s.mu.Unlock()
		return false
	}
	expired := en.expired(e.now())
	s.removeEntryLocked(e, key, en)
	s.mu.Unlock()

	if expired {
		reason = EvictTTL
		e.expireds.Add(1)
		e.notifyExpired(key, true)
	}
	e.evicts.Add(1)
	e.opt.Metrics.Evict(reason)
	return true
}
