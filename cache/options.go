package cache

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// SizeCalculator estimates the bytes a value occupies. Estimates feed the
// memory counter and the MaxEntrySize check; exact heap accounting is not
// a goal.
type SizeCalculator func(v any) (int64, error)

// TTL wraps a duration for operations whose expiration parameter is
// optional. Passing nil means "no TTL argument", which each operation
// interprets per its own contract (see the Cache interface).
func TTL(d time.Duration) *time.Duration { return &d }

// NeverExpires is a TTL equivalent to passing no expiration at all.
const NeverExpires = time.Duration(math.MaxInt64)

// normalizeTTL collapses NeverExpires to "absent".
func normalizeTTL(ttl *time.Duration) *time.Duration {
	if ttl != nil && *ttl == NeverExpires {
		return nil
	}
	return ttl
}

// Options configures an Engine. Zero values are safe; sane defaults are
// applied in New():
//   - nil Metrics  -> NoopMetrics
//   - nil Logger   -> zap.NewNop()
//   - Shards <= 0  -> auto (rounded up to power of two)
type Options struct {
	// MaxItems caps the number of resident entries. 0 disables the cap.
	MaxItems int

	// MaxMemory caps the estimated resident bytes. Requires SizeCalculator.
	MaxMemory int64

	// MaxEntrySize rejects single writes above this estimate. Requires
	// SizeCalculator and must be <= MaxMemory when both are set.
	MaxEntrySize int64

	// Shards defines the number of shards. If 0, an automatic value is
	// chosen (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int

	// CloneOnAccess deep-copies mutable values on reads and writes so
	// callers cannot mutate cached state. Primitives, strings, and
	// time.Time are never cloned.
	CloneOnAccess bool

	// SizeCalculator estimates entry sizes. Nil disables size accounting.
	SizeCalculator SizeCalculator

	// ThrowOnSerializationError surfaces payload conversion failures from
	// typed reads instead of degrading them to a miss.
	ThrowOnSerializationError bool

	// ThrowOnMaxEntrySizeExceeded turns oversize writes into a
	// *MaxEntrySizeError instead of a silent failure value.
	ThrowOnMaxEntrySizeExceeded bool

	// MaintenanceInterval throttles the background sweep. 0 means the
	// 250ms default; negative disables the janitor goroutine entirely
	// (maintenance still piggybacks on writes).
	MaintenanceInterval time.Duration

	// Metrics receives hit/miss/write/evict/expire signals.
	Metrics Metrics

	// Clock overrides the time source (tests). Nil => time.Now().
	Clock Clock

	// Logger receives warnings (counter saturation, compaction issues)
	// and errors (numeric parse degradation). Nil => no-op.
	Logger *zap.Logger
}

func (o *Options) validate() error {
	if o.MaxItems < 0 || o.MaxMemory < 0 || o.MaxEntrySize < 0 {
		return invalidArgf("limits must not be negative")
	}
	if o.MaxMemory > 0 && o.SizeCalculator == nil {
		return invalidArgf("MaxMemory requires a SizeCalculator")
	}
	if o.MaxEntrySize > 0 && o.SizeCalculator == nil {
		return invalidArgf("MaxEntrySize requires a SizeCalculator")
	}
	if o.MaxEntrySize > 0 && o.MaxMemory > 0 && o.MaxEntrySize > o.MaxMemory {
		return invalidArgf("MaxEntrySize (%d) must be <= MaxMemory (%d)", o.MaxEntrySize, o.MaxMemory)
	}
	return nil
}
