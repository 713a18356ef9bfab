package util

import "sync/atomic"

// CacheLineSize is a reasonable default for modern CPUs.
const CacheLineSize = 64

// PaddedAtomicInt64 is an atomic int64 padded to one cache line so that
// hot counters updated by many goroutines do not falsely share a line.
type PaddedAtomicInt64 struct {
	atomic.Int64
	_ [CacheLineSize - 8]byte
}
