package util

import "runtime"

// NextPow2 returns the smallest power of two >= x (1 for x <= 1).
// If the exact next power would overflow 64 bits, the result is clamped
// to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ReasonableShardCount picks a practical default shard count from CPU
// parallelism: nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index. Shard counts in this
// module are always powers of two, so the mask path is the common case.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if shards&(shards-1) == 0 {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}
