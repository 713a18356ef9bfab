// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "github.com/cespare/xxhash/v2"

// KeyHash hashes a cache key for shard selection. Keys are always strings
// in this module, so a single fast non-crypto hash is enough.
func KeyHash(key string) uint64 {
	return xxhash.Sum64String(key)
}
