// Package lru implements least-recently-used victim selection.
package lru

import "github.com/IvanBrykalov/hybridcache/policy"

// lru picks the candidate with the smallest LastAccess, breaking ties by
// the smallest Instance (the older entry loses). Expired candidates win
// immediately.
type lru struct{}

// New returns the LRU selection policy.
func New() policy.Policy { return lru{} }

func (lru) Victim(_ int64, candidates []policy.Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := -1
	for i, c := range candidates {
		if c.Expired {
			return c.Key, true
		}
		if best < 0 {
			best = i
			continue
		}
		b := candidates[best]
		if c.LastAccess < b.LastAccess ||
			(c.LastAccess == b.LastAccess && c.Instance < b.Instance) {
			best = i
		}
	}
	return candidates[best].Key, true
}
