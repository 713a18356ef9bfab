// Package waste implements size-aware victim selection for memory
// overflow: big, old, and idle entries go first.
package waste

import (
	"math"

	"github.com/IvanBrykalov/hybridcache/policy"
)

// waste scores each candidate as
//
//	log10(max(1, size_kb)) + 0.5*log10(age_minutes) + 2.0*log10(idle_minutes)
//
// and picks the highest score. Expired candidates win immediately.
type waste struct{}

// New returns the waste-score selection policy.
func New() policy.Policy { return waste{} }

func (waste) Victim(now int64, candidates []policy.Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := -1
	bestScore := math.Inf(-1)
	for i, c := range candidates {
		if c.Expired {
			return c.Key, true
		}
		s := score(now, c)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return candidates[best].Key, true
}

func score(now int64, c policy.Candidate) float64 {
	sizeKB := c.Size / 1024
	if sizeKB < 1 {
		sizeKB = 1
	}
	return math.Log10(float64(sizeKB)) +
		0.5*math.Log10(minutesSince(now, c.LastModified)) +
		2.0*math.Log10(minutesSince(now, c.LastAccess))
}

// minutesSince floors at one minute: brand-new entries score as
// one-minute-old rather than producing log10(0).
func minutesSince(now, tick int64) float64 {
	m := float64(now-tick) / float64(60e9)
	if m < 1 {
		return 1
	}
	return m
}
