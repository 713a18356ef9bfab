package cache

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// benchmarkMix exercises a read/write mix against a warm engine.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
func benchmarkMix(b *testing.B, readsPct int) {
	e, err := New(Options{MaxItems: 100_000})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	// Preload half the capacity to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		e.Set(ctx, "k:"+strconv.Itoa(i), "v", nil)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.Intn(100) < readsPct {
				e.Get(ctx, k)
			} else {
				e.Set(ctx, k, "v", nil)
			}
			i++
		}
	})
}

func BenchmarkEngine_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkEngine_50r50w(b *testing.B) { benchmarkMix(b, 50) }

// Increment is the hottest atomic path; measure it alone.
func BenchmarkEngine_Increment(b *testing.B) {
	e, err := New(Options{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		for pb.Next() {
			e.Increment(ctx, "c:"+strconv.Itoa(r.Intn(256)), 1, nil)
		}
	})
}

// TTL churn: short-lived entries plus the sweep.
func BenchmarkEngine_ShortTTLChurn(b *testing.B) {
	e, err := New(Options{MaxItems: 10_000})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&1023)
			if i%4 == 0 {
				e.Set(ctx, k, i, TTL(time.Duration(1+r.Intn(5))*time.Millisecond))
			} else {
				e.Get(ctx, k)
			}
			i++
		}
	})
}
