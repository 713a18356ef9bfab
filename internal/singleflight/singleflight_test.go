package singleflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Concurrent callers for one key share a single execution.
func TestDo_Coalesces(t *testing.T) {
	t.Parallel()

	var g Group[string]
	var calls int64

	const n = 50
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := g.Do(context.Background(), "k", func() (string, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(5 * time.Millisecond)
				return "shared", nil
			})
			if err != nil || v != "shared" {
				t.Errorf("got %q err=%v", v, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("fn must run exactly once, ran %d times", got)
	}
}

// A cancelled follower unblocks without stopping the leader.
func TestDo_FollowerCancellation(t *testing.T) {
	t.Parallel()

	var g Group[int]
	release := make(chan struct{})

	go g.Do(context.Background(), "k", func() (int, error) {
		<-release
		return 1, nil
	})
	time.Sleep(10 * time.Millisecond) // let the leader claim the flight

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func() (int, error) { return 2, nil })
	if err != context.Canceled {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	close(release)
}

// Distinct keys never coalesce.
func TestDo_DistinctKeys(t *testing.T) {
	t.Parallel()

	var g Group[int]
	a, _ := g.Do(context.Background(), "a", func() (int, error) { return 1, nil })
	b, _ := g.Do(context.Background(), "b", func() (int, error) { return 2, nil })
	if a != 1 || b != 2 {
		t.Fatalf("got %d %d", a, b)
	}
}
