package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type expiredRecorder struct {
	mu   sync.Mutex
	args []ExpiredArgs
}

func (r *expiredRecorder) record(a ExpiredArgs) {
	r.mu.Lock()
	r.args = append(r.args, a)
	r.mu.Unlock()
}

func (r *expiredRecorder) wait(t *testing.T, n int) []ExpiredArgs {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.args) >= n {
			out := append([]ExpiredArgs(nil), r.args...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d expiration events", n)
	return nil
}

// A lazy expiration on read fires the event with SendNotification=true.
func TestExpiredEvent_OnLazyRead(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	defer unsub()

	e.Set(ctx, "k", 1, TTL(time.Second))
	clk.add(2 * time.Second)
	e.Get(ctx, "k")

	got := rec.wait(t, 1)
	if got[0].Key != "k" || !got[0].SendNotification {
		t.Fatalf("want {k true}, got %+v", got[0])
	}
}

// The maintenance sweep fires one event per reclaimed entry.
func TestExpiredEvent_OnSweep(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	defer unsub()

	e.Set(ctx, "a", 1, TTL(time.Second))
	e.Set(ctx, "b", 2, TTL(time.Second))
	clk.add(2 * time.Second)
	e.maintain()

	got := rec.wait(t, 2)
	for _, a := range got {
		if !a.SendNotification {
			t.Fatalf("sweep events must carry SendNotification, got %+v", a)
		}
	}
}

// Overt Remove never fires the event.
func TestExpiredEvent_NotOnRemove(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	defer unsub()

	e.Set(ctx, "k", 1, nil)
	e.Remove(ctx, "k")

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.args) != 0 {
		t.Fatalf("overt remove fired events: %+v", rec.args)
	}
}

// RemoveExpired (peer-driven) fires with SendNotification=false so the
// hybrid tier does not echo it back.
func TestExpiredEvent_RemoveExpiredSuppresses(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	defer unsub()

	e.Set(ctx, "k", 1, nil)
	e.RemoveExpired(ctx, "k")

	got := rec.wait(t, 1)
	if got[0].Key != "k" || got[0].SendNotification {
		t.Fatalf("want {k false}, got %+v", got[0])
	}
}

// RemoveIfEqual marks the entry expired; the next sweep reclaims it and
// notifies.
func TestExpiredEvent_AfterRemoveIfEqual(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	defer unsub()

	e.Set(ctx, "k", "v", nil)
	if ok, _ := e.RemoveIfEqual(ctx, "k", "v"); !ok {
		t.Fatal("compare must match")
	}
	clk.add(time.Second)
	e.maintain()

	got := rec.wait(t, 1)
	if got[0].Key != "k" {
		t.Fatalf("want k, got %+v", got[0])
	}
	if n := e.Count(); n != 0 {
		t.Fatalf("entry must be reclaimed, count=%d", n)
	}
}

func TestExpiredEvent_Unsubscribe(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	rec := &expiredRecorder{}
	unsub := e.OnEntryExpired(rec.record)
	unsub()

	e.Set(ctx, "k", 1, TTL(time.Second))
	clk.add(2 * time.Second)
	e.Get(ctx, "k")

	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.args) != 0 {
		t.Fatalf("unsubscribed handler ran: %+v", rec.args)
	}
}
