package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/hybridcache/cache"
)

func newEngine(t *testing.T) *cache.Engine {
	t.Helper()
	e, err := cache.New(cache.Options{})
	require.NoError(t, err)
	return e
}

// newPeer builds a hybrid instance over the shared remote and bus.
func newPeer(t *testing.T, remote cache.Cache, bus Bus) *Cache {
	t.Helper()
	h, err := New(newEngine(t), remote, bus)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHybrid_WriteThroughAndLocalHit(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	h := newPeer(t, remote, bus)
	ctx := context.Background()

	ok, err := h.Set(ctx, "k", "v", nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The write reached the remote tier.
	rv, err := remote.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, rv.HasValue())

	// The writer's own copy stays warm: reads are local hits.
	v, err := h.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v.Value())
	assert.Equal(t, int64(1), h.LocalHits())
	assert.Equal(t, int64(0), h.RemoteHits())
}

func TestHybrid_ReadThroughPopulatesLocal(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	h := newPeer(t, remote, bus)
	ctx := context.Background()

	// Data written straight to the remote tier, bypassing the hybrid.
	_, err := remote.Set(ctx, "k", 42, cache.TTL(time.Minute))
	require.NoError(t, err)

	v, err := h.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.RemoteHits())
	got, err := cache.As[int](v)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Value())

	// Second read is local, with the remote's remaining TTL attached.
	_, err = h.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.LocalHits())
}

// A write on instance A eventually evicts B's local copy; A never evicts
// its own in response to the echo.
func TestHybrid_PeerInvalidation(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	a := newPeer(t, remote, bus)
	b := newPeer(t, remote, bus)
	ctx := context.Background()

	_, err := a.Set(ctx, "x", 1, nil)
	require.NoError(t, err)

	// B populates its local tier.
	v, err := b.Get(ctx, "x")
	require.NoError(t, err)
	require.True(t, v.HasValue())

	// A writes again: B must converge to the new value.
	_, err = a.Set(ctx, "x", 2, nil)
	require.NoError(t, err)

	eventually(t, func() bool {
		v, err := b.Get(ctx, "x")
		if err != nil || !v.HasValue() {
			return false
		}
		got, cerr := cache.As[int](v)
		return cerr == nil && got.Value() == 2
	}, "peer B never converged to the new value")

	// A's own copy survived its echo: the next read is a local hit.
	before := a.LocalHits()
	_, err = a.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, before+1, a.LocalHits())
	assert.Equal(t, int64(0), a.Invalidations(), "A must ignore its own messages")
}

func TestHybrid_FlushAllInvalidation(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	a := newPeer(t, remote, bus)
	b := newPeer(t, remote, bus)
	ctx := context.Background()

	a.Set(ctx, "k1", 1, nil)
	b.Get(ctx, "k1") // warm B

	_, err := a.RemoveAll(ctx)
	require.NoError(t, err)

	eventually(t, func() bool {
		return b.Invalidations() > 0
	}, "flush-all never reached peer B")

	v, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, v.HasValue())
}

func TestHybrid_PrefixInvalidation(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	a := newPeer(t, remote, bus)
	b := newPeer(t, remote, bus)
	ctx := context.Background()

	a.Set(ctx, "user:1", 1, nil)
	a.Set(ctx, "other", 2, nil)
	b.Get(ctx, "user:1")
	b.Get(ctx, "other")

	_, err := a.RemoveByPrefix(ctx, "user:")
	require.NoError(t, err)

	eventually(t, func() bool {
		v, _ := b.Get(ctx, "user:1")
		return !v.HasValue()
	}, "prefix invalidation never evicted peer B's copy")

	v, err := b.Get(ctx, "other")
	require.NoError(t, err)
	assert.True(t, v.HasValue(), "unrelated keys must survive a prefix invalidation")
}

// A local expiration is rebroadcast on the bus as a message with the
// Expired flag set, so peers converge.
func TestHybrid_LocalExpirationBroadcast(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()

	done := make(chan struct{})
	cancel, err := bus.Subscribe(context.Background(), func(m Message) {
		if m.Expired {
			close(done)
		}
	})
	require.NoError(t, err)
	t.Cleanup(cancel)

	localA, err := cache.New(cache.Options{})
	require.NoError(t, err)
	a, err := New(localA, remote, bus)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	a.Set(ctx, "fleeting", 1, cache.TTL(30*time.Millisecond))

	// Wait for the TTL to lapse, then touch the key so the local engine
	// notices the expiration.
	time.Sleep(60 * time.Millisecond)
	localA.Get(ctx, "fleeting")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expiration was never broadcast")
	}
}

func TestHybrid_NumericGoesRemote(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()
	a := newPeer(t, remote, bus)
	b := newPeer(t, remote, bus)
	ctx := context.Background()

	n, err := a.Increment(ctx, "c", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = b.Increment(ctx, "c", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n, "peers must share one counter")
}

func TestHybrid_NullCacheRemote(t *testing.T) {
	t.Parallel()

	// A NullCache remote degrades the hybrid to a publish-only local
	// cache; reads that miss locally miss entirely.
	null := cache.NewNull()
	bus := NewMemoryBus()
	h := newPeer(t, null, bus)
	ctx := context.Background()

	ok, err := h.Set(ctx, "k", 1, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Positive(t, null.WriteCalls())
}

func TestAware_PublishesOnWrite(t *testing.T) {
	t.Parallel()

	remote := newEngine(t)
	t.Cleanup(func() { _ = remote.Close() })
	bus := NewMemoryBus()

	// A hybrid peer holding a warm local copy…
	peer := newPeer(t, remote, bus)
	ctx := context.Background()
	peer.Set(ctx, "k", "old", nil)

	// …and an aware writer with no local tier.
	aw, err := NewAware(remote, bus)
	require.NoError(t, err)
	require.NotEqual(t, peer.InstanceID(), aw.InstanceID())

	_, err = aw.Set(ctx, "k", "new", nil)
	require.NoError(t, err)

	eventually(t, func() bool {
		v, err := peer.Get(ctx, "k")
		if err != nil {
			return false
		}
		got, cerr := cache.As[string](v)
		return cerr == nil && got.Value() == "new"
	}, "aware write never invalidated the peer's local copy")

	// Aware reads come straight from the remote tier.
	v, err := aw.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", v.Value())
}

func TestMemoryBus_DeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewMemoryBus()
	ctx := context.Background()

	got1 := make(chan Message, 1)
	got2 := make(chan Message, 1)
	c1, err := bus.Subscribe(ctx, func(m Message) { got1 <- m })
	require.NoError(t, err)
	t.Cleanup(c1)
	c2, err := bus.Subscribe(ctx, func(m Message) { got2 <- m })
	require.NoError(t, err)
	t.Cleanup(c2)

	require.NoError(t, bus.Publish(ctx, Message{OriginID: "me", Keys: []string{"k"}}))

	for _, ch := range []chan Message{got1, got2} {
		select {
		case m := <-ch:
			assert.Equal(t, "me", m.OriginID)
			assert.Equal(t, []string{"k"}, m.Keys)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the message")
		}
	}

	// After cancel, no further delivery.
	c1()
	require.NoError(t, bus.Publish(ctx, Message{OriginID: "me"}))
	select {
	case <-got1:
		t.Fatal("cancelled subscriber received a message")
	case <-time.After(50 * time.Millisecond):
	}
}
