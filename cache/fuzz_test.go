package cache

import (
	"context"
	"strings"
	"testing"
)

// Fuzz basic Set/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: key/value lengths are capped to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants we check).
func FuzzEngine_SetGetRemove(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		e, err := New(Options{MaxItems: 16, MaintenanceInterval: -1})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = e.Close() })
		ctx := context.Background()

		if k == "" {
			// Empty keys must be rejected, never stored.
			if _, err := e.Set(ctx, k, v, nil); err == nil {
				t.Fatal("empty key must be rejected")
			}
			return
		}

		// Set -> Get must return the same value.
		if _, err := e.Set(ctx, k, v, nil); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := GetAs[string](ctx, e, k)
		if err != nil || !got.HasValue() || got.Value() != v {
			t.Fatalf("after Set/Get: want %q, got %q err=%v", v, got.Value(), err)
		}

		// Add duplicate must not overwrite and must return false.
		if ok, _ := e.Add(ctx, k, "other", nil); ok {
			t.Fatal("Add duplicate returned true")
		}
		if got2, _ := GetAs[string](ctx, e, k); !got2.HasValue() || got2.Value() != v {
			t.Fatalf("after duplicate Add: want %q, got %q", v, got2.Value())
		}

		// Remove must delete and return true once.
		if ok, _ := e.Remove(ctx, k); !ok {
			t.Fatal("Remove must return true")
		}
		if got3, _ := e.Get(ctx, k); got3.HasValue() {
			t.Fatal("key must be absent after Remove")
		}

		// After removal, Add should succeed again.
		if ok, _ := e.Add(ctx, k, v, nil); !ok {
			t.Fatal("Add after Remove must return true")
		}
	})
}
