package cache

import (
	"context"
	"testing"
	"time"
)

func TestListAdd_CountsDistinct(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	n, err := e.ListAdd(ctx, "l", []any{"a", "b", "a", nil}, nil)
	if err != nil || n != 2 {
		t.Fatalf("want 2 distinct elements, got n=%d err=%v", n, err)
	}

	v, _ := GetListAs[string](ctx, e, "l", 1, 10)
	if !v.HasValue() || len(v.Value()) != 2 {
		t.Fatalf("want 2 live elements, got %v", v.Value())
	}
}

// Elements expire individually; re-adding one element never extends the
// others.
func TestList_PerElementExpiration(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a", "b"}, TTL(time.Second))
	e.ListAdd(ctx, "l", []any{"c"}, TTL(10*time.Second))

	clk.add(2 * time.Second)

	v, _ := GetListAs[string](ctx, e, "l", 1, 100)
	if !v.HasValue() {
		t.Fatal("list must still have a live element")
	}
	got := v.Value()
	if len(got) != 1 || got[0] != "c" {
		t.Fatalf(`want ["c"], got %v`, got)
	}
}

// Re-adding an element updates its expiration to the latest write's TTL.
func TestList_DuplicateAddRenews(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a"}, TTL(time.Second))
	e.ListAdd(ctx, "l", []any{"a"}, TTL(time.Minute))
	clk.add(5 * time.Second)

	v, _ := GetListAs[string](ctx, e, "l", 1, 10)
	if !v.HasValue() || len(v.Value()) != 1 {
		t.Fatalf("renewed element must be live, got %v", v.Value())
	}
}

// The whole entry expires once every element's deadline has passed.
func TestList_EntryExpiresWithElements(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a", "b"}, TTL(time.Second))
	clk.add(2 * time.Second)

	if v, _ := e.GetList(ctx, "l", 1, 10); v.HasValue() {
		t.Fatal("fully expired list must read as missing")
	}
	if ok, _ := e.Has(ctx, "l"); ok {
		t.Fatal("fully expired list key must be absent")
	}
}

// A never-expiring element pins the entry.
func TestList_NeverExpiringElementPinsEntry(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := newTestEngine(t, Options{Clock: clk, MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"short"}, TTL(time.Second))
	e.ListAdd(ctx, "l", []any{"forever"}, nil)
	clk.add(time.Hour)

	v, _ := GetListAs[string](ctx, e, "l", 1, 10)
	if !v.HasValue() || len(v.Value()) != 1 || v.Value()[0] != "forever" {
		t.Fatalf(`want ["forever"], got %v`, v.Value())
	}
}

func TestListRemove(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a", "b", "c"}, nil)
	n, err := e.ListRemove(ctx, "l", []any{"a", "b", "nope"}, nil)
	if err != nil || n != 2 {
		t.Fatalf("want 2 removed, got n=%d err=%v", n, err)
	}

	v, _ := GetListAs[string](ctx, e, "l", 1, 10)
	if len(v.Value()) != 1 || v.Value()[0] != "c" {
		t.Fatalf(`want ["c"], got %v`, v.Value())
	}

	// Removing the last element deletes the entry.
	e.ListRemove(ctx, "l", []any{"c"}, nil)
	if ok, _ := e.Has(ctx, "l"); ok {
		t.Fatal("empty list entry must be gone")
	}

	// Missing key: no-op.
	if n, _ := e.ListRemove(ctx, "l", []any{"x"}, nil); n != 0 {
		t.Fatalf("want 0 on missing key, got %d", n)
	}
}

// list-add with a non-positive TTL removes the listed elements.
func TestListAdd_NonPositiveTTLRemovesElements(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a", "b"}, nil)
	n, err := e.ListAdd(ctx, "l", []any{"a"}, TTL(-time.Second))
	if err != nil || n != 0 {
		t.Fatalf("want 0, got n=%d err=%v", n, err)
	}
	v, _ := GetListAs[string](ctx, e, "l", 1, 10)
	if len(v.Value()) != 1 || v.Value()[0] != "b" {
		t.Fatalf(`want ["b"], got %v`, v.Value())
	}
}

func TestGetList_Paging(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	e.ListAdd(ctx, "l", []any{"a", "b", "c", "d", "e"}, nil)

	p1, _ := GetListAs[string](ctx, e, "l", 1, 2)
	p2, _ := GetListAs[string](ctx, e, "l", 2, 2)
	p3, _ := GetListAs[string](ctx, e, "l", 3, 2)
	far, _ := GetListAs[string](ctx, e, "l", 9, 2)

	if len(p1.Value()) != 2 || len(p2.Value()) != 2 || len(p3.Value()) != 1 {
		t.Fatalf("page sizes wrong: %d/%d/%d", len(p1.Value()), len(p2.Value()), len(p3.Value()))
	}
	if !far.HasValue() || len(far.Value()) != 0 {
		t.Fatalf("past-the-end page must be present and empty, got %v", far.Value())
	}

	// Pages are disjoint and ordered.
	seen := map[string]bool{}
	for _, page := range [][]string{p1.Value(), p2.Value(), p3.Value()} {
		for _, el := range page {
			if seen[el] {
				t.Fatalf("element %q appeared twice across pages", el)
			}
			seen[el] = true
		}
	}
	if len(seen) != 5 {
		t.Fatalf("want all 5 elements across pages, got %d", len(seen))
	}
}

// Integer elements dedup across representations.
func TestList_NumericNormalization(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	ctx := context.Background()

	n, _ := e.ListAdd(ctx, "nums", []any{int32(1), int64(1), 1.0}, nil)
	if n != 1 {
		t.Fatalf("want 1 distinct element, got %d", n)
	}
	v, _ := GetListAs[int](ctx, e, "nums", 1, 10)
	if len(v.Value()) != 1 {
		t.Fatalf("want single element, got %v", v.Value())
	}
}
