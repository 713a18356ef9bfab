package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScoped_PrefixesKeys(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	sc := NewScoped(e, "tenant1")
	ctx := context.Background()

	sc.Set(ctx, "k", "v", nil)

	// Visible through the scope under the caller's key…
	if v, _ := GetAs[string](ctx, sc, "k"); !v.HasValue() || v.Value() != "v" {
		t.Fatalf("scoped read failed: %v", v.Value())
	}
	// …and stored in the backend under the prefixed key.
	if ok, _ := e.Has(ctx, "tenant1:k"); !ok {
		t.Fatal("backend must hold the prefixed key")
	}
	if ok, _ := e.Has(ctx, "k"); ok {
		t.Fatal("backend must not hold the bare key")
	}
}

func TestScoped_ResultsAreUnprefixed(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	sc := NewScoped(e, "s")
	ctx := context.Background()

	sc.SetAll(ctx, map[string]any{"a": 1, "b": 2}, TTL(time.Minute))

	vs, err := sc.GetAll(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if !vs["a"].HasValue() || !vs["b"].HasValue() {
		t.Fatalf("want unprefixed result keys, got %v", vs)
	}

	exps, _ := sc.GetAllExpiration(ctx, []string{"a", "b"})
	if _, ok := exps["a"]; !ok {
		t.Fatalf("expiration map must use caller keys, got %v", exps)
	}
}

func TestScoped_ScopeSetOnce(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})

	sc := NewScoped(e, "")
	ctx := context.Background()

	// Unscoped: passes keys through untouched.
	sc.Set(ctx, "raw", 1, nil)
	if ok, _ := e.Has(ctx, "raw"); !ok {
		t.Fatal("unscoped instance must not prefix")
	}

	if err := sc.SetScope("late"); err != nil {
		t.Fatalf("first SetScope: %v", err)
	}
	if err := sc.SetScope("again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second SetScope must fail with ErrInvalidState, got %v", err)
	}
	if err := NewScoped(e, "x").SetScope("y"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("constructor-set scope must reject reassignment, got %v", err)
	}
}

func TestScoped_Nesting(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	outer := NewScoped(e, "a")
	inner := NewScoped(outer, "b")
	ctx := context.Background()

	inner.Set(ctx, "k", 1, nil)
	if ok, _ := e.Has(ctx, "a:b:k"); !ok {
		t.Fatal("nested scopes must concatenate prefixes")
	}
}

func TestScoped_RemoveAllIsScoped(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	sc := NewScoped(e, "s")
	ctx := context.Background()

	sc.Set(ctx, "a", 1, nil)
	sc.Set(ctx, "b", 2, nil)
	e.Set(ctx, "other", 3, nil)

	n, err := sc.RemoveAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("scoped flush: n=%d err=%v", n, err)
	}
	if ok, _ := e.Has(ctx, "other"); !ok {
		t.Fatal("scoped flush must not touch other keys")
	}
}

func TestScoped_RemoveByPrefixConcatenates(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	sc := NewScoped(e, "s")
	ctx := context.Background()

	sc.Set(ctx, "user:1", 1, nil)
	sc.Set(ctx, "user:2", 2, nil)
	sc.Set(ctx, "order:1", 3, nil)

	n, _ := sc.RemoveByPrefix(ctx, "user:")
	if n != 2 {
		t.Fatalf("want 2 removed, got %d", n)
	}
	if ok, _ := sc.Has(ctx, "order:1"); !ok {
		t.Fatal("other scoped keys must survive")
	}
}

func TestScoped_NumericAndListDelegate(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Options{MaintenanceInterval: -1})
	sc := NewScoped(e, "s")
	ctx := context.Background()

	if n, _ := sc.Increment(ctx, "c", 2, nil); n != 2 {
		t.Fatalf("scoped increment: %d", n)
	}
	if n, _ := sc.ListAdd(ctx, "l", []any{"x"}, nil); n != 1 {
		t.Fatalf("scoped list add: %d", n)
	}
	if v, _ := sc.GetList(ctx, "l", 1, 10); !v.HasValue() {
		t.Fatal("scoped list read failed")
	}
}
