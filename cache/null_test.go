package cache

import (
	"context"
	"testing"
)

func TestNullCache_Contract(t *testing.T) {
	t.Parallel()

	n := NewNull()
	ctx := context.Background()

	if ok, _ := n.Set(ctx, "k", 1, nil); !ok {
		t.Fatal("Set must report success")
	}
	if v, _ := n.Get(ctx, "k"); v.HasValue() {
		t.Fatal("Get must always miss")
	}
	if ok, _ := n.Has(ctx, "k"); ok {
		t.Fatal("Has must be false")
	}
	if amt, _ := n.Increment(ctx, "c", 7, nil); amt != 7 {
		t.Fatalf("Increment must return the amount, got %d", amt)
	}
	if cnt, _ := n.SetAll(ctx, map[string]any{"a": 1, "b": 2}, nil); cnt != 2 {
		t.Fatalf("SetAll must count its inputs, got %d", cnt)
	}
	if removed, _ := n.Remove(ctx, "k"); removed {
		t.Fatal("Remove must report nothing removed")
	}

	if n.ReadCalls() != 2 {
		t.Fatalf("want 2 read calls, got %d", n.ReadCalls())
	}
	if n.WriteCalls() != 3 {
		t.Fatalf("want 3 write calls, got %d", n.WriteCalls())
	}
	if n.RemoveCalls() != 1 {
		t.Fatalf("want 1 remove call, got %d", n.RemoveCalls())
	}
}
