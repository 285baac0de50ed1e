package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()

	ctx := context.Background()
	if err := mc.Set(ctx, "today", "fresh", 60*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mc.Set(ctx, "history", "stable", 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got string
	now = now.Add(60 * time.Second)
	if err := mc.Get(ctx, "today", &got); err != nil || got != "fresh" {
		t.Fatalf("expected hit at ttl boundary, got %q err %v", got, err)
	}

	now = now.Add(time.Second)
	if err := mc.Get(ctx, "today", &got); err != ErrCacheMiss {
		t.Fatalf("expected miss past ttl, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "today"); ok {
		t.Fatal("expired key still reported as existing")
	}

	now = now.AddDate(10, 0, 0)
	got = ""
	if err := mc.Get(ctx, "history", &got); err != nil || got != "stable" {
		t.Fatalf("expected zero-ttl entry to survive, got %q err %v", got, err)
	}
	if ok, _ := mc.Exists(ctx, "history"); !ok {
		t.Fatal("zero-ttl key should still exist")
	}
}
