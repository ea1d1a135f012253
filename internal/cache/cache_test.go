package cache

import (
	"testing"
	"time"
)

func TestGetMissesWhenNeverSet(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("orders"); ok {
		t.Error("expected miss for key that was never set")
	}
}

func TestGetHitsBeforeTTLBoundary(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("orders", "v1")

	// Exactly at the boundary the entry is still valid; expiry requires
	// strictly more than one TTL to have elapsed.
	c.now = func() time.Time { return base.Add(time.Minute) }
	v, ok := c.Get("orders")
	if !ok || v != "v1" {
		t.Errorf("expected hit at TTL boundary, got ok=%v v=%v", ok, v)
	}
}

func TestGetMissesAndEvictsAfterTTL(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("orders", "v1")

	c.now = func() time.Time { return base.Add(time.Minute + time.Nanosecond) }
	if _, ok := c.Get("orders"); ok {
		t.Error("expected miss after TTL elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, %d entries left", c.Len())
	}
}

func TestSetOverwritesAndRefreshesTimestamp(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("orders", "v1")

	c.now = func() time.Time { return base.Add(50 * time.Second) }
	c.Set("orders", "v2")

	c.now = func() time.Time { return base.Add(100 * time.Second) }
	v, ok := c.Get("orders")
	if !ok || v != "v2" {
		t.Errorf("expected refreshed entry v2, got ok=%v v=%v", ok, v)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(time.Minute)
	c.Set("orders", 1)
	c.Set("orders:archived", 2)
	c.Set("products", 3)

	c.Invalidate("orders")

	if _, ok := c.Get("orders"); ok {
		t.Error("orders should be invalidated")
	}
	if _, ok := c.Get("orders:archived"); ok {
		t.Error("prefix-scoped keys should be invalidated")
	}
	if v, ok := c.Get("products"); !ok || v != 3 {
		t.Error("unrelated keys must be unaffected")
	}
}

func TestInvalidateAll(t *testing.T) {
	c := New(time.Minute)
	c.Set("orders", 1)
	c.Set("products", 2)

	c.Invalidate("")

	if c.Len() != 0 {
		t.Errorf("expected empty cache, %d entries left", c.Len())
	}
}
