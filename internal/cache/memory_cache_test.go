package cache

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "value" {
		t.Errorf("got %v, want value", got)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestInMemoryCache_Missing(t *testing.T) {
	c := NewInMemoryCache(time.Minute)
	if _, err := c.Get(context.Background(), "absent"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	if err := c.Set(ctx, "key", "value"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "key"); err == nil {
		t.Error("expected error for expired key")
	}
}

func TestInMemoryCache_CancelledContext(t *testing.T) {
	c := NewInMemoryCache(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Get(ctx, "key"); err == nil {
		t.Error("expected error for cancelled context on Get")
	}
	if err := c.Set(ctx, "key", "value"); err == nil {
		t.Error("expected error for cancelled context on Set")
	}
}
