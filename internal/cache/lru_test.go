package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	c.Set(ctx, "a", "alpha")
	got, ok := c.Get(ctx, "a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v, want alpha, true", got, ok)
	}

	c.Set(ctx, "a", "updated")
	got, _ = c.Get(ctx, "a")
	if got != "updated" {
		t.Errorf("Get(a) after overwrite = %q, want updated", got)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d after overwrite, want 1", c.Size())
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	// Touch "a" so "b" becomes the eviction candidate.
	c.Get(ctx, "a")
	c.Set(ctx, "c", 3)

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set(ctx, "a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expired entry reported as a hit")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after expired read, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](4, time.Minute)

	c.Set(ctx, "a", 1)
	c.Delete(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("deleted entry reported as a hit")
	}
	// Deleting a missing key is a no-op.
	c.Delete(ctx, "missing")
}

func TestLRUCacheCleanExpired(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](8, 10*time.Millisecond)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set(ctx, "c", 3)

	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Errorf("CleanExpired() = %d, want 2", cleaned)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d after sweep, want 1", c.Size())
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("live entry swept")
	}
}

func TestManagerCleanup(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](8, 5*time.Millisecond)
	c.Set(ctx, "a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(10 * time.Millisecond)
	defer m.Stop()

	deadline := time.After(500 * time.Millisecond)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never removed the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
