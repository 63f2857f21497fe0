package cache

import (
	"sync"
	"testing"
	"time"
)

// TestCache_BasicOperations tests Get and Set.
func TestCache_BasicOperations(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	t.Run("Set and Get", func(t *testing.T) {
		c.Set("vehicles:all", []string{"5YJ3E1EA7KF000001"})

		val, found := c.Get("vehicles:all")
		if !found {
			t.Error("expected key to be found")
		}
		vins, ok := val.([]string)
		if !ok || len(vins) != 1 {
			t.Errorf("unexpected cached value: %v", val)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, found := c.Get("nonexistent")
		if found {
			t.Error("expected nonexistent key to not be found")
		}
	})
}

// TestCache_Flush verifies all entries disappear after a flush.
func TestCache_Flush(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	c.Set("vehicles:all", "a")
	c.Set("stats", "b")
	if c.ItemCount() != 2 {
		t.Fatalf("expected 2 items, got %d", c.ItemCount())
	}

	c.Flush()

	if c.ItemCount() != 0 {
		t.Errorf("expected empty cache after flush, got %d items", c.ItemCount())
	}
	if _, found := c.Get("vehicles:all"); found {
		t.Error("expected entry to be gone after flush")
	}
}

// TestCache_ConcurrentAccess exercises concurrent readers and writers.
func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			c.Get("key")
		}()
	}
	wg.Wait()

	if _, found := c.Get("key"); !found {
		t.Error("expected key to be present after concurrent writes")
	}
}
