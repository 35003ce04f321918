package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheSetGetExpire(t *testing.T) {
	c := NewMemoryCache(16)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v", 10*time.Second)
	value, ok := c.Get("k")
	if !ok || value != "v" {
		t.Fatalf("expected hit with v, got %v %v", value, ok)
	}

	now = now.Add(11 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry removed, len=%d", c.Len())
	}
}

func TestMemoryCacheDel(t *testing.T) {
	c := NewMemoryCache(16)
	c.Set("k", 1, time.Minute)
	c.Del("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected deleted entry to miss")
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := NewMemoryCache(2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	// a 刚被访问，写入 c 应淘汰 b
	c.Set("c", 3, time.Minute)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a retained")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c cached")
	}
}

func TestMemoryCacheAllowFixedWindow(t *testing.T) {
	c := NewMemoryCache(16)
	now := time.Now()
	c.now = func() time.Time { return now }

	if !c.Allow("k", 1, 300) {
		t.Fatalf("expected first call allowed")
	}
	if c.Allow("k", 1, 300) {
		t.Fatalf("expected second call within window rejected")
	}

	now = now.Add(301 * time.Second)
	if !c.Allow("k", 1, 300) {
		t.Fatalf("expected call after window reset allowed")
	}
}

func TestMemoryCacheAllowCountsWithinWindow(t *testing.T) {
	c := NewMemoryCache(16)
	allowed := 0
	for i := 0; i < 10; i++ {
		if c.Allow("k", 3, 60) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("expected exactly 3 allowed, got %d", allowed)
	}
}
