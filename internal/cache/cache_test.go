package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("a = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestTTLExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2") // refreshes b

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired removed %d, want 0 (a already dropped by Get)", n)
	}
	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired removed %d, want 1", n)
	}
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	var calls int32
	release := make(chan struct{})

	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("load called %d times, want 1", n)
	}
	for _, r := range results {
		if r != "loaded" {
			t.Errorf("result = %q", r)
		}
	}
	if v, ok := c.Get("k"); !ok || v != "loaded" {
		t.Error("loaded value should be cached")
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if c.Size() != 0 {
		t.Error("failed load should not be cached")
	}
	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("retry = %q, %v", v, err)
	}
}

func TestManager(t *testing.T) {
	c, clk := newTestCache(10, time.Second)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
