package shp2geojson

import (
	"errors"
	"testing"
)

func TestSourceCacheLRU(t *testing.T) {
	cache := NewSourceCache(10)

	loads := 0
	loader := func(n int) func() ([]byte, error) {
		return func() ([]byte, error) {
			loads++
			return make([]byte, n), nil
		}
	}

	if _, err := cache.Get("a", loader(4)); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("b", loader(4)); err != nil {
		t.Fatal(err)
	}
	// Touch a so b is least recently used.
	if _, err := cache.Get("a", loader(4)); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("c", loader(4)); err != nil {
		t.Fatal(err)
	}

	if loads != 3 {
		t.Errorf("loader called %d times, want 3", loads)
	}
	stats := cache.Stats()
	if stats.Entries != 2 || stats.UsedBytes != 8 {
		t.Errorf("stats = %+v, want 2 entries, 8 bytes", stats)
	}

	if _, err := cache.Get("a", loader(4)); err != nil {
		t.Fatal(err)
	}
	if loads != 3 {
		t.Error("a was evicted instead of b")
	}
	if _, err := cache.Get("b", loader(4)); err != nil {
		t.Fatal(err)
	}
	if loads != 4 {
		t.Error("b was not evicted")
	}

	if got := cache.Stats().HitRate(); got != 2.0/6.0 {
		t.Errorf("hit rate = %v, want %v", got, 2.0/6.0)
	}
}

func TestSourceCacheLimits(t *testing.T) {
	cache := NewSourceCache(8)

	data, err := cache.Get("huge", func() ([]byte, error) { return make([]byte, 20), nil })
	if err != nil || len(data) != 20 {
		t.Fatalf("Get() = %d bytes, %v", len(data), err)
	}
	if cache.Stats().Entries != 0 {
		t.Error("oversized entry was cached")
	}
	if err := cache.Add("huge", make([]byte, 20)); err == nil {
		t.Error("expected error adding oversized entry")
	}

	boom := errors.New("boom")
	if _, err := cache.Get("bad", func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if cache.Stats().Entries != 0 {
		t.Error("failed load was cached")
	}

	unbounded := NewSourceCache(-1)
	for _, k := range []string{"a", "b", "c"} {
		if err := unbounded.Add(k, make([]byte, 1<<10)); err != nil {
			t.Fatal(err)
		}
	}
	if s := unbounded.Stats(); s.Entries != 3 || s.UsedBytes != 3<<10 {
		t.Errorf("unbounded stats = %+v", s)
	}

	unbounded.Remove("b")
	if s := unbounded.Stats(); s.Entries != 2 || s.UsedBytes != 2<<10 {
		t.Errorf("after Remove stats = %+v", s)
	}
	unbounded.Clear()
	if s := unbounded.Stats(); s.Entries != 0 || s.UsedBytes != 0 || s.Hits != 0 {
		t.Errorf("after Clear stats = %+v", s)
	}
}
