package cachex_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Abraxas-365/tidal/pkg/cachex"
)

func TestCache_FetchesOnce(t *testing.T) {
	var calls atomic.Int32
	c := cachex.New(func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "value-" + key, nil
	})

	for range 3 {
		v, err := c.Get(context.Background(), "k")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "value-k" {
			t.Fatalf("unexpected value %q", v)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one fetch, got %d", n)
	}
	if !c.Known("k") {
		t.Fatal("expected key to be known after fetch")
	}
}

func TestCache_ConcurrentRequestsCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	c := cachex.New(func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]int, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "shared")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one coalesced fetch, got %d", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("goroutine %d got %d", i, v)
		}
	}
}

func TestCache_FailureAllowsRetry(t *testing.T) {
	var calls atomic.Int32
	c := cachex.New(func(ctx context.Context, key string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("origin down")
		}
		return "ok", nil
	})

	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	if c.Known("k") {
		t.Fatal("failed fetch must not mark the key done")
	}

	v, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if v != "ok" {
		t.Fatalf("unexpected value %q", v)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected exactly two fetches, got %d", n)
	}
}

// fakeBacking is an in-memory cachex.Backing.
type fakeBacking struct {
	mu    sync.Mutex
	data  map[string]string
	loads int
	saves int
}

func (b *fakeBacking) Load(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *fakeBacking) Save(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	b.data[key] = value
	return nil
}

func TestCache_BackingHitSkipsOrigin(t *testing.T) {
	backing := &fakeBacking{data: map[string]string{"k": "cached"}}

	c := cachex.New(func(ctx context.Context, key string) (string, error) {
		t.Fatal("origin must not be called on a backing hit")
		return "", nil
	}, cachex.WithBacking[string, string](backing))

	v, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "cached" {
		t.Fatalf("expected backing value, got %q", v)
	}
}

func TestCache_BackingMissWritesThrough(t *testing.T) {
	backing := &fakeBacking{data: map[string]string{}}

	c := cachex.New(func(ctx context.Context, key string) (string, error) {
		return "fresh", nil
	}, cachex.WithBacking[string, string](backing))

	if _, err := c.Get(context.Background(), "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backing.data["k"] != "fresh" {
		t.Fatalf("expected write-through, backing has %v", backing.data)
	}
}

func TestCache_Forget(t *testing.T) {
	var calls atomic.Int32
	c := cachex.New(func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "v", nil
	})

	c.Get(context.Background(), "k")
	c.Forget("k")
	c.Get(context.Background(), "k")

	if n := calls.Load(); n != 2 {
		t.Fatalf("expected refetch after Forget, got %d fetches", n)
	}
}
