package fetchx_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Abraxas-365/tidal/pkg/fetchx"
	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/fsx/fsxlocal"
)

type countingFetcher struct {
	calls atomic.Int32
	gate  chan struct{} // when set, Fetch blocks until closed
}

func (f *countingFetcher) Fetch(_ context.Context, fd framex.FileDescriptor) (fetchx.Resource, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return fetchx.Resource{Key: fd.ID, Data: []byte("body-" + fd.ID), ContentType: "text/plain"}, nil
}

func TestLibrary_FetchesOncePerDescriptor(t *testing.T) {
	fetcher := &countingFetcher{}
	lib := fetchx.NewLibrary(fetcher)
	fd := framex.FileDescriptor{ID: "f1", Name: "report.txt"}

	for range 3 {
		res, err := lib.Get(t.Context(), fd)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(res.Data) != "body-f1" {
			t.Fatalf("unexpected body %q", res.Data)
		}
	}

	if n := fetcher.calls.Load(); n != 1 {
		t.Fatalf("expected one origin fetch, got %d", n)
	}
	if !lib.Known(fd) {
		t.Fatal("descriptor must be known after a successful fetch")
	}
}

func TestLibrary_ConcurrentGetsCoalesce(t *testing.T) {
	fetcher := &countingFetcher{gate: make(chan struct{})}
	lib := fetchx.NewLibrary(fetcher)
	fd := framex.FileDescriptor{ID: "f1"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lib.Get(context.Background(), fd); err != nil {
				t.Errorf("get failed: %v", err)
			}
		}()
	}

	close(fetcher.gate)
	wg.Wait()

	if n := fetcher.calls.Load(); n != 1 {
		t.Fatalf("expected one coalesced fetch, got %d", n)
	}
}

func TestLibrary_SpoolsToDisk(t *testing.T) {
	dir := t.TempDir()
	spool, err := fsxlocal.NewLocalFileSystem(dir)
	if err != nil {
		t.Fatalf("spool setup failed: %v", err)
	}

	lib := fetchx.NewLibrary(&countingFetcher{}, fetchx.WithSpool(spool))
	fd := framex.FileDescriptor{ID: "f1"}

	if _, err := lib.Get(t.Context(), fd); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "f1"))
	if err != nil {
		t.Fatalf("spooled file missing: %v", err)
	}
	if string(data) != "body-f1" {
		t.Fatalf("unexpected spooled bytes %q", data)
	}
}

// fakeByteBacking is an in-memory stand-in for the redis store.
type fakeByteBacking struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *fakeByteBacking) Load(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *fakeByteBacking) Save(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func TestResourceBacking_RoundTrip(t *testing.T) {
	inner := &fakeByteBacking{data: map[string][]byte{}}
	fetcher := &countingFetcher{}
	fd := framex.FileDescriptor{ID: "f1"}

	// First library populates the backing on fetch.
	lib := fetchx.NewLibrary(fetcher, fetchx.WithBacking(fetchx.NewResourceBacking(inner)))
	if _, err := lib.Get(t.Context(), fd); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(inner.data) != 1 {
		t.Fatalf("expected a write-through entry, got %d", len(inner.data))
	}

	// A second library over the same backing never hits the origin.
	fresh := &countingFetcher{}
	lib2 := fetchx.NewLibrary(fresh, fetchx.WithBacking(fetchx.NewResourceBacking(inner)))
	res, err := lib2.Get(t.Context(), fd)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(res.Data) != "body-f1" || res.ContentType != "text/plain" {
		t.Fatalf("backing round trip mismatch: %+v", res)
	}
	if n := fresh.calls.Load(); n != 0 {
		t.Fatalf("expected zero origin fetches on a backing hit, got %d", n)
	}
}
