package throttlex_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/tidal/pkg/throttlex"
)

// recorder collects flushed deltas.
type recorder struct {
	mu     sync.Mutex
	deltas []string
}

func (r *recorder) apply(delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deltas...)
}

func TestThrottle_CoalescesDeltas(t *testing.T) {
	rec := &recorder{}
	th := throttlex.New(30*time.Millisecond, rec.apply)
	defer th.Stop()

	th.OnDelta("a")
	th.OnDelta("b")
	th.OnDelta("c")

	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one coalesced flush, got %d: %v", len(got), got)
	}
	if got[0] != "abc" {
		t.Fatalf("expected concatenation in arrival order, got %q", got[0])
	}
}

func TestThrottle_FlushNow(t *testing.T) {
	rec := &recorder{}
	th := throttlex.New(time.Hour, rec.apply)
	defer th.Stop()

	th.OnDelta("hello")
	th.FlushNow()

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("expected immediate flush, got %v", got)
	}

	// Nothing pending: FlushNow is a no-op.
	th.FlushNow()
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected no extra flush, got %v", got)
	}
}

func TestThrottle_WindowsAreSequential(t *testing.T) {
	rec := &recorder{}
	th := throttlex.New(20*time.Millisecond, rec.apply)
	defer th.Stop()

	th.OnDelta("first")
	time.Sleep(60 * time.Millisecond)
	th.OnDelta("second")
	time.Sleep(60 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("expected two windowed flushes, got %v", got)
	}
}

func TestThrottle_StopDiscardsPending(t *testing.T) {
	rec := &recorder{}
	th := throttlex.New(20*time.Millisecond, rec.apply)

	th.OnDelta("doomed")
	th.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected nothing after stop, got %v", got)
	}

	// Deltas after Stop are ignored.
	th.OnDelta("late")
	th.FlushNow()
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected stopped throttle to stay silent, got %v", got)
	}
}

func TestThrottle_SchedulerReceivesTimerFlush(t *testing.T) {
	rec := &recorder{}
	scheduled := make(chan func(), 1)

	th := throttlex.New(10*time.Millisecond, rec.apply,
		throttlex.WithScheduler(func(fn func()) { scheduled <- fn }))
	defer th.Stop()

	th.OnDelta("x")

	select {
	case fn := <-scheduled:
		// The flush only happens once the scheduler decides to run it.
		if got := rec.snapshot(); len(got) != 0 {
			t.Fatalf("flush ran before the scheduler, got %v", got)
		}
		fn()
	case <-time.After(time.Second):
		t.Fatal("timer flush never reached the scheduler")
	}

	if got := rec.snapshot(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected scheduled flush, got %v", got)
	}
}
