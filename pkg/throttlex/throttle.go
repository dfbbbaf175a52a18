package throttlex

import (
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the coalescing window used when no interval is given.
const DefaultInterval = 120 * time.Millisecond

// Throttle coalesces high-frequency content deltas into periodic refreshes
// so each network chunk does not become its own UI paint. Deltas accumulate
// in a pending buffer; at most one refresh fires per interval, carrying the
// concatenation of everything buffered since the last flush.
//
// Flushes are not executed on the timer goroutine. The timer hands a flush
// request to the scheduler, which is expected to run it on the same owner
// that calls OnDelta and FlushNow, so apply callbacks never race with
// high-priority direct actions.
type Throttle struct {
	interval  time.Duration
	apply     func(delta string)
	scheduler func(fn func())

	mu      sync.Mutex
	pending strings.Builder
	timer   *time.Timer
	stopped bool
}

// Option customizes a Throttle.
type Option func(*Throttle)

// WithScheduler routes timer-driven flushes through fn instead of running
// them inline on the timer goroutine.
func WithScheduler(fn func(func())) Option {
	return func(t *Throttle) {
		t.scheduler = fn
	}
}

// New creates a throttle that delivers coalesced deltas to apply. A zero or
// negative interval falls back to DefaultInterval.
func New(interval time.Duration, apply func(delta string), opts ...Option) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Throttle{
		interval:  interval,
		apply:     apply,
		scheduler: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnDelta buffers one content delta. The first delta after a flush arms the
// timer; subsequent deltas within the window just append.
func (t *Throttle) OnDelta(text string) {
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	t.pending.WriteString(text)
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval, func() {
			t.scheduler(t.FlushNow)
		})
	}
}

// FlushNow delivers whatever is pending immediately and disarms the timer.
// Callers invoke it before terminal actions so buffered content lands ahead
// of the finish. No-op when nothing is pending.
func (t *Throttle) FlushNow() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	delta := t.pending.String()
	t.pending.Reset()
	t.mu.Unlock()

	if delta == "" {
		return
	}
	t.apply(delta)
}

// Stop disarms the timer and discards anything pending. Used when the run
// is torn down without a final flush.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending.Reset()
	t.stopped = true
}
