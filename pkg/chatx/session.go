package chatx

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/tidal/pkg/asyncx"
	"github.com/Abraxas-365/tidal/pkg/errx"
	"github.com/Abraxas-365/tidal/pkg/fetchx"
	"github.com/Abraxas-365/tidal/pkg/framex"
	"github.com/Abraxas-365/tidal/pkg/historyx"
	"github.com/Abraxas-365/tidal/pkg/kernel"
	"github.com/Abraxas-365/tidal/pkg/logx"
	"github.com/Abraxas-365/tidal/pkg/reducex"
	"github.com/Abraxas-365/tidal/pkg/throttlex"
)

// Transport opens a frame stream for a run. framex.Client satisfies it;
// tests substitute scripted fakes.
type Transport interface {
	Stream(ctx context.Context, req framex.Request) (framex.Stream, error)
}

const (
	defaultAckTimeout  = 250 * time.Millisecond
	defaultIdleTimeout = 30 * time.Second
	archiveTimeout     = 10 * time.Second

	statusThinking = "Thinking..."
	statusWaiting  = "Waiting for response..."

	// interruptedMarker is appended to the assistant content when the user
	// cancels mid-stream, so the transcript itself records the cut.
	interruptedMarker = "[interrupted]"
)

// Session owns one conversation's reconciliation loop. All state mutation
// happens on a single goroutine fed by a work channel: frames from the
// receiver, throttle flushes, timer expirations, and user commands are all
// serialized there, so no ordering races exist between them.
type Session struct {
	id        kernel.SessionID
	transport Transport

	ackTimeout  time.Duration
	idleTimeout time.Duration
	interval    time.Duration

	history historyx.Store
	library *fetchx.Library

	work      chan func()
	refresh   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	// Owner-goroutine state. Never touched outside the work loop.
	reducer       *reducex.Reducer
	throttle      *throttlex.Throttle
	messages      []Message
	running       bool
	acked         bool
	userConfirmed bool
	convID        string
	runCtx        context.Context
	cancelRun     context.CancelFunc
	ackTimer      *time.Timer
	idleTimer     *time.Timer
}

// Option customizes a Session.
type Option func(*Session)

// WithAckTimeout sets how long the optimistic placeholder waits for the
// first frame before the status degrades to waiting.
func WithAckTimeout(d time.Duration) Option {
	return func(s *Session) { s.ackTimeout = d }
}

// WithIdleTimeout sets how long a silent stream is tolerated before it is
// treated as a disconnect.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) { s.idleTimeout = d }
}

// WithThrottleInterval sets the delivery coalescing window.
func WithThrottleInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// WithHistory archives the transcript after each finished run.
func WithHistory(store historyx.Store) Option {
	return func(s *Session) { s.history = store }
}

// WithLibrary prefetches generated artifacts as they are announced.
func WithLibrary(lib *fetchx.Library) Option {
	return func(s *Session) { s.library = lib }
}

// New creates a session over transport and starts its work loop.
func New(id kernel.SessionID, transport Transport, opts ...Option) *Session {
	s := &Session{
		id:          id,
		transport:   transport,
		ackTimeout:  defaultAckTimeout,
		idleTimeout: defaultIdleTimeout,
		work:        make(chan func(), 256),
		refresh:     make(chan struct{}, 1),
		closed:      make(chan struct{}),
		reducer:     reducex.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.throttle = throttlex.New(s.interval, s.applyDelta,
		throttlex.WithScheduler(func(fn func()) { s.submit(fn) }))

	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.work:
			fn()
		case <-s.closed:
			return
		}
	}
}

func (s *Session) submit(fn func()) bool {
	select {
	case <-s.closed:
		return false
	case s.work <- fn:
		return true
	}
}

// Refresh signals at most once per coalescing window that the snapshot
// changed. The channel never blocks the loop; a slow reader just sees
// collapsed notifications.
func (s *Session) Refresh() <-chan struct{} {
	return s.refresh
}

func (s *Session) signalRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the rendered messages, safe to read while the
// loop keeps running.
func (s *Session) Snapshot() []Message {
	out := make(chan []Message, 1)
	ok := s.submit(func() {
		cp := make([]Message, len(s.messages))
		for i := range s.messages {
			cp[i] = s.messages[i].clone()
		}
		out <- cp
	})
	if !ok {
		return nil
	}
	// An accepted item can still go unexecuted when Close lands before the
	// loop drains it, so never wait on out alone.
	select {
	case cp := <-out:
		return cp
	case <-s.closed:
		select {
		case cp := <-out:
			return cp
		default:
			return nil
		}
	}
}

// Send starts a new run for prompt. It returns the client-assigned run id
// immediately; frames are reconciled asynchronously. Fails if a run is
// already in flight.
func (s *Session) Send(ctx context.Context, prompt string) (kernel.RunID, error) {
	if prompt == "" {
		return "", chatErrors.New(ErrEmptyPrompt)
	}

	type result struct {
		runID kernel.RunID
		err   error
	}
	out := make(chan result, 1)

	ok := s.submit(func() {
		if s.running {
			out <- result{err: chatErrors.New(ErrRunActive)}
			return
		}

		runID := kernel.NewRunID(uuid.New().String())
		s.reducer.ResetRun()
		s.reducer.SetActiveRun(runID)

		// Optimistic placeholders: the user turn and an empty assistant
		// message, both pending until the backend's first frame.
		s.messages = append(s.messages,
			Message{Role: RoleUser, Content: prompt, Pending: true},
			Message{Role: RoleAssistant, Status: statusThinking, Pending: true},
		)
		s.running = true
		s.acked = false
		s.userConfirmed = false

		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.runCtx = runCtx
		s.cancelRun = cancel

		s.ackTimer = time.AfterFunc(s.ackTimeout, func() {
			s.submit(s.onAckTimeout)
		})
		s.resetIdleTimer()

		go s.receive(runCtx, framex.Request{SessionID: s.id, RunID: runID, Prompt: prompt})

		s.signalRefresh()
		out <- result{runID: runID}
	})
	if !ok {
		return "", chatErrors.New(ErrSessionClosed)
	}

	// Same close race as Snapshot: the item may never run once the loop
	// has exited.
	select {
	case r := <-out:
		return r.runID, r.err
	case <-s.closed:
		select {
		case r := <-out:
			return r.runID, r.err
		default:
			return "", chatErrors.New(ErrSessionClosed)
		}
	}
}

// Cancel interrupts the in-flight run, if any. The assistant message keeps
// whatever content has landed and is marked interrupted.
func (s *Session) Cancel() {
	s.submit(func() {
		if !s.running {
			return
		}
		s.cancelRun()
		s.applyActions(s.reducer.Cancel())
	})
}

// Close tears the session down: an in-flight run is aborted, timers are
// stopped, and the work loop exits.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		done := make(chan struct{})
		s.submit(func() {
			if s.running {
				s.cancelRun()
				s.applyActions(s.reducer.Disconnect())
			}
			s.throttle.Stop()
			s.stopTimers()
			close(done)
		})
		<-done
		close(s.closed)
	})
}

// ─── Receiver ────────────────────────────────────────────────────────────────

// receive runs off-loop: it owns the network read and hands every frame to
// the work loop. It never touches session state directly.
func (s *Session) receive(ctx context.Context, req framex.Request) {
	stream, err := s.transport.Stream(ctx, req)
	if err != nil {
		s.submit(func() { s.onStreamEnd(req.RunID, err) })
		return
	}
	defer stream.Close()

	for {
		frame, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				s.submit(func() { s.onStreamEnd(req.RunID, nil) })
			} else {
				streamErr := err
				s.submit(func() { s.onStreamEnd(req.RunID, streamErr) })
			}
			return
		}
		f := frame
		if !s.submit(func() { s.onFrame(req.RunID, f) }) {
			return
		}
	}
}

// ─── Owner-loop handlers ─────────────────────────────────────────────────────

func (s *Session) onFrame(runID kernel.RunID, f framex.Frame) {
	if !s.running || runID != s.reducer.ActiveRun() {
		// A frame from a previous run's receiver, still draining.
		return
	}
	s.ackPlaceholders()
	s.resetIdleTimer()
	s.applyActions(s.reducer.Reduce(f))
}

func (s *Session) onStreamEnd(runID kernel.RunID, err error) {
	if !s.running || runID != s.reducer.ActiveRun() || s.reducer.Finished() {
		return
	}

	if err == nil {
		// Clean end of stream without an explicit lifecycle marker.
		end := framex.RunEvent(s.reducer.ActiveRun(), framex.StreamLifecycle, nil,
			framex.RunPayload{Phase: framex.PhaseEnd})
		s.applyActions(s.reducer.Reduce(end))
		return
	}

	logx.WithError(err).WithField("session_id", s.id.String()).Warn("stream failed")
	s.applyActions(s.reducer.Disconnect())
}

func (s *Session) onAckTimeout() {
	if !s.running || s.acked {
		return
	}
	if asst := s.assistant(); asst != nil {
		asst.Status = statusWaiting
	}
	s.signalRefresh()
}

func (s *Session) onIdle() {
	if !s.running {
		return
	}
	logx.WithField("session_id", s.id.String()).Warn("stream idle timeout, treating as disconnect")
	s.cancelRun()
	s.applyActions(s.reducer.Disconnect())
}

func (s *Session) applyActions(actions []reducex.Action) {
	for _, a := range actions {
		switch a.Type {
		case reducex.ActionUpdateContent:
			s.throttle.OnDelta(a.Delta)

		case reducex.ActionUpdateStatus:
			// Status changes jump the throttle queue; buffered content must
			// land first so the transcript stays ordered.
			s.throttle.FlushNow()
			if asst := s.assistant(); asst != nil {
				asst.Status = a.Status
			}
			s.signalRefresh()

		case reducex.ActionAppendUserTurn:
			s.confirmUserTurn(a.Text)
			s.signalRefresh()

		case reducex.ActionAppendFile:
			s.throttle.FlushNow()
			if asst := s.assistant(); asst != nil && a.File != nil {
				asst.Files = append(asst.Files, *a.File)
				s.prefetch(*a.File)
			}
			s.signalRefresh()

		case reducex.ActionFinish:
			s.finishRun(a.Interrupted, false, false)

		case reducex.ActionErrorFinish:
			s.finishRun(false, true, a.Partial)
		}
	}
}

// applyDelta is the throttle's flush target. It always runs on the work
// loop: directly when FlushNow is called there, via the scheduler when the
// timer fires.
func (s *Session) applyDelta(delta string) {
	asst := s.assistant()
	if asst == nil {
		return
	}
	asst.Content += delta
	asst.Status = ""
	s.signalRefresh()
}

func (s *Session) finishRun(interrupted, errored, partial bool) {
	s.throttle.FlushNow()

	if asst := s.assistant(); asst != nil {
		if interrupted {
			if asst.Content != "" {
				asst.Content += "\n\n"
			}
			asst.Content += interruptedMarker
		}
		asst.Done = true
		asst.Pending = false
		asst.Status = ""
		asst.Interrupted = interrupted
		asst.Errored = errored
		asst.Partial = partial
	}

	s.running = false
	s.stopTimers()
	if s.cancelRun != nil {
		s.cancelRun()
	}

	s.archive()
	s.signalRefresh()
}

// ─── Helpers (owner loop only) ───────────────────────────────────────────────

func (s *Session) assistant() *Message {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return &s.messages[i]
		}
	}
	return nil
}

// ackPlaceholders confirms the optimistic placeholders on the first frame
// of the run.
func (s *Session) ackPlaceholders() {
	if s.acked {
		return
	}
	s.acked = true
	if s.ackTimer != nil {
		s.ackTimer.Stop()
	}
	for i := range s.messages {
		s.messages[i].Pending = false
	}
}

// confirmUserTurn replaces the optimistic user turn with the backend's echo,
// or appends one if nothing was pending (a turn injected server-side).
func (s *Session) confirmUserTurn(text string) {
	if !s.userConfirmed {
		for i := len(s.messages) - 1; i >= 0; i-- {
			if s.messages[i].Role == RoleUser {
				s.messages[i].Content = text
				s.messages[i].Pending = false
				s.userConfirmed = true
				return
			}
		}
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
}

// prefetch warms the library off-loop. Scoped to the run context: a
// cancelled run has no reader waiting for its artifacts, and the cache
// retries a cleanly aborted fetch on the next request anyway.
func (s *Session) prefetch(fd framex.FileDescriptor) {
	if s.library == nil || s.runCtx == nil {
		return
	}
	lib := s.library
	asyncx.DoCtx(s.runCtx, func(ctx context.Context) {
		if _, err := lib.Get(ctx, fd); err != nil {
			logx.WithError(err).WithField("file_id", fd.ID).Warn("artifact prefetch failed")
		}
	})
}

func (s *Session) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.submit(s.onIdle)
	})
}

func (s *Session) stopTimers() {
	if s.ackTimer != nil {
		s.ackTimer.Stop()
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
}

// archive persists the transcript off-loop. Failures are logged, never
// surfaced: history is best effort.
func (s *Session) archive() {
	if s.history == nil {
		return
	}

	conv := historyx.NewConversation(s.id, s.title())
	if s.convID == "" {
		s.convID = conv.ID
	}
	conv.ID = s.convID // same row across runs, Save upserts
	for i := range s.messages {
		m := &s.messages[i]
		entry := historyx.Entry{
			Content:     m.Content,
			Interrupted: m.Interrupted,
			Errored:     m.Errored,
			Partial:     m.Partial,
			Files:       append([]framex.FileDescriptor(nil), m.Files...),
		}
		switch m.Role {
		case RoleUser:
			entry.Role = historyx.RoleUser
		case RoleAssistant:
			entry.Role = historyx.RoleAssistant
		}
		conv.Append(entry)
	}

	store := s.history
	asyncx.Do(func() {
		_, err := asyncx.WithTimeout(context.Background(), archiveTimeout,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, store.Save(ctx, conv)
			})
		if err != nil {
			var e *errx.Error
			if errx.As(err, &e) {
				logx.WithError(err).WithField("code", e.Code).Warn("history archive failed")
				return
			}
			logx.WithError(err).Warn("history archive failed")
		}
	})
}

func (s *Session) title() string {
	for i := range s.messages {
		if s.messages[i].Role == RoleUser {
			t := s.messages[i].Content
			if len(t) > 80 {
				t = t[:80]
			}
			return t
		}
	}
	return "Untitled conversation"
}
