package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/agromesh/realtime-gateway/internal/token"
)

// State is a session lifecycle state.
type State int32

const (
	StateHandshaking State = iota
	StateAuthenticated
	StateClosing
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Config bounds a single session's resource use.
type Config struct {
	QueueDepth     int           // outbound frame capacity
	DropThreshold  int           // drops inside DropWindow before SlowConsumer close
	DropWindow     time.Duration // rolling window for the drop counter
	BroadcastRate  float64       // client broadcasts per second
	BroadcastBurst int           // token bucket burst
}

// Session is one live client connection.
type Session struct {
	ID       string
	Identity token.Identity
	Queue    *Queue
	Limiter  *rate.Limiter

	state        atomic.Int32
	lastActivity atomic.Int64 // unix nanos

	drops dropWindow

	closeOnce   sync.Once
	closed      chan struct{}
	closeCode   int
	closeReason string
}

// New creates a Session in Handshaking state with a fresh id.
func New(identity token.Identity, cfg Config) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		Queue:    NewQueue(cfg.QueueDepth),
		Limiter:  rate.NewLimiter(rate.Limit(cfg.BroadcastRate), cfg.BroadcastBurst),
		closed:   make(chan struct{}),
		drops: dropWindow{
			window:    cfg.DropWindow,
			threshold: cfg.DropThreshold,
		},
	}
	s.Touch()
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Authenticate transitions Handshaking -> Authenticated.
func (s *Session) Authenticate() {
	s.state.CompareAndSwap(int32(StateHandshaking), int32(StateAuthenticated))
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the last time the session saw inbound traffic or
// a pong.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// BeginClose transitions the session to Closing exactly once, recording
// the close code and reason the transport should send. Reports whether
// this caller won the transition.
func (s *Session) BeginClose(code int, reason string) bool {
	won := false
	s.closeOnce.Do(func() {
		won = true
		s.closeCode = code
		s.closeReason = reason
		s.state.Store(int32(StateClosing))
		close(s.closed)
	})
	return won
}

// Closing is signalled once BeginClose has run.
func (s *Session) Closing() <-chan struct{} {
	return s.closed
}

// CloseCode returns the recorded close code. Valid only after Closing is
// signalled.
func (s *Session) CloseCode() (code int, reason string) {
	return s.closeCode, s.closeReason
}

// MarkClosed records that the transport is fully released and every
// index entry is gone.
func (s *Session) MarkClosed() {
	s.state.Store(int32(StateClosed))
	s.Queue.Close()
}

// RecordDrop counts an outbound drop and reports whether the session has
// exceeded its slow-consumer threshold inside the rolling window.
func (s *Session) RecordDrop() (total int64, slow bool) {
	return s.drops.record(time.Now())
}

// Drops returns the lifetime drop count.
func (s *Session) Drops() int64 {
	return s.drops.total.Load()
}

// dropWindow is a coarse rolling-window counter: the window resets when
// its span elapses, which is accurate enough to trip the slow-consumer
// policy without keeping per-drop timestamps.
type dropWindow struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	start     time.Time
	count     int
	total     atomic.Int64
}

func (w *dropWindow) record(now time.Time) (int64, bool) {
	total := w.total.Add(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.start.IsZero() || now.Sub(w.start) > w.window {
		w.start = now
		w.count = 0
	}
	w.count++
	return total, w.threshold > 0 && w.count > w.threshold
}
