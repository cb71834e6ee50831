package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcarver/devsync/internal/session"
)

// State is the connection manager's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnectWait
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectWait:
		return "reconnect_wait"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Session is one physical connection attempt, as the manager sees it.
// *session.Session satisfies this; tests substitute fakes.
type Session interface {
	Open(ctx context.Context, url string) error
	Send(data []byte) bool
	Close()
}

// SessionFactory creates a session for a new attempt. The factory must
// route the session's events through the given Events struct so the
// manager can tag them with the attempt's generation.
type SessionFactory func(gen uint64, ev session.Events) Session

// Scheduler schedules deferred work so tests can simulate time instead
// of sleeping through real backoff delays.
type Scheduler interface {
	// After runs fn once d has elapsed and returns a cancel function.
	After(d time.Duration, fn func()) (cancel func())
}

type realScheduler struct{}

func (realScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// NewScheduler returns a wall-clock scheduler backed by time.AfterFunc.
func NewScheduler() Scheduler {
	return realScheduler{}
}

// Indicator is the dashboard's two-state online/offline surface.
type Indicator interface {
	Online()
	Offline()
}

// Notifier shows one-shot user-facing notices (connection restored,
// retries exhausted).
type Notifier interface {
	Notify(msg string)
}

// Stats is a snapshot of manager counters.
type Stats struct {
	State        State
	Attempt      int
	Dispatched   int64
	DecodeErrors int64
	StaleEvents  int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithScheduler sets the retry-timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.sched = s }
}

// WithSessionFactory sets the session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(m *Manager) { m.factory = f }
}

// WithIndicator sets the online/offline indicator.
func WithIndicator(i Indicator) Option {
	return func(m *Manager) { m.indicator = i }
}

// WithNotifier sets the user notification surface.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}
