package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rcarver/devsync/internal/backoff"
	"github.com/rcarver/devsync/internal/registry"
	"github.com/rcarver/devsync/internal/session"
	"github.com/rcarver/devsync/internal/wire"
)

// Config configures a Manager.
type Config struct {
	URL     string         // Push-service WebSocket endpoint
	Backoff backoff.Policy // Reconnection schedule
	Session session.Config // Transport settings for each attempt
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backoff: backoff.DefaultPolicy(),
		Session: session.DefaultConfig(),
	}
}

// Manager is the long-lived connection orchestrator. It holds at most
// one live session, retries unclean closures on the backoff schedule,
// and fans decoded frames into the listener registry.
//
// Each session is tagged with a generation; events arriving from a
// session whose generation no longer matches are discarded, so a dead
// session's late callbacks can never corrupt the state machine or
// reach subscribers.
type Manager struct {
	cfg       Config
	reg       *registry.Registry
	sched     Scheduler
	factory   SessionFactory
	logger    *slog.Logger
	indicator Indicator
	notifier  Notifier

	mu            sync.Mutex
	ctx           context.Context
	state         State
	gen           uint64
	sess          Session
	attempt       int
	lastAttemptAt time.Time
	cancelRetry   func()

	// Restore-notice bookkeeping: the first successful connect is
	// silent; only a reconnect after a lost link gets a notice.
	everConnected bool
	lost          bool

	onConnected    []func()
	onDisconnected []func()

	dispatched   int64
	decodeErrors int64
	staleEvents  int64
}

// New creates a Manager. It does not connect until Connect is called.
func New(cfg Config, reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		reg:    reg,
		sched:  NewScheduler(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		m.factory = func(gen uint64, ev session.Events) Session {
			return session.New(gen, m.cfg.Session, ev, m.logger)
		}
	}
	return m
}

// Connect starts the state machine. No-op while already connecting or
// connected; from Abandoned it resets the attempt counter and tries
// again. ctx bounds the dial of every session this call spawns.
func (m *Manager) Connect(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateConnecting || m.state == StateConnected {
		return
	}
	if m.cancelRetry != nil {
		m.cancelRetry()
		m.cancelRetry = nil
	}

	m.ctx = ctx
	m.attempt = 0
	m.startSessionLocked()
}

// Disconnect requests clean shutdown and suppresses reconnection until
// Connect is called again. Cancels a pending retry timer.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.cancelRetry != nil {
		m.cancelRetry()
		m.cancelRetry = nil
	}
	prev := m.state
	sess := m.sess
	m.sess = nil
	m.gen++ // events from the old session are stale from here on
	m.state = StateIdle
	m.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	if prev == StateConnected {
		m.notifyOffline()
	}

	m.logger.Info("disconnected", "prev_state", prev)
}

// Send delivers raw bytes over the current session. Returns false when
// not connected; no queueing happens at this layer.
func (m *Manager) Send(data []byte) bool {
	m.mu.Lock()
	sess := m.sess
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || sess == nil {
		return false
	}
	return sess.Send(data)
}

// RequestNow asks the server for an immediate sample of a kind outside
// the regular push cadence.
func (m *Manager) RequestNow(kind string) bool {
	action, ok := wire.RequestAction(kind)
	if !ok {
		return false
	}
	return m.Send(wire.EncodeControl(action))
}

// Subscribe registers a callback for an update kind.
func (m *Manager) Subscribe(kind string, cb registry.Callback) registry.Handle {
	return m.reg.Subscribe(kind, cb)
}

// Unsubscribe removes a registration.
func (m *Manager) Unsubscribe(h registry.Handle) {
	m.reg.Unsubscribe(h)
}

// OnConnected registers a lifecycle hook invoked with no payload on
// every transition into the connected state.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	m.onConnected = append(m.onConnected, fn)
	m.mu.Unlock()
}

// OnDisconnected registers a lifecycle hook invoked with no payload
// whenever an established connection is lost or torn down.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	m.onDisconnected = append(m.onDisconnected, fn)
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:        m.state,
		Attempt:      m.attempt,
		Dispatched:   m.dispatched,
		DecodeErrors: m.decodeErrors,
		StaleEvents:  m.staleEvents,
	}
}

// startSessionLocked creates and opens the next session. Caller holds
// m.mu. The dial runs off-thread; a dial error is folded into the same
// path as an unclean closure.
func (m *Manager) startSessionLocked() {
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.lastAttemptAt = time.Now()

	ev := session.Events{
		OnConnected: func() { m.handleConnected(gen) },
		OnMessage:   func(f wire.Frame) { m.handleMessage(gen, f) },
		OnDecodeError: func(err error, raw []byte) {
			m.handleDecodeError(gen, err)
		},
		OnClosed: func(info session.CloseInfo) { m.handleClosed(gen, info) },
	}

	sess := m.factory(gen, ev)
	m.sess = sess
	ctx := m.ctx

	m.logger.Debug("opening session", "gen", gen, "url", m.cfg.URL)

	go func() {
		if err := sess.Open(ctx, m.cfg.URL); err != nil {
			m.handleClosed(gen, session.CloseInfo{
				Reason: err.Error(),
				Clean:  false,
			})
		}
	}()
}

// handleConnected processes a session's connected event.
func (m *Manager) handleConnected(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.staleEvents++
		m.mu.Unlock()
		m.logger.Debug("discarding connected event from stale session", "gen", gen)
		return
	}
	// A session whose closure was already processed has left Connecting;
	// its connected event arrives too late to act on.
	if m.state != StateConnecting || m.sess == nil {
		m.staleEvents++
		state := m.state
		m.mu.Unlock()
		m.logger.Debug("discarding connected event, session already torn down",
			"gen", gen,
			"state", state,
		)
		return
	}

	m.state = StateConnected
	m.attempt = 0
	restored := m.everConnected && m.lost
	m.everConnected = true
	m.lost = false
	sess := m.sess
	hooks := append([]func(){}, m.onConnected...)
	m.mu.Unlock()

	m.logger.Info("connected", "gen", gen, "restored", restored)

	if m.indicator != nil {
		m.indicator.Online()
	}
	if restored && m.notifier != nil {
		m.notifier.Notify("connection restored")
	}
	for _, fn := range hooks {
		fn()
	}

	// Prime the UI immediately instead of waiting for the next push.
	sess.Send(wire.EncodeControl(wire.ActionStatusSnapshot))
	sess.Send(wire.EncodeControl(wire.ActionMetricsSnapshot))
}

// handleMessage forwards a decoded frame to the registry, preserving
// transport delivery order within a session.
func (m *Manager) handleMessage(gen uint64, f wire.Frame) {
	m.mu.Lock()
	if gen != m.gen {
		m.staleEvents++
		m.mu.Unlock()
		m.logger.Debug("discarding message from stale session", "gen", gen, "kind", f.Kind)
		return
	}
	m.dispatched++
	m.mu.Unlock()

	m.reg.Dispatch(f.Kind, f.Data, f.Timestamp)
}

// handleDecodeError records a dropped frame. The session already
// discarded it; nothing else is affected.
func (m *Manager) handleDecodeError(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.staleEvents++
		m.mu.Unlock()
		return
	}
	m.decodeErrors++
	m.mu.Unlock()

	m.logger.Warn("frame dropped", "gen", gen, "error", err)
}

// handleClosed processes a session's terminal closure.
func (m *Manager) handleClosed(gen uint64, info session.CloseInfo) {
	m.mu.Lock()
	if gen != m.gen {
		m.staleEvents++
		m.mu.Unlock()
		m.logger.Debug("discarding closed event from stale session", "gen", gen)
		return
	}

	prev := m.state
	m.sess = nil

	if info.Clean {
		m.state = StateIdle
		m.mu.Unlock()

		m.logger.Info("session closed cleanly", "gen", gen, "code", info.Code)
		if prev == StateConnected {
			m.notifyOffline()
		}
		return
	}

	if prev == StateConnected {
		m.lost = true
	}

	m.attempt++
	if m.cfg.Backoff.Exhausted(m.attempt) {
		m.state = StateAbandoned
		attempts := m.attempt
		m.mu.Unlock()

		m.logger.Warn("reconnect attempts exhausted, giving up",
			"gen", gen,
			"attempts", attempts,
		)
		if prev == StateConnected {
			m.notifyOffline()
		}
		if m.notifier != nil {
			m.notifier.Notify("connection lost, please refresh")
		}
		return
	}

	delay := m.cfg.Backoff.NextDelay(m.attempt - 1)
	m.state = StateReconnectWait
	m.cancelRetry = m.sched.After(delay, m.retryNow)
	attempt := m.attempt
	m.mu.Unlock()

	m.logger.Info("connection lost, retrying",
		"gen", gen,
		"code", info.Code,
		"reason", info.Reason,
		"attempt", attempt,
		"delay", delay,
	)
	if prev == StateConnected {
		m.notifyOffline()
	}
}

// retryNow fires when the backoff timer elapses. A Disconnect between
// scheduling and firing leaves the state machine out of ReconnectWait,
// so a late timer can never resurrect the connection.
func (m *Manager) retryNow() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReconnectWait {
		return
	}
	m.cancelRetry = nil
	m.startSessionLocked()
}

// notifyOffline flips the indicator and fires disconnected hooks.
func (m *Manager) notifyOffline() {
	m.mu.Lock()
	hooks := append([]func(){}, m.onDisconnected...)
	m.mu.Unlock()

	if m.indicator != nil {
		m.indicator.Offline()
	}
	for _, fn := range hooks {
		fn()
	}
}
