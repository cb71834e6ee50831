package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rcarver/devsync/internal/wire"
)

// Errors
var (
	ErrAlreadyOpened = errors.New("session already opened")
	ErrClosed        = errors.New("session closed")
	ErrStale         = errors.New("connection stale (no ping)")
)

// CloseInfo describes how a session terminated. Clean is true only when
// closure was requested locally or the remote signaled normal shutdown;
// drops, timeouts and resets are unclean.
type CloseInfo struct {
	Code   int
	Reason string
	Clean  bool
}

// Events receives session lifecycle callbacks. Callbacks run on the
// session's read goroutine; nil fields are skipped.
type Events struct {
	OnConnected   func()
	OnMessage     func(f wire.Frame)
	OnDecodeError func(err error, raw []byte)
	OnClosed      func(info CloseInfo)
}

// Config configures a session's transport behavior.
type Config struct {
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // How often to ping the server
	StaleTimeout     time.Duration // Max silence before the link is declared dead
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     15 * time.Second,
		StaleTimeout:     60 * time.Second,
	}
}

// Session owns exactly one physical WebSocket connection attempt,
// end-to-end. A manager creates a fresh Session per attempt and tags
// it with a generation so late events from a dead session can be told
// apart from the live one.
type Session struct {
	cfg    Config
	gen    uint64
	events Events
	logger *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu             sync.RWMutex
	open           bool
	opened         bool
	closeRequested bool
	lastPingAt     time.Time

	closedOnce sync.Once
}

// New creates a session for a single connection attempt.
func New(gen uint64, cfg Config, events Events, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		gen:    gen,
		events: events,
		logger: logger.With("gen", gen),
		done:   make(chan struct{}),
	}
}

// Generation returns the tag assigned by the manager.
func (s *Session) Generation() uint64 {
	return s.gen
}

// Open dials the endpoint and, on success, emits OnConnected and starts
// the read loop. A session can only be opened once; a failed dial
// leaves it dead, and a session that was already Closed never opens.
func (s *Session) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.closeRequested {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrAlreadyOpened
	}
	s.opened = true
	s.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	// Close may have been requested while the dial was in flight; the
	// fresh connection belongs to no one, so drop it.
	if s.closeRequested {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.open = true
	s.lastPingAt = time.Now()
	s.mu.Unlock()

	// The server pings to probe liveness; answer and note the contact.
	conn.SetPingHandler(func(data string) error {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()
		return nil
	})

	s.logger.Debug("session connected", "url", url)

	// Report connected before any read can deliver a message or a
	// closure; the read loop must never get ahead of this event.
	if s.events.OnConnected != nil {
		s.events.OnConnected()
	}

	go s.readLoop()
	go s.heartbeatLoop()

	return nil
}

// Send writes raw bytes to the connection. Returns false without error
// when the session is not open; callers that care can check, callers
// that don't can ignore it.
func (s *Session) Send(data []byte) bool {
	s.mu.RLock()
	open := s.open
	conn := s.conn
	s.mu.RUnlock()

	if !open || conn == nil {
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("send failed", "error", err)
		return false
	}
	return true
}

// Close requests graceful shutdown. Idempotent. The closed event (if
// the session ever opened) arrives through Events with Clean set.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closeRequested {
		s.mu.Unlock()
		return
	}
	s.closeRequested = true
	s.open = false
	conn := s.conn
	s.mu.Unlock()

	close(s.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
}

// readLoop decodes inbound frames and forwards them until the
// connection dies. A malformed frame is reported and dropped; it never
// kills the session.
func (s *Session) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}

		frame, derr := wire.Decode(raw)
		if derr != nil {
			s.logger.Warn("dropping malformed frame", "error", derr)
			if s.events.OnDecodeError != nil {
				s.events.OnDecodeError(derr, raw)
			}
			continue
		}

		if s.events.OnMessage != nil {
			s.events.OnMessage(frame)
		}
	}
}

// handleReadError classifies the terminal read error and emits the
// closed event exactly once.
func (s *Session) handleReadError(err error) {
	s.mu.Lock()
	requested := s.closeRequested
	s.open = false
	s.mu.Unlock()

	info := CloseInfo{
		Code:   websocket.CloseAbnormalClosure,
		Reason: err.Error(),
		Clean:  requested,
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		info.Code = ce.Code
		info.Reason = ce.Text
		if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
			info.Clean = true
		}
	}

	s.emitClosed(info)
}

func (s *Session) emitClosed(info CloseInfo) {
	s.closedOnce.Do(func() {
		s.logger.Debug("session closed",
			"code", info.Code,
			"reason", info.Reason,
			"clean", info.Clean,
		)
		if s.events.OnClosed != nil {
			s.events.OnClosed(info)
		}
	})
}

// heartbeatLoop pings the server and force-closes the link when neither
// pings nor pongs have arrived within StaleTimeout.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			lastPing := s.lastPingAt
			s.mu.RUnlock()

			if conn == nil {
				return
			}

			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}

			if time.Since(lastPing) > s.cfg.StaleTimeout {
				s.logger.Warn("no ping received, closing stale connection",
					"last_ping", lastPing,
					"timeout", s.cfg.StaleTimeout,
				)
				// Tearing down the socket makes the read loop surface
				// an unclean closure.
				conn.Close()
				return
			}
		}
	}
}
