package keepalive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rcarver/devsync/internal/wire"
)

// Sender issues on-demand sample requests. Satisfied by the connection
// manager's RequestNow.
type Sender interface {
	RequestNow(kind string) bool
}

// SenderFunc is a function adapter for Sender.
type SenderFunc func(kind string) bool

func (f SenderFunc) RequestNow(kind string) bool {
	return f(kind)
}

// Config holds keepalive settings.
type Config struct {
	Interval time.Duration // How often to ping (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
	}
}

// Keepalive periodically requests a ping acknowledgment outside the
// regular push cadence, proving the path end-to-end. A request while
// disconnected simply returns false and is skipped; the connection
// manager owns recovery.
type Keepalive struct {
	cfg    Config
	sender Sender
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Keepalive.
func New(cfg Config, sender Sender, logger *slog.Logger) *Keepalive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keepalive{
		cfg:    cfg,
		sender: sender,
		logger: logger,
	}
}

// Start begins the ping loop.
func (k *Keepalive) Start(ctx context.Context) error {
	k.ctx, k.cancel = context.WithCancel(ctx)

	k.wg.Add(1)
	go k.run()

	k.logger.Info("keepalive started", "interval", k.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the ping loop.
func (k *Keepalive) Stop(ctx context.Context) error {
	if k.cancel != nil {
		k.cancel()
	}

	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		k.logger.Info("keepalive stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *Keepalive) run() {
	defer k.wg.Done()

	ticker := time.NewTicker(k.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.ctx.Done():
			return
		case <-ticker.C:
			if !k.sender.RequestNow(wire.KindKeepaliveAck) {
				k.logger.Debug("keepalive skipped, not connected")
			}
		}
	}
}
