package keepalive

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcarver/devsync/internal/wire"
)

func TestStartStop(t *testing.T) {
	var calls atomic.Int64
	sender := SenderFunc(func(kind string) bool {
		if kind != wire.KindKeepaliveAck {
			t.Errorf("kind = %q, want %q", kind, wire.KindKeepaliveAck)
		}
		calls.Add(1)
		return true
	})

	k := New(Config{Interval: 10 * time.Millisecond}, sender, nil)
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(55 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := k.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	got := calls.Load()
	if got < 2 {
		t.Errorf("calls = %d, want at least 2", got)
	}

	// No further requests after Stop.
	time.Sleep(30 * time.Millisecond)
	if after := calls.Load(); after != got {
		t.Errorf("calls after stop = %d, want %d", after, got)
	}
}

func TestDisconnectedSkips(t *testing.T) {
	var calls atomic.Int64
	sender := SenderFunc(func(kind string) bool {
		calls.Add(1)
		return false
	})

	k := New(Config{Interval: 10 * time.Millisecond}, sender, nil)
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(35 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := k.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Refused requests must not stop the loop.
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2", calls.Load())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval)
	}
}
