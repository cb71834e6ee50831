package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rcarver/devsync/internal/registry"
	"github.com/rcarver/devsync/internal/wire"
)

// Renderer applies a state payload to a named dashboard region.
// Implemented by the surrounding product; the bridge never owns UI
// state, only invokes this contract.
type Renderer interface {
	Render(targetID string, payload json.RawMessage)
}

// RendererFunc is a function adapter for Renderer.
type RendererFunc func(targetID string, payload json.RawMessage)

func (f RendererFunc) Render(targetID string, payload json.RawMessage) {
	f(targetID, payload)
}

// Update is an accepted state change, as handed to the Recorder.
type Update struct {
	Target     string
	Kind       string
	Payload    json.RawMessage
	Timestamp  time.Time // Logical timestamp from the message, zero if absent
	ReceivedAt time.Time // Local time the bridge accepted it
}

// Recorder receives every update the bridge accepts. Optional; used to
// persist a history of displayed state.
type Recorder interface {
	Record(u Update)
}

// DefaultTargets maps each pushed kind to the dashboard region it
// drives. Keepalive acks carry no displayable state.
func DefaultTargets() map[string]string {
	return map[string]string{
		wire.KindDeviceStatus: "device-status",
		wire.KindBandwidth:    "bandwidth",
	}
}

// marker tracks the newest update applied to one target.
type marker struct {
	ts  time.Time
	seq uint64
}

// Bridge converts push messages and partial-refresh completions into
// canonical apply calls against render targets, enforcing
// last-write-wins per target.
//
// An update that is not strictly newer than the last applied one is
// discarded silently: inverted delivery order is expected under
// network jitter, not exceptional. When timestamps are absent or tie,
// a per-target arrival sequence breaks the tie, so later arrivals win.
type Bridge struct {
	renderer Renderer
	recorder Recorder
	targets  map[string]string
	logger   *slog.Logger

	mu      sync.Mutex
	applied map[string]marker
	handles []registry.Handle
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRecorder attaches an update recorder.
func WithRecorder(rec Recorder) Option {
	return func(b *Bridge) { b.recorder = rec }
}

// WithTargets overrides the kind-to-target mapping.
func WithTargets(targets map[string]string) Option {
	return func(b *Bridge) { b.targets = targets }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bridge rendering through r.
func New(r Renderer, opts ...Option) *Bridge {
	b := &Bridge{
		renderer: r,
		targets:  DefaultTargets(),
		logger:   slog.Default(),
		applied:  make(map[string]marker),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach subscribes the bridge to the registry for every kind it maps
// to a target.
func (b *Bridge) Attach(reg *registry.Registry) {
	for kind := range b.targets {
		h := reg.Subscribe(kind, b.handleMessage)
		b.mu.Lock()
		b.handles = append(b.handles, h)
		b.mu.Unlock()
	}
}

// Detach removes the bridge's registry subscriptions.
func (b *Bridge) Detach(reg *registry.Registry) {
	b.mu.Lock()
	handles := b.handles
	b.handles = nil
	b.mu.Unlock()

	for _, h := range handles {
		reg.Unsubscribe(h)
	}
}

// handleMessage is the registry callback for push updates.
func (b *Bridge) handleMessage(kind string, payload json.RawMessage, ts time.Time) {
	target, ok := b.targets[kind]
	if !ok {
		return
	}
	b.apply(target, kind, payload, ts, "push")
}

// ApplyRefresh feeds a completed partial-refresh response into the same
// last-write-wins gate as push updates.
func (b *Bridge) ApplyRefresh(targetID string, payload json.RawMessage, ts time.Time) {
	b.apply(targetID, "", payload, ts, "refresh")
}

// LastApplied returns the logical timestamp of the newest accepted
// update for a target, and whether any update was applied at all.
func (b *Bridge) LastApplied(targetID string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.applied[targetID]
	return m.ts, ok
}

// apply runs the last-write-wins gate and invokes the render contract.
// The marker is advanced before rendering, so a renderer that triggers
// a synchronous re-entrant update reads fresh state.
func (b *Bridge) apply(target, kind string, payload json.RawMessage, ts time.Time, source string) {
	b.mu.Lock()
	last := b.applied[target]

	// Strictly older updates lose. Absent or equal timestamps fall
	// back to arrival order via the per-target sequence, which always
	// moves forward.
	if !ts.IsZero() && !last.ts.IsZero() && ts.Before(last.ts) {
		b.mu.Unlock()
		b.logger.Debug("discarding stale update",
			"target", target,
			"source", source,
			"ts", ts,
			"last", last.ts,
		)
		return
	}

	next := marker{ts: last.ts, seq: last.seq + 1}
	if ts.After(last.ts) {
		next.ts = ts
	}
	b.applied[target] = next
	b.mu.Unlock()

	b.renderer.Render(target, payload)

	if b.recorder != nil {
		b.recorder.Record(Update{
			Target:     target,
			Kind:       kind,
			Payload:    payload,
			Timestamp:  ts,
			ReceivedAt: time.Now(),
		})
	}
}
