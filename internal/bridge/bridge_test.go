package bridge

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rcarver/devsync/internal/registry"
	"github.com/rcarver/devsync/internal/wire"
)

// recordingRenderer captures the last payload per target.
type recordingRenderer struct {
	mu      sync.Mutex
	last    map[string]string
	renders int
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{last: make(map[string]string)}
}

func (r *recordingRenderer) Render(targetID string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[targetID] = string(payload)
	r.renders++
}

func (r *recordingRenderer) lastFor(targetID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[targetID]
}

var (
	t1 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 = time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)
)

func TestLastWriteWins_InOrder(t *testing.T) {
	r := newRecordingRenderer()
	b := New(r)

	b.ApplyRefresh("device-status", json.RawMessage(`{"v":1}`), t1)
	b.ApplyRefresh("device-status", json.RawMessage(`{"v":2}`), t2)

	if got := r.lastFor("device-status"); got != `{"v":2}` {
		t.Errorf("rendered = %s, want {\"v\":2}", got)
	}
}

func TestLastWriteWins_ReversedOrder(t *testing.T) {
	r := newRecordingRenderer()
	b := New(r)

	// Network jitter inverts delivery; the final rendered state must
	// be identical to the in-order case.
	b.ApplyRefresh("device-status", json.RawMessage(`{"v":2}`), t2)
	b.ApplyRefresh("device-status", json.RawMessage(`{"v":1}`), t1)

	if got := r.lastFor("device-status"); got != `{"v":2}` {
		t.Errorf("rendered = %s, want {\"v\":2}", got)
	}
	if r.renders != 1 {
		t.Errorf("renders = %d, want 1 (stale update discarded)", r.renders)
	}
}

func TestTieBrokenByArrivalOrder(t *testing.T) {
	r := newRecordingRenderer()
	b := New(r)

	b.ApplyRefresh("bandwidth", json.RawMessage(`{"v":1}`), t1)
	b.ApplyRefresh("bandwidth", json.RawMessage(`{"v":2}`), t1)

	if got := r.lastFor("bandwidth"); got != `{"v":2}` {
		t.Errorf("rendered = %s, want later arrival to win a timestamp tie", got)
	}
}

func TestMissingTimestampsUseArrivalOrder(t *testing.T) {
	r := newRecordingRenderer()
	b := New(r)

	b.ApplyRefresh("bandwidth", json.RawMessage(`{"v":1}`), time.Time{})
	b.ApplyRefresh("bandwidth", json.RawMessage(`{"v":2}`), time.Time{})

	if got := r.lastFor("bandwidth"); got != `{"v":2}` {
		t.Errorf("rendered = %s, want {\"v\":2}", got)
	}
}

func TestTargetsIndependent(t *testing.T) {
	r := newRecordingRenderer()
	b := New(r)

	b.ApplyRefresh("device-status", json.RawMessage(`{"a":1}`), t2)
	// An older timestamp on a different target is not stale.
	b.ApplyRefresh("bandwidth", json.RawMessage(`{"b":1}`), t1)

	if got := r.lastFor("bandwidth"); got != `{"b":1}` {
		t.Errorf("bandwidth = %s, want {\"b\":1}", got)
	}
}

func TestMarkerAdvancesBeforeRender(t *testing.T) {
	b := New(nil)

	var sawTS time.Time
	b.renderer = RendererFunc(func(targetID string, payload json.RawMessage) {
		// A synchronous re-entrant read must see the new marker, not
		// the pre-apply one.
		sawTS, _ = b.LastApplied(targetID)
	})

	b.ApplyRefresh("device-status", json.RawMessage(`{}`), t2)

	if !sawTS.Equal(t2) {
		t.Errorf("renderer observed marker %v, want %v", sawTS, t2)
	}
}

func TestAttach_RoutesKindsToTargets(t *testing.T) {
	reg := registry.New(nil)
	r := newRecordingRenderer()
	b := New(r)
	b.Attach(reg)

	reg.Dispatch(wire.KindDeviceStatus, json.RawMessage(`{"vpn":true}`), t1)
	reg.Dispatch(wire.KindBandwidth, json.RawMessage(`{"rx":5}`), t1)
	// Keepalive acks map to no target.
	reg.Dispatch(wire.KindKeepaliveAck, json.RawMessage(`{}`), t1)

	if got := r.lastFor("device-status"); got != `{"vpn":true}` {
		t.Errorf("device-status = %s", got)
	}
	if got := r.lastFor("bandwidth"); got != `{"rx":5}` {
		t.Errorf("bandwidth = %s", got)
	}
	if r.renders != 2 {
		t.Errorf("renders = %d, want 2", r.renders)
	}
}

func TestDetach(t *testing.T) {
	reg := registry.New(nil)
	r := newRecordingRenderer()
	b := New(r)
	b.Attach(reg)
	b.Detach(reg)

	reg.Dispatch(wire.KindDeviceStatus, json.RawMessage(`{}`), t1)

	if r.renders != 0 {
		t.Errorf("renders = %d after detach, want 0", r.renders)
	}
}

type recordingRecorder struct {
	mu      sync.Mutex
	updates []Update
}

func (rec *recordingRecorder) Record(u Update) {
	rec.mu.Lock()
	rec.updates = append(rec.updates, u)
	rec.mu.Unlock()
}

func TestRecorder_OnlyAcceptedUpdates(t *testing.T) {
	rec := &recordingRecorder{}
	b := New(newRecordingRenderer(), WithRecorder(rec))

	b.ApplyRefresh("device-status", json.RawMessage(`{"v":2}`), t2)
	b.ApplyRefresh("device-status", json.RawMessage(`{"v":1}`), t1) // discarded

	if len(rec.updates) != 1 {
		t.Fatalf("recorded %d updates, want 1", len(rec.updates))
	}
	u := rec.updates[0]
	if u.Target != "device-status" || string(u.Payload) != `{"v":2}` {
		t.Errorf("recorded %+v", u)
	}
	if !u.Timestamp.Equal(t2) {
		t.Errorf("recorded Timestamp = %v, want %v", u.Timestamp, t2)
	}
	if u.ReceivedAt.IsZero() {
		t.Error("recorded ReceivedAt is zero")
	}
}

func TestLastApplied(t *testing.T) {
	b := New(newRecordingRenderer())

	if _, ok := b.LastApplied("device-status"); ok {
		t.Error("LastApplied reported true before any update")
	}

	b.ApplyRefresh("device-status", json.RawMessage(`{}`), t1)

	ts, ok := b.LastApplied("device-status")
	if !ok || !ts.Equal(t1) {
		t.Errorf("LastApplied = (%v, %v), want (%v, true)", ts, ok, t1)
	}
}
