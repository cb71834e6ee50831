package registry

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KindAny subscribes a callback to every dispatched kind.
const KindAny = "*"

// Callback receives a dispatched update.
type Callback func(kind string, payload json.RawMessage, ts time.Time)

// Handle identifies a single registration for later removal.
type Handle struct {
	id   uuid.UUID
	kind string
}

type entry struct {
	id uuid.UUID
	cb Callback
}

// Registry is a typed pub/sub table mapping an update kind to the set
// of interested callbacks. It never owns the subscribers, only invokes
// them; a callback that panics is isolated so its siblings still run.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[string][]entry
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		listeners: make(map[string][]entry),
	}
}

// Subscribe registers a callback for a kind. Duplicate callbacks are
// allowed and each registration fires independently.
func (r *Registry) Subscribe(kind string, cb Callback) Handle {
	h := Handle{id: uuid.New(), kind: kind}

	r.mu.Lock()
	r.listeners[kind] = append(r.listeners[kind], entry{id: h.id, cb: cb})
	r.mu.Unlock()

	return h
}

// Unsubscribe removes a registration. No-op if already removed.
func (r *Registry) Unsubscribe(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.listeners[h.kind]
	for i, e := range entries {
		if e.id == h.id {
			r.listeners[h.kind] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(r.listeners[h.kind]) == 0 {
		delete(r.listeners, h.kind)
	}
}

// Dispatch synchronously invokes every callback registered for kind,
// then every callback registered for KindAny, in registration order.
func (r *Registry) Dispatch(kind string, payload json.RawMessage, ts time.Time) {
	r.mu.Lock()
	targets := make([]entry, 0, len(r.listeners[kind])+len(r.listeners[KindAny]))
	targets = append(targets, r.listeners[kind]...)
	if kind != KindAny {
		targets = append(targets, r.listeners[KindAny]...)
	}
	r.mu.Unlock()

	for _, e := range targets {
		r.invoke(e, kind, payload, ts)
	}
}

// invoke runs a single callback, containing any panic at the dispatch
// boundary so the remaining callbacks still run.
func (r *Registry) invoke(e entry, kind string, payload json.RawMessage, ts time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("listener panicked",
				"kind", kind,
				"listener", e.id,
				"panic", rec,
			)
		}
	}()

	e.cb(kind, payload, ts)
}

// Len returns the number of registrations for a kind.
func (r *Registry) Len(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[kind])
}
