package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message kinds pushed by the status service.
const (
	KindDeviceStatus = "device-status"
	KindBandwidth    = "bandwidth"
	KindKeepaliveAck = "keepalive-ack"
)

// Control actions the client may send to the service.
const (
	ActionPing            = "request-ping"
	ActionStatusSnapshot  = "request-status-snapshot"
	ActionMetricsSnapshot = "request-metrics-snapshot"
)

// ErrMissingKind indicates a frame without a "type" field.
var ErrMissingKind = errors.New("frame missing type")

// Frame is one decoded inbound message.
//
// Data is kept opaque: payload shape is defined per-kind by whoever
// renders it, not by the connection layer. Timestamp is zero when the
// frame carried none (or an unparsable one).
type Frame struct {
	Kind      string
	Data      json.RawMessage
	Timestamp time.Time
}

// frameWire is the JSON shape of an inbound frame.
type frameWire struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Decode parses a raw inbound frame.
func Decode(raw []byte) (Frame, error) {
	var w frameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if w.Type == "" {
		return Frame{}, ErrMissingKind
	}

	f := Frame{
		Kind: w.Type,
		Data: w.Data,
	}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
			f.Timestamp = ts
		}
	}
	return f, nil
}

// Control is an outbound request message.
type Control struct {
	Action string `json:"action"`
}

// EncodeControl builds the wire bytes for a control action.
func EncodeControl(action string) []byte {
	data, _ := json.Marshal(Control{Action: action})
	return data
}

// RequestAction maps a message kind to the control action that asks the
// service for an immediate sample of that kind.
func RequestAction(kind string) (string, bool) {
	switch kind {
	case KindDeviceStatus:
		return ActionStatusSnapshot, true
	case KindBandwidth:
		return ActionMetricsSnapshot, true
	case KindKeepaliveAck:
		return ActionPing, true
	}
	return "", false
}
