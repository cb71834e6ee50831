package model

import (
	"time"

	"github.com/google/uuid"
)

// Device is one managed device as reported by the status server.
type Device struct {
	ID       uuid.UUID `json:"id"`       // Primary key
	Name     string    `json:"name"`     // Display name
	Online   bool      `json:"online"`   // Current reachability
	Address  string    `json:"address"`  // Management IP, empty when unknown
	LastSeen time.Time `json:"last_seen"`
}

// DeviceStatusUpdate is the payload of a device-status push. It carries
// the full device list; the server does not send partial diffs.
type DeviceStatusUpdate struct {
	Devices []Device `json:"devices"`
}

// BandwidthSample is one device's throughput over the sample window.
type BandwidthSample struct {
	DeviceID uuid.UUID `json:"device_id"`
	RxBps    int64     `json:"rx_bps"` // Bytes per second received
	TxBps    int64     `json:"tx_bps"` // Bytes per second transmitted
	At       time.Time `json:"at"`
}

// BandwidthUpdate is the payload of a bandwidth push.
type BandwidthUpdate struct {
	Samples []BandwidthSample `json:"samples"`
}

// KeepaliveAck is the payload of a keepalive-ack push, returned in
// response to a request-ping control message.
type KeepaliveAck struct {
	Seq        int64     `json:"seq"`
	ServerTime time.Time `json:"server_time"`
}
