package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestPayloadDecoding validates that server payloads decode into model types.
func TestPayloadDecoding(t *testing.T) {
	t.Run("DeviceStatusUpdate", func(t *testing.T) {
		raw := `{
			"devices": [
				{
					"id": "8a7b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d",
					"name": "edge-router-01",
					"online": true,
					"address": "10.0.0.1",
					"last_seen": "2026-03-10T09:30:00Z"
				}
			]
		}`

		var u DeviceStatusUpdate
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if len(u.Devices) != 1 {
			t.Fatalf("len(Devices) = %d, want 1", len(u.Devices))
		}
		d := u.Devices[0]
		if d.ID != uuid.MustParse("8a7b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d") {
			t.Errorf("ID = %v, want 8a7b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d", d.ID)
		}
		if d.Name != "edge-router-01" {
			t.Errorf("Name = %q, want %q", d.Name, "edge-router-01")
		}
		if !d.Online {
			t.Error("Online = false, want true")
		}
		want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
		if !d.LastSeen.Equal(want) {
			t.Errorf("LastSeen = %v, want %v", d.LastSeen, want)
		}
	})

	t.Run("BandwidthUpdate", func(t *testing.T) {
		raw := `{
			"samples": [
				{
					"device_id": "8a7b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d",
					"rx_bps": 1048576,
					"tx_bps": 262144,
					"at": "2026-03-10T09:30:05Z"
				}
			]
		}`

		var u BandwidthUpdate
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if len(u.Samples) != 1 {
			t.Fatalf("len(Samples) = %d, want 1", len(u.Samples))
		}
		s := u.Samples[0]
		if s.RxBps != 1048576 {
			t.Errorf("RxBps = %d, want 1048576", s.RxBps)
		}
		if s.TxBps != 262144 {
			t.Errorf("TxBps = %d, want 262144", s.TxBps)
		}
	})

	t.Run("KeepaliveAck", func(t *testing.T) {
		raw := `{"seq": 42, "server_time": "2026-03-10T09:30:10Z"}`

		var a KeepaliveAck
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if a.Seq != 42 {
			t.Errorf("Seq = %d, want 42", a.Seq)
		}
	})
}
