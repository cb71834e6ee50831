package wire

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	raw := []byte(`{"type":"device-status","data":{"vpn":true},"timestamp":"2025-06-01T12:00:00Z"}`)

	f, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if f.Kind != "device-status" {
		t.Errorf("Kind = %q, want device-status", f.Kind)
	}
	if string(f.Data) != `{"vpn":true}` {
		t.Errorf("Data = %s, want {\"vpn\":true}", f.Data)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !f.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", f.Timestamp, want)
	}
}

func TestDecode_NoTimestamp(t *testing.T) {
	f, err := Decode([]byte(`{"type":"bandwidth","data":{}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !f.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", f.Timestamp)
	}
}

func TestDecode_BadTimestamp(t *testing.T) {
	f, err := Decode([]byte(`{"type":"bandwidth","data":{},"timestamp":"yesterday"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !f.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero for unparsable timestamp", f.Timestamp)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Error("Decode accepted malformed JSON")
	}
}

func TestDecode_MissingKind(t *testing.T) {
	_, err := Decode([]byte(`{"data":{"vpn":true}}`))
	if !errors.Is(err, ErrMissingKind) {
		t.Errorf("err = %v, want ErrMissingKind", err)
	}
}

func TestEncodeControl(t *testing.T) {
	got := string(EncodeControl(ActionPing))
	want := `{"action":"request-ping"}`
	if got != want {
		t.Errorf("EncodeControl = %s, want %s", got, want)
	}
}

func TestRequestAction(t *testing.T) {
	tests := []struct {
		kind   string
		want   string
		wantOK bool
	}{
		{KindDeviceStatus, ActionStatusSnapshot, true},
		{KindBandwidth, ActionMetricsSnapshot, true},
		{KindKeepaliveAck, ActionPing, true},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		got, ok := RequestAction(tt.kind)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("RequestAction(%q) = (%q, %v), want (%q, %v)", tt.kind, got, ok, tt.want, tt.wantOK)
		}
	}
}
