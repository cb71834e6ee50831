package backoff

import (
	"testing"
	"time"
)

func TestNextDelay_Doubling(t *testing.T) {
	p := Policy{Base: time.Second, Cap: 30 * time.Second, MaxAttempts: 5}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s clamped to cap
		{6, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		got := p.NextDelay(tt.attempt)
		if got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNextDelay_Monotonic(t *testing.T) {
	p := DefaultPolicy()

	prev := time.Duration(0)
	for attempt := 0; attempt <= p.MaxAttempts; attempt++ {
		d := p.NextDelay(attempt)
		if d < prev {
			t.Errorf("NextDelay(%d) = %v, decreased from %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestNextDelay_NegativeAttempt(t *testing.T) {
	p := DefaultPolicy()

	if got := p.NextDelay(-3); got != p.Base {
		t.Errorf("NextDelay(-3) = %v, want base %v", got, p.Base)
	}
}

func TestNextDelay_CapBelowBase(t *testing.T) {
	p := Policy{Base: 10 * time.Second, Cap: 2 * time.Second, MaxAttempts: 3}

	if got := p.NextDelay(0); got != 2*time.Second {
		t.Errorf("NextDelay(0) = %v, want cap %v", got, p.Cap)
	}
}

func TestExhausted(t *testing.T) {
	p := Policy{Base: time.Second, Cap: 30 * time.Second, MaxAttempts: 3}

	if p.Exhausted(2) {
		t.Error("Exhausted(2) = true, want false")
	}
	if !p.Exhausted(3) {
		t.Error("Exhausted(3) = false, want true")
	}
	if !p.Exhausted(4) {
		t.Error("Exhausted(4) = false, want true")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.Base != time.Second {
		t.Errorf("Base = %v, want 1s", p.Base)
	}
	if p.Cap != 30*time.Second {
		t.Errorf("Cap = %v, want 30s", p.Cap)
	}
	if p.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", p.MaxAttempts)
	}
}
