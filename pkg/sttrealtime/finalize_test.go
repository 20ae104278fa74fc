package sttrealtime

import (
	"testing"
	"time"
)

func TestJoin(t *testing.T) {
	cases := []struct {
		committed, partial, want string
	}{
		{"", "", ""},
		{"hello", "", "hello"},
		{"", "world", "world"},
		{"  a  ", "  b  ", "a b"},
		{"a", "b", "a b"},
	}
	for _, c := range cases {
		if got := join(c.committed, c.partial); got != c.want {
			t.Errorf("join(%q, %q) = %q, want %q", c.committed, c.partial, got, c.want)
		}
	}
}

func TestDefaultFinalizeConfigManual(t *testing.T) {
	cfg := DefaultFinalizeConfig(Options{CommitStrategy: CommitManual})
	if cfg.Deadline != defaultDeadline {
		t.Errorf("Deadline = %v, want %v", cfg.Deadline, defaultDeadline)
	}
	if cfg.Settle != defaultSettle {
		t.Errorf("manual commit strategy should keep default settle, got %v", cfg.Settle)
	}
}

func TestDefaultFinalizeConfigVadClamps(t *testing.T) {
	low := DefaultFinalizeConfig(Options{CommitStrategy: CommitVAD, VAD: VADParams{MinSilenceDurationMs: 10}})
	if low.Settle != settleClampMin {
		t.Errorf("settle = %v, want clamp min %v", low.Settle, settleClampMin)
	}

	high := DefaultFinalizeConfig(Options{CommitStrategy: CommitVAD, VAD: VADParams{MinSilenceDurationMs: 10000}})
	if high.Settle != settleClampMax {
		t.Errorf("settle = %v, want clamp max %v", high.Settle, settleClampMax)
	}

	mid := DefaultFinalizeConfig(Options{CommitStrategy: CommitVAD, VAD: VADParams{MinSilenceDurationMs: 200}})
	if want := 300 * time.Millisecond; mid.Settle != want {
		t.Errorf("settle = %v, want %v", mid.Settle, want)
	}
}

func TestPendingFinalizeSettleArmsOnlyAfterCommitted(t *testing.T) {
	pf := newPendingFinalize(make(chan finalizeResult, 1), DefaultFinalizeConfig(Options{}), false)
	defer pf.stopTimers()

	pf.onUpdate(false) // partial only, no committed text yet
	if pf.settle != nil {
		t.Fatal("settle timer should not arm before any committed update")
	}

	pf.onUpdate(true) // committed arrives
	if pf.settle == nil {
		t.Fatal("settle timer should arm once a committed update has been seen")
	}
}
