package discord

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestStartupGate_OpensAfterAllArrive(t *testing.T) {
	var opened atomic.Int32
	g := newStartupGate(time.Minute, func() { opened.Add(1) })

	g.Arm([]string{"a", "b"})

	if !g.Arrive("a") {
		t.Error("Expected a to be part of the startup batch")
	}
	if opened.Load() != 0 {
		t.Fatal("Gate opened too early")
	}
	if g.Waiting() != 1 {
		t.Errorf("Expected 1 guild pending, got %d", g.Waiting())
	}

	g.Arrive("b")
	if opened.Load() != 1 {
		t.Errorf("Expected gate to open once, opened %d times", opened.Load())
	}

	if g.Arrive("c") {
		t.Error("Arrivals after opening are not part of startup")
	}
}

func TestStartupGate_UnknownGuildDuringStartup(t *testing.T) {
	g := newStartupGate(time.Minute, func() {})
	g.Arm([]string{"a"})

	if g.Arrive("z") {
		t.Error("Guild outside the READY list should not be held")
	}
}

func TestStartupGate_EmptyOpensImmediately(t *testing.T) {
	var opened atomic.Int32
	g := newStartupGate(time.Minute, func() { opened.Add(1) })

	g.Arm(nil)

	if opened.Load() != 1 {
		t.Errorf("Expected immediate open, got %d", opened.Load())
	}
}

func TestStartupGate_Timeout(t *testing.T) {
	opened := make(chan struct{}, 2)
	g := newStartupGate(20*time.Millisecond, func() { opened <- struct{}{} })

	g.Arm([]string{"a", "b"})
	g.Arrive("a")

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("Gate did not open on timeout")
	}

	if g.Arrive("b") {
		t.Error("Late arrival should not be held after timeout")
	}
	select {
	case <-opened:
		t.Error("Gate opened twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartupGate_Rearm(t *testing.T) {
	var opened atomic.Int32
	g := newStartupGate(time.Minute, func() { opened.Add(1) })

	g.Arm([]string{"a"})
	g.Arrive("a")
	g.Arm([]string{"a"})
	g.Arrive("a")

	if opened.Load() != 2 {
		t.Errorf("Expected gate to open once per READY, got %d", opened.Load())
	}
}

func TestStartupGate_ArrivalBeforeArm(t *testing.T) {
	var opened atomic.Int32
	g := newStartupGate(time.Minute, func() { opened.Add(1) })

	if !g.Arrive("a") {
		t.Error("Guild delivered before READY belongs to the startup batch")
	}

	g.Arm([]string{"a", "b"})
	if g.Waiting() != 1 {
		t.Errorf("Expected only b pending, got %d", g.Waiting())
	}

	g.Arrive("b")
	if opened.Load() != 1 {
		t.Errorf("Expected gate to open once, opened %d times", opened.Load())
	}
}

func TestStartupGate_AllArrivedBeforeArm(t *testing.T) {
	var opened atomic.Int32
	g := newStartupGate(time.Minute, func() { opened.Add(1) })

	g.Arrive("a")
	g.Arm([]string{"a"})

	if opened.Load() != 1 {
		t.Errorf("Expected immediate open, got %d", opened.Load())
	}
	if g.Arrive("z") {
		t.Error("Arrivals after the startup pass are joins")
	}
}
