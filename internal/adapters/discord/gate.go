package discord

import (
	"sync"
	"time"
)

// startupGate holds back the startup pass until every guild announced in
// READY has been delivered, or until the timeout fires.
//
// discordgo runs handlers on separate goroutines, so a GUILD_CREATE may be
// handled before READY. Until the first Arm every arrival counts as part of
// the startup batch.
type startupGate struct {
	mu          sync.Mutex
	pending     map[string]struct{}
	early       map[string]struct{}
	awaitingArm bool
	armed       bool
	timer       *time.Timer
	timeout     time.Duration
	open        func()
}

func newStartupGate(timeout time.Duration, open func()) *startupGate {
	return &startupGate{
		early:       make(map[string]struct{}),
		awaitingArm: true,
		timeout:     timeout,
		open:        open,
	}
}

// Arm starts waiting for ids. With nothing to wait for the gate opens at
// once.
func (g *startupGate) Arm(ids []string) {
	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.pending = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := g.early[id]; ok {
			continue
		}
		g.pending[id] = struct{}{}
	}
	g.early = make(map[string]struct{})
	g.awaitingArm = false
	g.armed = true

	if len(g.pending) == 0 {
		g.mu.Unlock()
		g.fire()
		return
	}
	g.timer = time.AfterFunc(g.timeout, g.fire)
	g.mu.Unlock()
}

// Arrive records a delivered guild. It reports whether the guild belonged to
// the startup batch; the last arrival opens the gate.
func (g *startupGate) Arrive(id string) bool {
	g.mu.Lock()
	if g.awaitingArm {
		g.early[id] = struct{}{}
		g.mu.Unlock()
		return true
	}
	if !g.armed {
		g.mu.Unlock()
		return false
	}
	if _, ok := g.pending[id]; !ok {
		g.mu.Unlock()
		return false
	}
	delete(g.pending, id)
	last := len(g.pending) == 0
	g.mu.Unlock()

	if last {
		g.fire()
	}
	return true
}

func (g *startupGate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *startupGate) fire() {
	g.mu.Lock()
	if !g.armed {
		g.mu.Unlock()
		return
	}
	g.armed = false
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()

	g.open()
}
