package notify

import (
	"time"

	monitoring "solar-watch/internal/monitoring/domain"
)

// AlertGate rate-limits alert-severity messages. Callers ask TryAlert, send,
// then RecordSent; a render failure between the two leaves the cooldown
// unconsumed.
type AlertGate struct {
	cooldown  time.Duration
	lastAlert time.Time
	sent      bool
}

// NewAlertGate constructs a gate. A non-positive cooldown never suppresses.
func NewAlertGate(cooldown time.Duration) *AlertGate {
	if cooldown < 0 {
		cooldown = 0
	}
	return &AlertGate{cooldown: cooldown}
}

// TryAlert reports whether an alert may be sent at now.
func (g *AlertGate) TryAlert(now time.Time) bool {
	if g == nil || !g.sent {
		return true
	}
	return now.Sub(g.lastAlert) >= g.cooldown
}

// RecordSent consumes the cooldown.
func (g *AlertGate) RecordSent(now time.Time) {
	if g == nil {
		return
	}
	g.lastAlert = now
	g.sent = true
}

// LastAlert returns the last recorded send, if any.
func (g *AlertGate) LastAlert() (time.Time, bool) {
	if g == nil {
		return time.Time{}, false
	}
	return g.lastAlert, g.sent
}

// Gates selects the gate guarding each signal, either one per signal or a
// single shared gate.
type Gates struct {
	cooldown time.Duration
	shared   *AlertGate
	bySignal map[monitoring.Signal]*AlertGate
}

// NewGates constructs the gate set.
func NewGates(cooldown time.Duration, shared bool) *Gates {
	g := &Gates{cooldown: cooldown}
	if shared {
		g.shared = NewAlertGate(cooldown)
		return g
	}
	g.bySignal = map[monitoring.Signal]*AlertGate{
		monitoring.SignalPower:  NewAlertGate(cooldown),
		monitoring.SignalEnergy: NewAlertGate(cooldown),
	}
	return g
}

// For returns the gate guarding signal.
func (g *Gates) For(signal monitoring.Signal) *AlertGate {
	if g.shared != nil {
		return g.shared
	}
	gate, ok := g.bySignal[signal]
	if !ok {
		gate = NewAlertGate(g.cooldown)
		g.bySignal[signal] = gate
	}
	return gate
}

// Shared reports whether all signals share one cooldown.
func (g *Gates) Shared() bool {
	return g.shared != nil
}
