package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	monitoring "solar-watch/internal/monitoring/domain"
)

func TestAlertGateCooldown(t *testing.T) {
	gate := NewAlertGate(time.Hour)
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, gate.TryAlert(start))
	gate.RecordSent(start)

	assert.False(t, gate.TryAlert(start.Add(59*time.Minute)))
	assert.True(t, gate.TryAlert(start.Add(time.Hour)))

	last, ok := gate.LastAlert()
	assert.True(t, ok)
	assert.Equal(t, start, last)
}

func TestAlertGateOnlyRecordSentConsumes(t *testing.T) {
	gate := NewAlertGate(time.Hour)
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, gate.TryAlert(now))
	assert.True(t, gate.TryAlert(now.Add(time.Minute)))
	_, ok := gate.LastAlert()
	assert.False(t, ok)
}

func TestGatesPerSignal(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	gates := NewGates(time.Hour, false)
	gates.For(monitoring.SignalPower).RecordSent(now)

	assert.False(t, gates.For(monitoring.SignalPower).TryAlert(now.Add(time.Minute)))
	assert.True(t, gates.For(monitoring.SignalEnergy).TryAlert(now.Add(time.Minute)))
	assert.False(t, gates.Shared())
}

func TestGatesShared(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	gates := NewGates(time.Hour, true)
	gates.For(monitoring.SignalPower).RecordSent(now)

	assert.False(t, gates.For(monitoring.SignalEnergy).TryAlert(now.Add(time.Minute)))
	assert.True(t, gates.Shared())
}
