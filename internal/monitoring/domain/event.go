package monitoring

import "time"

// Signal names a monitored signal.
type Signal string

const (
	SignalPower  Signal = "power"
	SignalEnergy Signal = "energy"
)

// EventKind classifies detector output.
type EventKind string

const (
	EventAlert    EventKind = "alert"
	EventRecovery EventKind = "recovery"
)

// Event is raised by the detector when a tracker opens or closes an alert.
type Event struct {
	Kind   EventKind `json:"kind"`
	Signal Signal    `json:"signal"`
	// Power and DailyEnergy are the readings of the sample that produced the
	// event, so every event carries its companion signal for context.
	Power       float64       `json:"power_kw"`
	DailyEnergy float64       `json:"daily_energy_kwh"`
	Since       time.Time     `json:"since"`
	Elapsed     time.Duration `json:"elapsed"`
	Readings    int           `json:"readings"`
	At          time.Time     `json:"at"`
}

// IsAlert reports whether the event is alert severity.
func (e Event) IsAlert() bool {
	return e.Kind == EventAlert
}
