package monitoring

import (
	"fmt"
	"time"
)

// DetectorConfig configures both trackers of a Detector.
type DetectorConfig struct {
	PollInterval     time.Duration
	PowerEnabled     bool
	PowerAlertAfter  time.Duration
	EnergyEnabled    bool
	EnergyAlertAfter time.Duration
}

// DetectorSnapshot captures the state of both trackers.
type DetectorSnapshot struct {
	Power         TrackerSnapshot[PowerCategory]
	PowerEnabled  bool
	Energy        TrackerSnapshot[float64]
	EnergyEnabled bool
}

// Detector turns samples into alert and recovery events. It is not safe for
// concurrent use; the scheduler guarantees a single active cycle.
type Detector struct {
	power  *Tracker[PowerCategory]
	energy *Tracker[float64]
}

// NewDetector constructs a detector. Disabled trackers are not created.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if cfg.PollInterval <= 0 {
		return nil, ErrInvalidPollInterval
	}
	d := &Detector{}
	if cfg.PowerEnabled {
		required, err := RequiredReadings(cfg.PowerAlertAfter, cfg.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("monitoring: power tracker: %w", err)
		}
		d.power, err = NewTracker[PowerCategory](required, WithAlertWhen(func(c PowerCategory) bool {
			return c == PowerZero
		}))
		if err != nil {
			return nil, err
		}
	}
	if cfg.EnergyEnabled {
		required, err := RequiredReadings(cfg.EnergyAlertAfter, cfg.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("monitoring: energy tracker: %w", err)
		}
		d.energy, err = NewTracker[float64](required)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Evaluate feeds a sample to every enabled tracker and returns the events
// produced, power first.
func (d *Detector) Evaluate(sample Sample, now time.Time) []Event {
	var events []Event
	if d.power != nil {
		tr := d.power.Observe(CategorizePower(sample.Power), now)
		if evt, ok := eventFor(SignalPower, tr.Kind, tr.Since, tr.Elapsed, tr.Count, sample, now); ok {
			events = append(events, evt)
		}
	}
	if d.energy != nil {
		tr := d.energy.Observe(sample.DailyEnergy, now)
		if evt, ok := eventFor(SignalEnergy, tr.Kind, tr.Since, tr.Elapsed, tr.Count, sample, now); ok {
			events = append(events, evt)
		}
	}
	return events
}

// Reset returns every tracker to baseline. No recovery is emitted.
func (d *Detector) Reset() {
	if d.power != nil {
		d.power.Reset()
	}
	if d.energy != nil {
		d.energy.Reset()
	}
}

// Snapshot returns the state of both trackers.
func (d *Detector) Snapshot() DetectorSnapshot {
	var snap DetectorSnapshot
	if d.power != nil {
		snap.Power = d.power.Snapshot()
		snap.PowerEnabled = true
	}
	if d.energy != nil {
		snap.Energy = d.energy.Snapshot()
		snap.EnergyEnabled = true
	}
	return snap
}

func eventFor(signal Signal, kind TransitionKind, since time.Time, elapsed time.Duration, count int, sample Sample, now time.Time) (Event, bool) {
	var eventKind EventKind
	switch kind {
	case TransitionAlert:
		eventKind = EventAlert
	case TransitionRecovery:
		eventKind = EventRecovery
	default:
		return Event{}, false
	}
	return Event{
		Kind:        eventKind,
		Signal:      signal,
		Power:       sample.Power,
		DailyEnergy: sample.DailyEnergy,
		Since:       since,
		Elapsed:     elapsed,
		Readings:    count,
		At:          now,
	}, true
}
