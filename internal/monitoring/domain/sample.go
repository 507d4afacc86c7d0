package monitoring

import "time"

// PowerEpsilon is the output (kW) below which the inverter counts as producing nothing.
const PowerEpsilon = 0.01

// Sample is one telemetry reading taken from the inverter.
type Sample struct {
	Power       float64   `json:"power_kw"`
	DailyEnergy float64   `json:"daily_energy_kwh"`
	At          time.Time `json:"at"`
}

// Validate checks sample invariants.
func (s Sample) Validate() error {
	if s.Power < 0 || s.DailyEnergy < 0 {
		return ErrNegativeValue
	}
	return nil
}

// PowerCategory buckets instantaneous power for the power-loss tracker.
type PowerCategory string

const (
	PowerZero      PowerCategory = "zero"
	PowerProducing PowerCategory = "producing"
)

// CategorizePower maps an output reading onto its category.
func CategorizePower(power float64) PowerCategory {
	if power < PowerEpsilon {
		return PowerZero
	}
	return PowerProducing
}

// RequiredReadings returns how many consecutive unchanged polls must pass
// before an alert of the given threshold may fire. The ratio is rounded up so
// an alert never fires before the threshold has actually elapsed.
func RequiredReadings(threshold, pollInterval time.Duration) (int, error) {
	if pollInterval <= 0 {
		return 0, ErrInvalidPollInterval
	}
	if threshold <= 0 {
		return 0, ErrInvalidThreshold
	}
	n := int((threshold + pollInterval - 1) / pollInterval)
	if n < 1 {
		n = 1
	}
	return n, nil
}
