package monitoring

import "errors"

var (
	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("monitoring: invalid poll interval")
	// ErrInvalidThreshold is returned when an alert threshold is not positive.
	ErrInvalidThreshold = errors.New("monitoring: invalid alert threshold")
	// ErrInvalidRequiredReadings is returned when a tracker needs fewer than one reading.
	ErrInvalidRequiredReadings = errors.New("monitoring: required readings must be positive")
	// ErrNegativeValue is returned when a sample carries a negative value.
	ErrNegativeValue = errors.New("monitoring: negative sample value")
)
