// Package daylight decides whether the sun is up far enough for the inverter
// to be expected to produce.
package daylight

import (
	"errors"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// searchHorizonDays bounds NextOpen for locations with polar night.
const searchHorizonDays = 366

var (
	// ErrInvalidLatitude is returned for latitudes outside [-90, 90].
	ErrInvalidLatitude = errors.New("daylight: invalid latitude")
	// ErrInvalidLongitude is returned for longitudes outside [-180, 180].
	ErrInvalidLongitude = errors.New("daylight: invalid longitude")
	// ErrNegativeBuffer is returned when a buffer is negative.
	ErrNegativeBuffer = errors.New("daylight: negative buffer")
)

// SunCalculator returns sunrise and sunset in UTC for a calendar date. Zero
// times mean the sun does not rise or set that day.
type SunCalculator func(latitude, longitude float64, year int, month time.Month, day int) (time.Time, time.Time)

// Config describes the monitored site.
type Config struct {
	Latitude    float64
	Longitude   float64
	StartBuffer time.Duration
	EndBuffer   time.Duration
	// Location is used for display only; the sun's day is derived from
	// Longitude.
	Location *time.Location
}

// Window answers daylight questions for one site.
type Window struct {
	cfg Config
	sun SunCalculator
}

// Option configures the window.
type Option func(*Window)

// WithSunCalculator overrides the sunrise/sunset source.
func WithSunCalculator(calc SunCalculator) Option {
	return func(w *Window) {
		if calc != nil {
			w.sun = calc
		}
	}
}

// New constructs a Window.
func New(cfg Config, opts ...Option) (*Window, error) {
	if cfg.Latitude < -90 || cfg.Latitude > 90 {
		return nil, ErrInvalidLatitude
	}
	if cfg.Longitude < -180 || cfg.Longitude > 180 {
		return nil, ErrInvalidLongitude
	}
	if cfg.StartBuffer < 0 || cfg.EndBuffer < 0 {
		return nil, ErrNegativeBuffer
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	w := &Window{cfg: cfg, sun: sunrise.SunriseSunset}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Location returns the display timezone.
func (w *Window) Location() *time.Location {
	return w.cfg.Location
}

type dayKind int

const (
	dayEmpty dayKind = iota
	dayNormal
	dayAllLight
)

// solarDate returns the date whose mean solar noon at the site is closest to
// t. The sunrise calculator is keyed by this date.
func (w *Window) solarDate(t time.Time) time.Time {
	shifted := t.UTC().Add(time.Duration(w.cfg.Longitude / 15 * float64(time.Hour)))
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *Window) dayBounds(date time.Time) (start, end time.Time, kind dayKind) {
	rise, set := w.sun(w.cfg.Latitude, w.cfg.Longitude, date.Year(), date.Month(), date.Day())
	if rise.IsZero() || set.IsZero() {
		if !polarDay(w.cfg.Latitude, date) {
			return time.Time{}, time.Time{}, dayEmpty
		}
		// The whole solar day, midnight to midnight.
		start = date.Add(-time.Duration(w.cfg.Longitude / 15 * float64(time.Hour)))
		return start, start.Add(24 * time.Hour), dayAllLight
	}
	start = rise.Add(w.cfg.StartBuffer)
	end = set.Add(-w.cfg.EndBuffer)
	if !end.After(start) {
		return time.Time{}, time.Time{}, dayEmpty
	}
	return start, end, dayNormal
}

// polarDay reports whether a day without sunrise or sunset is one where the
// sun stays up. That holds when the sun's declination has the same sign as
// the latitude.
func polarDay(latitude float64, date time.Time) bool {
	declination := -23.44 * math.Cos(2*math.Pi/365*float64(date.YearDay()+10))
	return latitude*declination > 0
}

// Bounds returns the buffered monitoring window of the solar day containing
// t. Under midnight sun the window spans the whole solar day. ok is false
// when the window is empty that day.
func (w *Window) Bounds(t time.Time) (start, end time.Time, ok bool) {
	start, end, kind := w.dayBounds(w.solarDate(t))
	return start, end, kind != dayEmpty
}

// IsActive reports whether now lies strictly inside its solar day's window.
// Under midnight sun it is always active.
func (w *Window) IsActive(now time.Time) bool {
	start, end, kind := w.dayBounds(w.solarDate(now))
	switch kind {
	case dayAllLight:
		return true
	case dayNormal:
		return now.After(start) && now.Before(end)
	default:
		return false
	}
}

// NextOpen returns when the window opens next, counting from now. ok is false
// if no window opens within a year.
func (w *Window) NextOpen(now time.Time) (time.Time, bool) {
	date := w.solarDate(now)
	for i := 0; i <= searchHorizonDays; i++ {
		start, _, kind := w.dayBounds(date.AddDate(0, 0, i))
		if kind == dayEmpty {
			continue
		}
		if !now.After(start) {
			return start, true
		}
	}
	return time.Time{}, false
}
