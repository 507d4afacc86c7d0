package application

import (
	"context"
	"errors"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	monitoring "solar-watch/internal/monitoring/domain"
	"solar-watch/internal/monitoring/notify"
	"solar-watch/internal/observability/metrics"
)

// Window reports whether monitoring is active.
type Window interface {
	IsActive(now time.Time) bool
	NextOpen(now time.Time) (time.Time, bool)
}

// TelemetrySource reads one sample for a plant.
type TelemetrySource interface {
	FetchSample(ctx context.Context, plantID string) (monitoring.Sample, error)
}

// Detector turns samples into events.
type Detector interface {
	Evaluate(sample monitoring.Sample, now time.Time) []monitoring.Event
	Reset()
	Snapshot() monitoring.DetectorSnapshot
}

// Notifier delivers monitor messages.
type Notifier interface {
	NotifyEvent(ctx context.Context, event monitoring.Event) notify.Outcome
	NotifyFetchFailure(ctx context.Context, err error) notify.Outcome
	NotifyTelemetryRestored(ctx context.Context, failures int, downtime time.Duration) notify.Outcome
}

// Heartbeat signals liveness to an external monitor.
type Heartbeat interface {
	Ping(ctx context.Context) error
}

// Clock provides the cycle time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// CycleStatus is the terminal step reached by a cycle.
type CycleStatus string

const (
	StatusDark        CycleStatus = "dark"
	StatusFetchFailed CycleStatus = "fetch_failed"
	StatusEvaluated   CycleStatus = "evaluated"
)

// CycleResult describes one completed cycle.
type CycleResult struct {
	ID     string
	Status CycleStatus
	At     time.Time
	Sample monitoring.Sample
	Events []monitoring.Event
	Err    error
}

// Monitor runs the detection cycle. Only one cycle may run at a time; the
// scheduler enforces this.
type Monitor struct {
	window    Window
	source    TelemetrySource
	detector  Detector
	notifier  Notifier
	heartbeat Heartbeat
	plantID   string
	timeout   time.Duration
	clock     Clock
	logger    *log.Logger

	windowKnown   bool
	windowOpen    bool
	fetchFailures int
	failingSince  time.Time

	lastSuccess atomic.Int64
}

// Option configures the monitor.
type Option func(*Monitor)

// WithHeartbeat pings h at the start of every cycle.
func WithHeartbeat(h Heartbeat) Option {
	return func(m *Monitor) {
		if h != nil {
			m.heartbeat = h
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCallTimeout bounds the heartbeat and telemetry calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(m *Monitor) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// NewMonitor constructs a monitor.
func NewMonitor(window Window, source TelemetrySource, detector Detector, notifier Notifier, plantID string, opts ...Option) (*Monitor, error) {
	if window == nil {
		return nil, errors.New("monitor: nil window")
	}
	if source == nil {
		return nil, errors.New("monitor: nil telemetry source")
	}
	if detector == nil {
		return nil, errors.New("monitor: nil detector")
	}
	if notifier == nil {
		return nil, errors.New("monitor: nil notifier")
	}
	if plantID == "" {
		return nil, errors.New("monitor: plant id required")
	}
	m := &Monitor{
		window:   window,
		source:   source,
		detector: detector,
		notifier: notifier,
		plantID:  plantID,
		timeout:  10 * time.Second,
		clock:    systemClock{},
		logger:   log.New(os.Stdout, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// LastSuccess returns the end time of the last cycle that was not a fetch
// failure.
func (m *Monitor) LastSuccess() (time.Time, bool) {
	nanos := m.lastSuccess.Load()
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// RunCycle performs one heartbeat, window check, fetch and evaluation.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	started := time.Now()
	result := CycleResult{ID: uuid.NewString()}
	defer func() {
		metrics.ObserveCycle(string(result.Status), time.Since(started))
	}()

	m.ping(ctx, result.ID)

	now := m.clock.Now()
	result.At = now
	if !m.window.IsActive(now) {
		m.closeWindow(result.ID, now)
		result.Status = StatusDark
		m.markSuccess(now)
		return result
	}
	m.openWindow(result.ID)

	fetchCtx, cancel := context.WithTimeout(ctx, m.timeout)
	sample, err := m.source.FetchSample(fetchCtx, m.plantID)
	cancel()
	if err != nil {
		m.fetchFailed(ctx, result.ID, now, err)
		result.Status = StatusFetchFailed
		result.Err = err
		return result
	}
	m.fetchRecovered(ctx, result.ID, now)

	result.Sample = sample
	m.logger.Printf("monitor: sample cycle_id=%s power=%.3f daily_energy=%.3f", result.ID, sample.Power, sample.DailyEnergy)
	result.Events = m.detector.Evaluate(sample, now)
	for _, event := range result.Events {
		outcome := m.notifier.NotifyEvent(ctx, event)
		m.logger.Printf("monitor: %s cycle_id=%s signal=%s readings=%d elapsed=%s outcome=%s",
			event.Kind, result.ID, event.Signal, event.Readings, event.Elapsed, outcome)
	}
	m.exportTrackers()

	result.Status = StatusEvaluated
	m.markSuccess(now)
	return result
}

func (m *Monitor) ping(ctx context.Context, cycleID string) {
	if m.heartbeat == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.heartbeat.Ping(pingCtx); err != nil {
		metrics.IncHeartbeat(metrics.ResultError)
		m.logger.Printf("monitor: heartbeat failed cycle_id=%s err=%v", cycleID, err)
		return
	}
	metrics.IncHeartbeat(metrics.ResultSuccess)
}

// closeWindow resets every tracker and the fetch failure streak. Closing is a
// pause, not a recovery, so nothing is sent.
func (m *Monitor) closeWindow(cycleID string, now time.Time) {
	m.detector.Reset()
	m.fetchFailures = 0
	m.failingSince = time.Time{}
	metrics.SetWindowOpen(false)
	m.exportTrackers()
	if m.windowKnown && !m.windowOpen {
		return
	}
	m.windowKnown, m.windowOpen = true, false
	next, ok := m.window.NextOpen(now)
	if !ok {
		m.logger.Printf("monitor: window_closed cycle_id=%s next_open=none", cycleID)
		return
	}
	m.logger.Printf("monitor: window_closed cycle_id=%s next_open=%s", cycleID, next.Format(time.RFC3339))
}

func (m *Monitor) openWindow(cycleID string) {
	metrics.SetWindowOpen(true)
	if m.windowKnown && m.windowOpen {
		return
	}
	m.windowKnown, m.windowOpen = true, true
	m.logger.Printf("monitor: window_opened cycle_id=%s", cycleID)
}

// fetchFailed leaves tracker state untouched; a missing reading is not
// evidence of stagnation. Only the first failure of a streak is notified.
func (m *Monitor) fetchFailed(ctx context.Context, cycleID string, now time.Time, err error) {
	metrics.IncFetchError()
	m.fetchFailures++
	m.logger.Printf("monitor: fetch failed cycle_id=%s plant=%s streak=%d err=%v", cycleID, m.plantID, m.fetchFailures, err)
	if m.fetchFailures > 1 {
		return
	}
	m.failingSince = now
	m.notifier.NotifyFetchFailure(ctx, err)
}

func (m *Monitor) fetchRecovered(ctx context.Context, cycleID string, now time.Time) {
	if m.fetchFailures == 0 {
		return
	}
	failures := m.fetchFailures
	downtime := now.Sub(m.failingSince)
	m.fetchFailures = 0
	m.failingSince = time.Time{}
	m.logger.Printf("monitor: telemetry restored cycle_id=%s failures=%d downtime=%s", cycleID, failures, downtime)
	m.notifier.NotifyTelemetryRestored(ctx, failures, downtime)
}

func (m *Monitor) exportTrackers() {
	snap := m.detector.Snapshot()
	if snap.PowerEnabled {
		metrics.SetStagnantReadings(string(monitoring.SignalPower), snap.Power.Count)
	}
	if snap.EnergyEnabled {
		metrics.SetStagnantReadings(string(monitoring.SignalEnergy), snap.Energy.Count)
	}
}

func (m *Monitor) markSuccess(now time.Time) {
	m.lastSuccess.Store(now.UnixNano())
	metrics.SetLastSuccess(now)
}
