package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "solarwatch_"

// Label values shared with callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"

	AlertSent       = "sent"
	AlertSuppressed = "suppressed"
)

var (
	registerOnce sync.Once

	cycleTotal   *prometheus.CounterVec
	cycleLatency *prometheus.HistogramVec
	ticksSkipped prometheus.Counter
	lastSuccess  prometheus.Gauge

	fetchErrors    prometheus.Counter
	heartbeatTotal *prometheus.CounterVec

	windowOpen       prometheus.Gauge
	stagnantReadings *prometheus.GaugeVec

	alertsTotal        *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
)

// Init registers the monitor metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		cycleTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Total monitoring cycles by result",
			},
			[]string{"result"},
		)
		cycleLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cycle_duration_seconds",
				Help:    "Monitoring cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ticksSkipped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_skipped_total",
				Help: "Scheduler ticks dropped because a cycle was still running",
			},
		)
		lastSuccess = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_success_timestamp_seconds",
				Help: "Unix time of the last cycle that completed without a fetch error",
			},
		)

		fetchErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_errors_total",
				Help: "Total telemetry fetch failures",
			},
		)
		heartbeatTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "heartbeat_total",
				Help: "Total heartbeat pings by result",
			},
			[]string{"result"},
		)

		windowOpen = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "daylight_window_open",
				Help: "1 while the daylight monitoring window is open",
			},
		)
		stagnantReadings = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stagnant_readings",
				Help: "Consecutive unchanged readings per tracked signal",
			},
			[]string{"signal"},
		)

		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_total",
				Help: "Alert events by signal and outcome",
			},
			[]string{"signal", "outcome"},
		)
		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)

		prometheus.MustRegister(
			cycleTotal,
			cycleLatency,
			ticksSkipped,
			lastSuccess,
			fetchErrors,
			heartbeatTotal,
			windowOpen,
			stagnantReadings,
			alertsTotal,
			notificationsTotal,
		)
	})
}

// ObserveCycle records cycle duration and result.
func ObserveCycle(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if cycleTotal != nil {
		cycleTotal.WithLabelValues(result).Inc()
	}
	if cycleLatency != nil {
		cycleLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncTickSkipped counts a dropped scheduler tick.
func IncTickSkipped() {
	if ticksSkipped != nil {
		ticksSkipped.Inc()
	}
}

// SetLastSuccess records the time of the last successful cycle.
func SetLastSuccess(at time.Time) {
	if lastSuccess != nil {
		lastSuccess.Set(float64(at.Unix()))
	}
}

// IncFetchError increments the fetch failure counter.
func IncFetchError() {
	if fetchErrors != nil {
		fetchErrors.Inc()
	}
}

// IncHeartbeat counts a heartbeat ping.
func IncHeartbeat(result string) {
	if result == "" {
		result = "unknown"
	}
	if heartbeatTotal != nil {
		heartbeatTotal.WithLabelValues(result).Inc()
	}
}

// SetWindowOpen flips the daylight gauge.
func SetWindowOpen(open bool) {
	if windowOpen == nil {
		return
	}
	if open {
		windowOpen.Set(1)
		return
	}
	windowOpen.Set(0)
}

// SetStagnantReadings exports a tracker counter.
func SetStagnantReadings(signal string, count int) {
	if signal == "" {
		signal = "unknown"
	}
	if stagnantReadings != nil {
		stagnantReadings.WithLabelValues(signal).Set(float64(count))
	}
}

// IncAlert counts an alert event by outcome.
func IncAlert(signal, outcome string) {
	if signal == "" {
		signal = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	if alertsTotal != nil {
		alertsTotal.WithLabelValues(signal, outcome).Inc()
	}
}

// IncNotification counts one delivery attempt to one destination.
func IncNotification(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(channel, result).Inc()
	}
}
