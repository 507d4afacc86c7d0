package notify

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	monitoring "solar-watch/internal/monitoring/domain"
	"solar-watch/internal/observability/metrics"
)

// Sender delivers rendered content to every destination.
type Sender interface {
	Broadcast(ctx context.Context, content string) Delivery
}

// Outcome reports what happened to a message.
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
)

// StartupInfo describes the monitor for the startup message.
type StartupInfo struct {
	PollInterval time.Duration
	Destinations int
	WindowStart  time.Time
	WindowEnd    time.Time
	WindowOK     bool
}

// Notifier turns detector events and monitor status changes into messages.
// Alerts pass through the cooldown gates; recovery and info messages are
// always attempted.
type Notifier struct {
	sender    Sender
	gates     *Gates
	templates *Templates
	plant     string
	location  *time.Location
	clock     Clock
	logger    *log.Logger
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithLocation sets the display timezone for message timestamps.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) {
		if loc != nil {
			n.location = loc
		}
	}
}

// WithPlant names the plant in messages.
func WithPlant(plant string) Option {
	return func(n *Notifier) {
		n.plant = plant
	}
}

// WithTemplates replaces the message templates.
func WithTemplates(templates *Templates) Option {
	return func(n *Notifier) {
		if templates != nil {
			n.templates = templates
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier constructs a notifier.
func NewNotifier(sender Sender, gates *Gates, opts ...Option) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("notifier: nil sender")
	}
	if gates == nil {
		return nil, errors.New("notifier: nil gates")
	}
	templates, err := NewTemplates(nil)
	if err != nil {
		return nil, err
	}
	n := &Notifier{
		sender:    sender,
		gates:     gates,
		templates: templates,
		location:  time.UTC,
		clock:     systemClock{},
		logger:    log.New(os.Stdout, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// NotifyEvent delivers a detector event.
func (n *Notifier) NotifyEvent(ctx context.Context, event monitoring.Event) Outcome {
	now := event.At
	if now.IsZero() {
		now = n.clock.Now()
	}
	data := n.baseData(now)
	data.Signal = string(event.Signal)
	data.Epsilon = formatFloat(monitoring.PowerEpsilon)
	data.Power = formatFloat(event.Power)
	data.DailyEnergy = formatFloat(event.DailyEnergy)
	data.Since = formatTime(event.Since, n.location)
	data.Elapsed = formatElapsed(event.Elapsed)
	data.Readings = event.Readings
	kind := kindFor(event)

	if !event.IsAlert() {
		return n.deliver(ctx, kind, data)
	}

	gate := n.gates.For(event.Signal)
	if !gate.TryAlert(now) {
		last, _ := gate.LastAlert()
		n.logger.Printf("notify: alert suppressed signal=%s last_alert=%s", event.Signal, last.Format(time.RFC3339))
		metrics.IncAlert(string(event.Signal), metrics.AlertSuppressed)
		return OutcomeSuppressed
	}
	content, err := n.templates.Render(kind, data)
	if err != nil {
		n.logger.Printf("notify: render failed kind=%s err=%v", kind, err)
		return OutcomeFailed
	}
	delivery := n.sender.Broadcast(ctx, content)
	gate.RecordSent(now)
	metrics.IncAlert(string(event.Signal), metrics.AlertSent)
	n.logDelivery(kind, delivery)
	return OutcomeSent
}

// NotifyFetchFailure reports that telemetry could not be read.
func (n *Notifier) NotifyFetchFailure(ctx context.Context, fetchErr error) Outcome {
	data := n.baseData(n.clock.Now())
	if fetchErr != nil {
		data.Error = fetchErr.Error()
	}
	return n.deliver(ctx, KindFetchFailure, data)
}

// NotifyTelemetryRestored reports that fetching works again after failures
// that lasted for downtime.
func (n *Notifier) NotifyTelemetryRestored(ctx context.Context, failures int, downtime time.Duration) Outcome {
	data := n.baseData(n.clock.Now())
	data.Failures = failures
	data.Elapsed = formatElapsed(downtime)
	return n.deliver(ctx, KindTelemetryRestored, data)
}

// NotifyStartup announces that monitoring started.
func (n *Notifier) NotifyStartup(ctx context.Context, info StartupInfo) Outcome {
	data := n.baseData(n.clock.Now())
	data.PollInterval = info.PollInterval.String()
	data.Destinations = info.Destinations
	data.WindowOK = info.WindowOK
	if info.WindowOK {
		data.WindowStart = formatTime(info.WindowStart, n.location)
		data.WindowEnd = formatTime(info.WindowEnd, n.location)
	}
	return n.deliver(ctx, KindStartup, data)
}

func (n *Notifier) deliver(ctx context.Context, kind MessageKind, data TemplateData) Outcome {
	content, err := n.templates.Render(kind, data)
	if err != nil {
		n.logger.Printf("notify: render failed kind=%s err=%v", kind, err)
		return OutcomeFailed
	}
	n.logDelivery(kind, n.sender.Broadcast(ctx, content))
	return OutcomeSent
}

func (n *Notifier) logDelivery(kind MessageKind, delivery Delivery) {
	if err := delivery.Err(); err != nil {
		n.logger.Printf("notify: message partially sent kind=%s delivered=%d attempted=%d err=%v", kind, delivery.Delivered, delivery.Attempted, err)
		return
	}
	n.logger.Printf("notify: message sent kind=%s delivered=%d attempted=%d", kind, delivery.Delivered, delivery.Attempted)
}

func (n *Notifier) baseData(now time.Time) TemplateData {
	return TemplateData{
		Plant: n.plant,
		Time:  formatTime(now, n.location),
	}
}

func kindFor(event monitoring.Event) MessageKind {
	switch {
	case event.Signal == monitoring.SignalPower && event.IsAlert():
		return KindPowerAlert
	case event.Signal == monitoring.SignalPower:
		return KindPowerRecovery
	case event.IsAlert():
		return KindEnergyAlert
	default:
		return KindEnergyRecovery
	}
}
