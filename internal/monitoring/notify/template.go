package notify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// MessageKind selects the template used for a message.
type MessageKind string

const (
	KindPowerAlert        MessageKind = "power_alert"
	KindPowerRecovery     MessageKind = "power_recovery"
	KindEnergyAlert       MessageKind = "energy_alert"
	KindEnergyRecovery    MessageKind = "energy_recovery"
	KindFetchFailure      MessageKind = "fetch_failure"
	KindTelemetryRestored MessageKind = "telemetry_restored"
	KindStartup           MessageKind = "startup"
)

// DefaultTemplates holds the built-in message bodies.
var DefaultTemplates = map[MessageKind]string{
	KindPowerAlert: `[Alert] Inverter output lost
Plant: {{.Plant}}
Output has stayed below {{.Epsilon}} kW for {{.Elapsed}} ({{.Readings}} readings since {{.Since}}).
Current power: {{.Power}} kW
Energy today: {{.DailyEnergy}} kWh
Time: {{.Time}}`,
	KindPowerRecovery: `[Recovered] Inverter output restored
Plant: {{.Plant}}
Current power: {{.Power}} kW after {{.Elapsed}} without output.
Energy today: {{.DailyEnergy}} kWh
Time: {{.Time}}`,
	KindEnergyAlert: `[Alert] Daily energy not increasing
Plant: {{.Plant}}
Energy today has been stuck at {{.DailyEnergy}} kWh for {{.Elapsed}} ({{.Readings}} readings since {{.Since}}).
Current power: {{.Power}} kW
Time: {{.Time}}`,
	KindEnergyRecovery: `[Recovered] Daily energy increasing again
Plant: {{.Plant}}
Energy today: {{.DailyEnergy}} kWh after {{.Elapsed}} without change.
Current power: {{.Power}} kW
Time: {{.Time}}`,
	KindFetchFailure: `[Warning] Telemetry unavailable
Plant: {{.Plant}}
Error: {{.Error}}
Detection is paused until readings are available again.
Time: {{.Time}}`,
	KindTelemetryRestored: `[Info] Telemetry available again
Plant: {{.Plant}}
Readings resumed after {{.Failures}} failed polls ({{.Elapsed}}).
Time: {{.Time}}`,
	KindStartup: `[Info] Solar watch started
Plant: {{.Plant}}
Polling every {{.PollInterval}}, notifying {{.Destinations}} destination(s).
{{- if .WindowOK }}
Today's window: {{.WindowStart}} - {{.WindowEnd}}
{{- else }}
No monitoring window today.
{{- end }}
Time: {{.Time}}`,
}

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Plant        string
	Signal       string
	Epsilon      string
	Power        string
	DailyEnergy  string
	Since        string
	Elapsed      string
	Readings     int
	Time         string
	Error        string
	Failures     int
	PollInterval string
	Destinations int
	WindowOK     bool
	WindowStart  string
	WindowEnd    string
}

// Templates renders every message kind.
type Templates struct {
	byKind map[MessageKind]*template.Template
}

// NewTemplates parses the default templates, replacing any kind present in
// overrides.
func NewTemplates(overrides map[MessageKind]string) (*Templates, error) {
	t := &Templates{byKind: make(map[MessageKind]*template.Template, len(DefaultTemplates))}
	for kind, body := range DefaultTemplates {
		if override, ok := overrides[kind]; ok && strings.TrimSpace(override) != "" {
			body = override
		}
		parsed, err := template.New(string(kind)).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("notify template %s: %w", kind, err)
		}
		t.byKind[kind] = parsed
	}
	for kind := range overrides {
		if _, ok := DefaultTemplates[kind]; !ok {
			return nil, fmt.Errorf("notify template: unknown kind %q", kind)
		}
	}
	return t, nil
}

// Render applies the template for kind to data.
func (t *Templates) Render(kind MessageKind, data TemplateData) (string, error) {
	if t == nil {
		return "", errors.New("notify template: nil")
	}
	tpl, ok := t.byKind[kind]
	if !ok {
		return "", fmt.Errorf("notify template: unknown kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatFloat(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04 MST")
}

// formatElapsed renders a duration at minute precision, e.g. "1h 5m".
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}
