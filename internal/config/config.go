// Package config loads the monitor configuration from the environment and an
// optional YAML file. The result is validated once and never mutated.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that must not be used to start monitoring.
var ErrInvalid = errors.New("config: invalid configuration")

// FileEnv names the variable pointing at the optional YAML file.
const FileEnv = "MONITOR_CONFIG"

// Config holds every setting of the monitor.
type Config struct {
	TelegramToken  string   `yaml:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIURL string   `yaml:"telegram_api_url" env:"TELEGRAM_API_URL" validate:"required,url"`
	Destinations   []string `yaml:"notify_destinations" env:"NOTIFY_DESTINATIONS" validate:"min=1,dive,required"`

	PlantID          string `yaml:"plant_id" env:"PLANT_ID" validate:"required"`
	TelemetryBaseURL string `yaml:"telemetry_base_url" env:"TELEMETRY_BASE_URL" validate:"required,url"`

	Latitude  float64 `yaml:"latitude" env:"LATITUDE" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" env:"LONGITUDE" validate:"gte=-180,lte=180"`
	Timezone  string  `yaml:"timezone" env:"TIMEZONE" validate:"required"`

	PollInterval   time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" validate:"gt=0"`
	AlertCooldown  time.Duration `yaml:"alert_cooldown" env:"ALERT_COOLDOWN" validate:"gte=0"`
	SharedCooldown bool          `yaml:"alert_shared_cooldown" env:"ALERT_SHARED_COOLDOWN"`

	PowerAlertEnabled  bool          `yaml:"power_alert_enabled" env:"POWER_ALERT_ENABLED"`
	PowerAlertAfter    time.Duration `yaml:"power_alert_after" env:"POWER_ALERT_AFTER" validate:"gt=0"`
	EnergyAlertEnabled bool          `yaml:"energy_alert_enabled" env:"ENERGY_ALERT_ENABLED"`
	EnergyAlertAfter   time.Duration `yaml:"energy_alert_after" env:"ENERGY_ALERT_AFTER" validate:"gt=0"`

	SunriseBuffer time.Duration `yaml:"sunrise_buffer" env:"SUNRISE_BUFFER" validate:"gte=0"`
	SunsetBuffer  time.Duration `yaml:"sunset_buffer" env:"SUNSET_BUFFER" validate:"gte=0"`

	HTTPTimeout   time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT" validate:"gt=0"`
	HeartbeatURL  string        `yaml:"heartbeat_url" env:"HEARTBEAT_URL" validate:"omitempty,url"`
	MetricsAddr   string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	NotifyStartup bool          `yaml:"notify_startup" env:"NOTIFY_STARTUP"`

	// Location is resolved from Timezone.
	Location *time.Location `yaml:"-" validate:"-"`
}

// Defaults returns the configuration before file and environment overrides.
func Defaults() Config {
	return Config{
		TelegramAPIURL:     "https://api.telegram.org",
		Timezone:           "UTC",
		PollInterval:       10 * time.Minute,
		AlertCooldown:      time.Hour,
		PowerAlertEnabled:  true,
		PowerAlertAfter:    time.Hour,
		EnergyAlertEnabled: true,
		EnergyAlertAfter:   time.Hour,
		SunriseBuffer:      30 * time.Minute,
		SunsetBuffer:       30 * time.Minute,
		HTTPTimeout:        10 * time.Second,
		NotifyStartup:      true,
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a configuration from defaults, the YAML file named by
// MONITOR_CONFIG and then the environment, in that order of precedence.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	present := map[string]bool{}

	if path, ok := lookup(FileEnv); ok && strings.TrimSpace(path) != "" {
		keys, err := readFile(strings.TrimSpace(path), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if _, ok := keys["latitude"]; ok {
			present["LATITUDE"] = true
		}
		if _, ok := keys["longitude"]; ok {
			present["LONGITUDE"] = true
		}
	}

	env := envReader{lookup: lookup, present: present}
	env.str("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	env.str("TELEGRAM_API_URL", &cfg.TelegramAPIURL)
	env.csv("NOTIFY_DESTINATIONS", &cfg.Destinations)
	env.str("PLANT_ID", &cfg.PlantID)
	env.str("TELEMETRY_BASE_URL", &cfg.TelemetryBaseURL)
	env.float("LATITUDE", &cfg.Latitude)
	env.float("LONGITUDE", &cfg.Longitude)
	env.str("TIMEZONE", &cfg.Timezone)
	env.duration("POLL_INTERVAL", &cfg.PollInterval)
	env.duration("ALERT_COOLDOWN", &cfg.AlertCooldown)
	env.boolean("ALERT_SHARED_COOLDOWN", &cfg.SharedCooldown)
	env.boolean("POWER_ALERT_ENABLED", &cfg.PowerAlertEnabled)
	env.duration("POWER_ALERT_AFTER", &cfg.PowerAlertAfter)
	env.boolean("ENERGY_ALERT_ENABLED", &cfg.EnergyAlertEnabled)
	env.duration("ENERGY_ALERT_AFTER", &cfg.EnergyAlertAfter)
	env.duration("SUNRISE_BUFFER", &cfg.SunriseBuffer)
	env.duration("SUNSET_BUFFER", &cfg.SunsetBuffer)
	env.duration("HTTP_TIMEOUT", &cfg.HTTPTimeout)
	env.str("HEARTBEAT_URL", &cfg.HeartbeatURL)
	env.str("METRICS_ADDR", &cfg.MetricsAddr)
	env.boolean("NOTIFY_STARTUP", &cfg.NotifyStartup)

	errs := env.errs
	if !present["LATITUDE"] {
		errs = append(errs, errors.New("LATITUDE: required"))
	}
	if !present["LONGITUDE"] {
		errs = append(errs, errors.New("LONGITUDE: required"))
	}
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return cfg, nil
}

// ChatDestinations reports whether any destination is a Telegram chat.
func (c Config) ChatDestinations() bool {
	for _, dest := range c.Destinations {
		if !isWebhook(dest) {
			return true
		}
	}
	return false
}

func (c *Config) validate() []error {
	var errs []error
	if err := structValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fieldError(fe))
			}
		} else {
			errs = append(errs, err)
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: unknown zone %q", c.Timezone))
	} else {
		c.Location = loc
	}
	if !c.PowerAlertEnabled && !c.EnergyAlertEnabled {
		errs = append(errs, errors.New("POWER_ALERT_ENABLED/ENERGY_ALERT_ENABLED: at least one tracker must be enabled"))
	}
	if c.ChatDestinations() && strings.TrimSpace(c.TelegramToken) == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN: required for chat id destinations"))
	}
	if c.MetricsAddr != "" {
		if _, port, err := net.SplitHostPort(c.MetricsAddr); err != nil || port == "" {
			errs = append(errs, fmt.Errorf("METRICS_ADDR: invalid listen address %q", c.MetricsAddr))
		}
	}
	return errs
}

func structValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: required", fe.Field())
	case "min":
		return fmt.Errorf("%s: at least %s value(s) required", fe.Field(), fe.Param())
	case "url":
		return fmt.Errorf("%s: invalid url", fe.Field())
	case "gt":
		return fmt.Errorf("%s: must be greater than %s", fe.Field(), fe.Param())
	case "gte", "lte":
		return fmt.Errorf("%s: %v out of range", fe.Field(), fe.Value())
	default:
		return fmt.Errorf("%s: failed %s", fe.Field(), fe.Tag())
	}
}

func readFile(path string, cfg *Config) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

func isWebhook(dest string) bool {
	parsed, err := url.Parse(strings.TrimSpace(dest))
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// envReader applies set variables over the current values and collects
// parse errors instead of silently falling back.
type envReader struct {
	lookup  func(string) (string, bool)
	present map[string]bool
	errs    []error
}

func (r *envReader) value(key string) (string, bool) {
	value, ok := r.lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}
	r.present[key] = true
	return value, true
}

func (r *envReader) str(key string, dst *string) {
	if value, ok := r.value(key); ok {
		*dst = value
	}
}

func (r *envReader) csv(key string, dst *[]string) {
	if value, ok := r.value(key); ok {
		*dst = splitCSV(value)
	}
}

func (r *envReader) float(key string, dst *float64) {
	value, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid number %q", key, value))
		return
	}
	*dst = parsed
}

func (r *envReader) duration(key string, dst *time.Duration) {
	value, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return
	}
	*dst = parsed
}

func (r *envReader) boolean(key string, dst *bool) {
	value, ok := r.value(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return
	}
	*dst = parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
