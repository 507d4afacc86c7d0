// Package telemetry reads realtime production data from the inverter vendor API.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	monitoring "solar-watch/internal/monitoring/domain"
)

const realtimePath = "/plant/realtime"

// ErrFetch marks every failure to obtain a usable sample.
var ErrFetch = errors.New("telemetry: fetch failed")

// Client is a minimal vendor REST client.
type Client struct {
	baseURL string
	client  *http.Client
	clock   func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed with
// WithHTTPClient is copied, never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			copied := *c.client
			copied.Timeout = timeout
			c.client = &copied
		}
	}
}

// WithClock overrides the sample timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient constructs a vendor client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("telemetry: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type realtimePayload struct {
	Power       json.RawMessage `json:"power"`
	TodayEnergy json.RawMessage `json:"todayEnergy"`
}

// FetchSample loads the current power and daily energy for a plant. Every
// error wraps ErrFetch.
func (c *Client) FetchSample(ctx context.Context, plantID string) (monitoring.Sample, error) {
	if plantID == "" {
		return monitoring.Sample{}, fmt.Errorf("%w: empty plant id", ErrFetch)
	}
	endpoint := c.baseURL + realtimePath + "?plantId=" + url.QueryEscape(plantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return monitoring.Sample{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return monitoring.Sample{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return monitoring.Sample{}, fmt.Errorf("%w: http %d", ErrFetch, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return monitoring.Sample{}, fmt.Errorf("%w: decode envelope: %v", ErrFetch, err)
	}
	return c.parseEnvelope(env)
}

func (c *Client) parseEnvelope(env envelope) (monitoring.Sample, error) {
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "success=false"
		}
		return monitoring.Sample{}, fmt.Errorf("%w: vendor error: %s", ErrFetch, msg)
	}
	if strings.TrimSpace(env.Data) == "" {
		return monitoring.Sample{}, fmt.Errorf("%w: empty data", ErrFetch)
	}

	var payload realtimePayload
	if err := json.Unmarshal([]byte(html.UnescapeString(env.Data)), &payload); err != nil {
		return monitoring.Sample{}, fmt.Errorf("%w: decode data: %v", ErrFetch, err)
	}
	power, err := parseNumber("power", payload.Power)
	if err != nil {
		return monitoring.Sample{}, err
	}
	energy, err := parseNumber("todayEnergy", payload.TodayEnergy)
	if err != nil {
		return monitoring.Sample{}, err
	}
	sample := monitoring.Sample{Power: power, DailyEnergy: energy, At: c.clock()}
	if err := sample.Validate(); err != nil {
		return monitoring.Sample{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return sample, nil
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(field string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing %s", ErrFetch, field)
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("%w: non-numeric %s", ErrFetch, field)
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("%w: non-numeric %s %q", ErrFetch, field, text)
	}
	return number, nil
}
