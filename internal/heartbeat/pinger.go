// Package heartbeat pings an external uptime monitor.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPing marks a failed heartbeat.
var ErrPing = errors.New("heartbeat: ping failed")

// Pinger sends a GET to a fixed URL. A Pinger with an empty URL is a no-op.
type Pinger struct {
	url    string
	client *http.Client
}

// NewPinger constructs a pinger.
func NewPinger(url string, timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Pinger{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a URL is configured.
func (p *Pinger) Enabled() bool {
	return p != nil && p.url != ""
}

// Ping performs one heartbeat.
func (p *Pinger) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPing, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPing, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http %d", ErrPing, resp.StatusCode)
	}
	return nil
}
