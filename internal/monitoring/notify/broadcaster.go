package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"solar-watch/internal/observability/metrics"
)

const (
	KindTelegram = "telegram"
	KindWebhook  = "webhook"
)

// Destination is one configured recipient.
type Destination struct {
	// Name identifies the destination in logs without exposing credentials.
	Name    string
	Kind    string
	Channel Channel
}

// DestinationOptions carries what channel construction needs.
type DestinationOptions struct {
	TelegramToken  string
	TelegramAPIURL string
	Timeout        time.Duration
}

// ParseDestinations builds destinations from configured entries. Entries with
// an http or https scheme are webhooks; anything else is a Telegram chat id.
func ParseDestinations(entries []string, opts DestinationOptions) ([]Destination, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var destinations []Destination
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if IsWebhookDestination(entry) {
			ch, err := NewWebhookChannel(entry, WithWebhookClient(client))
			if err != nil {
				return nil, err
			}
			destinations = append(destinations, Destination{
				Name:    KindWebhook + ":" + redactURL(entry),
				Kind:    KindWebhook,
				Channel: ch,
			})
			continue
		}
		ch, err := NewTelegramChannel(opts.TelegramToken, entry,
			WithTelegramAPIURL(opts.TelegramAPIURL),
			WithTelegramClient(client),
		)
		if err != nil {
			return nil, err
		}
		destinations = append(destinations, Destination{
			Name:    KindTelegram + ":" + entry,
			Kind:    KindTelegram,
			Channel: ch,
		})
	}
	if len(destinations) == 0 {
		return nil, errors.New("notify: no destinations")
	}
	return destinations, nil
}

// IsWebhookDestination reports whether entry addresses a webhook.
func IsWebhookDestination(entry string) bool {
	parsed, err := url.Parse(strings.TrimSpace(entry))
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// Delivery summarizes one broadcast.
type Delivery struct {
	Attempted int
	Delivered int
	Errors    []error
}

// Err joins per-destination failures.
func (d Delivery) Err() error {
	return errors.Join(d.Errors...)
}

// Broadcaster fans content out to every destination concurrently. A failing
// destination never prevents delivery to the others.
type Broadcaster struct {
	destinations []Destination
	timeout      time.Duration
	logger       *log.Logger
}

// BroadcasterOption configures the broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithSendTimeout bounds each destination's send.
func WithSendTimeout(timeout time.Duration) BroadcasterOption {
	return func(b *Broadcaster) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithBroadcastLogger overrides the logger.
func WithBroadcastLogger(logger *log.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster constructs a broadcaster.
func NewBroadcaster(destinations []Destination, opts ...BroadcasterOption) (*Broadcaster, error) {
	if len(destinations) == 0 {
		return nil, errors.New("notify: no destinations")
	}
	for i, dest := range destinations {
		if dest.Channel == nil {
			return nil, fmt.Errorf("notify: nil channel for destination %d", i)
		}
	}
	b := &Broadcaster{
		destinations: append([]Destination(nil), destinations...),
		timeout:      10 * time.Second,
		logger:       log.New(os.Stdout, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Destinations returns the number of configured destinations.
func (b *Broadcaster) Destinations() int {
	if b == nil {
		return 0
	}
	return len(b.destinations)
}

// Broadcast sends content everywhere and waits for every attempt to finish.
func (b *Broadcaster) Broadcast(ctx context.Context, content string) Delivery {
	if b == nil {
		return Delivery{}
	}
	results := make([]error, len(b.destinations))
	var g errgroup.Group
	for i, dest := range b.destinations {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			err := dest.Channel.Send(sendCtx, content)
			if err != nil {
				if !errors.Is(err, ErrSend) {
					err = fmt.Errorf("%w: %v", ErrSend, err)
				}
				results[i] = fmt.Errorf("%s: %w", dest.Name, err)
				b.logger.Printf("notify: delivery failed destination=%s err=%v", dest.Name, err)
				metrics.IncNotification(dest.Kind, metrics.ResultError)
				return nil
			}
			metrics.IncNotification(dest.Kind, metrics.ResultSuccess)
			return nil
		})
	}
	_ = g.Wait()

	delivery := Delivery{Attempted: len(b.destinations)}
	for _, err := range results {
		if err != nil {
			delivery.Errors = append(delivery.Errors, err)
			continue
		}
		delivery.Delivered++
	}
	return delivery
}
