// Package notify renders monitor messages and delivers them to chat and
// webhook destinations.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrSend marks a failed delivery to a single destination.
var ErrSend = errors.New("notify: send failed")

// Channel delivers rendered content to one destination.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// Clock provides time for cooldown decisions and message timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
