package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingChannel) Send(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, content)
	return r.err
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestBroadcasterIsolatesFailures(t *testing.T) {
	good := &recordingChannel{}
	bad := &recordingChannel{err: errors.New("boom")}
	other := &recordingChannel{}

	b, err := NewBroadcaster([]Destination{
		{Name: "telegram:1", Kind: KindTelegram, Channel: good},
		{Name: "webhook:x", Kind: KindWebhook, Channel: bad},
		{Name: "telegram:2", Kind: KindTelegram, Channel: other},
	}, WithBroadcastLogger(quietLogger()))
	require.NoError(t, err)

	delivery := b.Broadcast(context.Background(), "hello")
	assert.Equal(t, 3, delivery.Attempted)
	assert.Equal(t, 2, delivery.Delivered)
	require.Len(t, delivery.Errors, 1)
	assert.ErrorIs(t, delivery.Err(), ErrSend)
	assert.Contains(t, delivery.Err().Error(), "webhook:x")

	assert.Equal(t, 1, good.count())
	assert.Equal(t, 1, bad.count())
	assert.Equal(t, 1, other.count())
}

func TestNewBroadcasterValidation(t *testing.T) {
	_, err := NewBroadcaster(nil)
	assert.Error(t, err)
	_, err = NewBroadcaster([]Destination{{Name: "x"}})
	assert.Error(t, err)
}

func TestParseDestinations(t *testing.T) {
	destinations, err := ParseDestinations(
		[]string{" -1001 ", "https://hooks.example.com/secret/path", ""},
		DestinationOptions{TelegramToken: "tok"},
	)
	require.NoError(t, err)
	require.Len(t, destinations, 2)

	assert.Equal(t, KindTelegram, destinations[0].Kind)
	assert.Equal(t, "telegram:-1001", destinations[0].Name)
	assert.Equal(t, KindWebhook, destinations[1].Kind)
	assert.Equal(t, "webhook:https://hooks.example.com", destinations[1].Name)
}

func TestParseDestinationsRequiresToken(t *testing.T) {
	_, err := ParseDestinations([]string{"42"}, DestinationOptions{})
	assert.Error(t, err)

	_, err = ParseDestinations([]string{"https://hooks.example.com/a"}, DestinationOptions{})
	assert.NoError(t, err)

	_, err = ParseDestinations([]string{" "}, DestinationOptions{TelegramToken: "tok"})
	assert.Error(t, err)
}
