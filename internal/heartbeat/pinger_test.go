package heartbeat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPing(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPinger(server.URL, time.Second)
	assert.NoError(t, p.Ping(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestPingNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewPinger(server.URL, time.Second).Ping(context.Background())
	assert.ErrorIs(t, err, ErrPing)
}

func TestPingDisabled(t *testing.T) {
	p := NewPinger("", 0)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Ping(context.Background()))

	var nilPinger *Pinger
	assert.NoError(t, nilPinger.Ping(context.Background()))
}
