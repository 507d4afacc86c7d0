package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vendorServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != realtimePath || r.URL.Query().Get("plantId") != "plant-7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(baseURL, WithTimeout(2*time.Second), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return client
}

func TestFetchSampleDecodesEscapedPayload(t *testing.T) {
	server := vendorServer(t, http.StatusOK, map[string]any{
		"success": true,
		"data":    "{&quot;power&quot;:3.25,&quot;todayEnergy&quot;:&quot;12.5&quot;}",
	})
	client := newTestClient(t, server.URL+"/")

	sample, err := client.FetchSample(context.Background(), "plant-7")
	require.NoError(t, err)
	assert.Equal(t, 3.25, sample.Power)
	assert.Equal(t, 12.5, sample.DailyEnergy)
	assert.Equal(t, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), sample.At)
}

func TestFetchSampleErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   any
	}{
		"success false":   {http.StatusOK, map[string]any{"success": false, "message": "plant offline"}},
		"http error":      {http.StatusBadGateway, map[string]any{"success": true}},
		"empty data":      {http.StatusOK, map[string]any{"success": true, "data": ""}},
		"garbage data":    {http.StatusOK, map[string]any{"success": true, "data": "not json"}},
		"missing power":   {http.StatusOK, map[string]any{"success": true, "data": "{&quot;todayEnergy&quot;:1}"}},
		"missing energy":  {http.StatusOK, map[string]any{"success": true, "data": "{&quot;power&quot;:1}"}},
		"non-numeric":     {http.StatusOK, map[string]any{"success": true, "data": "{&quot;power&quot;:&quot;n/a&quot;,&quot;todayEnergy&quot;:1}"}},
		"boolean value":   {http.StatusOK, map[string]any{"success": true, "data": "{&quot;power&quot;:true,&quot;todayEnergy&quot;:1}"}},
		"negative energy": {http.StatusOK, map[string]any{"success": true, "data": "{&quot;power&quot;:1,&quot;todayEnergy&quot;:-2}"}},
		"not an envelope": {http.StatusOK, []int{1, 2}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := vendorServer(t, tc.status, tc.body)
			client := newTestClient(t, server.URL)

			_, err := client.FetchSample(context.Background(), "plant-7")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestFetchSampleUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	_, err := client.FetchSample(context.Background(), "plant-7")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchSampleTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = client.FetchSample(context.Background(), "plant-7")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestWithTimeoutLeavesSharedClientUntouched(t *testing.T) {
	transport := &http.Transport{}
	shared := &http.Client{Transport: transport}

	c, err := NewClient("http://vendor.example.com", WithHTTPClient(shared), WithTimeout(3*time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), shared.Timeout)
	assert.Equal(t, 3*time.Second, c.client.Timeout)
	assert.NotSame(t, shared, c.client)
	assert.Same(t, transport, c.client.Transport)
}
