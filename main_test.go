package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedSuccess struct {
	at time.Time
	ok bool
}

func (f fixedSuccess) LastSuccess() (time.Time, bool) {
	return f.at, f.ok
}

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name   string
		report fixedSuccess
		status int
	}{
		{name: "no cycle yet", report: fixedSuccess{}, status: http.StatusServiceUnavailable},
		{name: "recent", report: fixedSuccess{at: time.Now().Add(-time.Minute), ok: true}, status: http.StatusOK},
		{name: "stale", report: fixedSuccess{at: time.Now().Add(-2 * time.Hour), ok: true}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthHandler(tc.report, 30*time.Minute).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, strings.HasPrefix(buf.String(), "http GET /metrics 418"))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand(log.New(io.Discard, "", 0))
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"once", "window"}, names)
}
