package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/pkg/options"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	var notReady error
	m := metrics.New()
	m.RadioRestarted()
	s := NewServer(options.NewHttpOptions(), func() error { return notReady }, m.Handler())
	h := s.Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusOK, get(t, h, "/readyz").Code)

	notReady = errors.New("radio down")
	rec = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "radio down")

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optix_radio_restarts_total 1")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	s := NewServer(&options.HttpOptions{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartReportsBindErrors(t *testing.T) {
	s := NewServer(&options.HttpOptions{Addr: "127.0.0.1:-1"}, nil, nil)
	assert.Error(t, s.Start(context.Background()))
}
