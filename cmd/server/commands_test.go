package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/studio-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestHealthURL(t *testing.T) {
	require.Equal(t, "http://localhost:8080/healthz", healthURL(":8080"))
	require.Equal(t, "http://10.0.0.2:9000/healthz", healthURL("10.0.0.2:9000"))
}

func TestProbeHealth(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	require.NoError(t, probeHealth(context.Background(), srv.URL))

	status = http.StatusServiceUnavailable
	require.Error(t, probeHealth(context.Background(), srv.URL))
}

func TestServeReturnsConfigurationErrors(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("NEXTAUTH_SECRET", "")
	t.Setenv("REDIS_ADDR", "")

	done := make(chan error, 1)
	go func() {
		done <- serve(config.New())
	}()

	select {
	case err := <-done:
		require.ErrorContains(t, err, "session secret is required")
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept retrying a configuration error")
	}
}
