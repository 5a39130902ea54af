package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/studio-gateway/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func find(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func counterValue(mf *dto.MetricFamily, label, value string) float64 {
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == label && l.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordRefresh(true)
	c.RecordRefresh(true)
	c.RecordRefresh(false)
	c.RecordAuthSignal("auth.forbidden")
	c.RecordHandshake(metrics.HandshakeSignup)
	c.ObserveBackendRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	refreshes := find(t, reg, "studio_gateway_token_refresh_total")
	require.Equal(t, float64(2), counterValue(refreshes, "outcome", "success"))
	require.Equal(t, float64(1), counterValue(refreshes, "outcome", "failure"))

	require.Equal(t, float64(1), counterValue(find(t, reg, "studio_gateway_auth_signals_total"), "signal", "auth.forbidden"))
	require.Equal(t, float64(1), counterValue(find(t, reg, "studio_gateway_oauth_callbacks_total"), "outcome", "signup_required"))

	latency := find(t, reg, "studio_gateway_backend_request_seconds")
	require.Len(t, latency.GetMetric(), 1)
	require.EqualValues(t, 1, latency.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordRefresh(true)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), "studio_gateway_token_refresh_total")
}

func TestNoopSatisfiesRecorder(t *testing.T) {
	var r metrics.Recorder = metrics.Noop{}
	r.RecordRefresh(false)
}
