package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/runtime"
)

func TestMetricsServerServesRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := runtime.New(runtime.WithOutput(io.Discard), runtime.WithMetrics(runtime.NewMetrics(reg)))
	_, err := rt.Run(context.Background(), "print 1;", evaluator.NewEnv(nil))
	require.NoError(t, err)

	srv := newMetricsServer("127.0.0.1:0", reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `slox_runs_total{outcome="ok"} 1`)

	health, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsServerRejectsBadAddress(t *testing.T) {
	srv := newMetricsServer("not-an-address", prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, srv.Start())
}
