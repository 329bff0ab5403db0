package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fastlane "github.com/ShreyPatel4/FastLane-NVMe"
)

func startTestServer(t *testing.T) (*Server, *fastlane.Metrics) {
	t.Helper()

	metrics := fastlane.MustNewMetrics()
	srv, err := NewServer("127.0.0.1:0", metrics, nil)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, metrics
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, metrics := startTestServer(t)

	metrics.SetQueueDepth(7)
	metrics.ObserveIOLatency(0.001)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "nvme_queue_depth 7")
	assert.Contains(t, text, "io_latency_seconds_count 1")
}

func TestMetricsServesOnlyOwnRegistry(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// A dedicated registry never carries the default Go runtime collectors.
	assert.NotContains(t, string(body), "go_goroutines")
}

func TestHealthRejectsWrongMethod(t *testing.T) {
	srv, _ := startTestServer(t)

	resp, err := http.Post("http://"+srv.Addr()+"/health", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
