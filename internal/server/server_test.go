package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/base"
	"github.com/inorbit-ai/flowcore-connector/pkg/metrics"
	"github.com/inorbit-ai/flowcore-connector/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("flowcore", reg)
	collector.RecordCommand(metrics.StatusSuccess)

	srv := New(":0", reg, nil, testutil.TestLogger(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `flowcore_connector_commands_total{connector="flowcore",result="success"} 1`)
}

func TestHandler_Health(t *testing.T) {
	var failing bool
	health := base.NewHealthChecker("flowcore", time.Hour, func(context.Context) error {
		if failing {
			return stderrors.New("connector is not connected")
		}
		return nil
	}, testutil.TestLogger(t))
	srv := New(":0", prometheus.NewRegistry(), health, testutil.TestLogger(t))

	get := func() (int, map[string]interface{}) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
		var body map[string]interface{}
		require.NoError(t, gojson.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := get()
	assert.Equal(t, http.StatusServiceUnavailable, code, "unhealthy before the first check")
	assert.Equal(t, base.StatusUnhealthy, body["status"])

	health.Check(context.Background())
	code, body = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, base.StatusHealthy, body["status"])

	failing = true
	health.Check(context.Background())
	code, body = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, base.StatusDegraded, body["status"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "connector is not connected", details["last_error"])
}

func TestHandler_HealthWithoutChecker(t *testing.T) {
	srv := New(":0", prometheus.NewRegistry(), nil, testutil.TestLogger(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(addr, prometheus.NewRegistry(), nil, testutil.TestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	testutil.AssertEventually(t, func() bool {
		resp, err := http.Get("http://" + addr + HealthPath)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, "server should accept requests")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(ln.Addr().String(), prometheus.NewRegistry(), nil, testutil.TestLogger(t))
	err = srv.Run(context.Background())
	assert.Error(t, err)
}
