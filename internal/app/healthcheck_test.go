package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetricsEndpoints(t *testing.T) {
	a := NewApp(io.Discard, &Config{ScenePaths: []string{"unused"}}, nil)
	a.metrics.InstanceAdded()
	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "depsgraph_instances 1")
}

func TestHealthCheckServerDisabled(t *testing.T) {
	a := NewApp(io.Discard, &Config{ScenePaths: []string{"unused"}}, nil)
	require.NoError(t, a.startHealthCheckServer(0))
	assert.Nil(t, a.httpServer)
	assert.NoError(t, a.closeHealthCheckServer())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
