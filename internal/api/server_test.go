package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartShutdown(t *testing.T) {
	server, _ := newTestServer(t, nil, []string{"api"})

	require.NoError(t, server.Start())
	assert.True(t, server.IsRunning())

	resp, err := http.Get(server.URL() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.False(t, server.IsRunning())
}

func TestServerDoubleStart(t *testing.T) {
	server, _ := newTestServer(t, nil, []string{"api"})

	require.NoError(t, server.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	assert.Error(t, server.Start())
}

func TestServerShutdownWithoutStart(t *testing.T) {
	server, _ := newTestServer(t, nil, []string{"api"})
	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestServerAddrResolved(t *testing.T) {
	server, _ := newTestServer(t, nil, []string{"api"})

	require.NoError(t, server.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	assert.NotContains(t, server.Addr(), ":0")
	assert.Contains(t, server.URL(), "http://127.0.0.1:")
}

func TestServerConfigWithDefaults(t *testing.T) {
	got := ServerConfig{}.WithDefaults()
	assert.Equal(t, 10, got.DefaultIntervalSeconds)
	assert.Equal(t, 1000, got.MaxChartPoints)

	custom := ServerConfig{DefaultIntervalSeconds: 5, MaxChartPoints: 100}.WithDefaults()
	assert.Equal(t, 5, custom.DefaultIntervalSeconds)
	assert.Equal(t, 100, custom.MaxChartPoints)
}
