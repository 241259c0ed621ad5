package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daemonenv/internal/env"
	"daemonenv/internal/server"
	"daemonenv/internal/shm"
)

func startDaemon(t *testing.T, token string) *shm.DaemonState {
	t.Helper()
	table := env.NewTable(0)
	require.NoError(t, table.Append(env.Entry{Name: "PATH", Value: "/usr/bin"}))

	ds, err := server.NewDaemonServer(server.NewStatus(7, "/tmp/env", table), token)
	require.NoError(t, err)
	go func() { _ = ds.Serve() }()
	t.Cleanup(func() { _ = ds.Shutdown(context.Background()) })

	return &shm.DaemonState{Host: ds.Host, Port: ds.Port, Token: token}
}

func TestTryHealth(t *testing.T) {
	st := startDaemon(t, "secret-token")
	assert.NoError(t, tryHealth(t.Context(), st))

	bad := *st
	bad.Token = "nope"
	assert.ErrorContains(t, tryHealth(t.Context(), &bad), "status 401")
}

func TestFetchStatus(t *testing.T) {
	st := startDaemon(t, "secret-token")
	status, err := FetchStatus(t.Context(), st)
	require.NoError(t, err)
	assert.Equal(t, 7, status.PID)
	assert.Equal(t, []string{"PATH"}, status.Names)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", baseURL(&shm.DaemonState{Host: "127.0.0.1", Port: 8080}))
	assert.Equal(t, "http://[::1]:8080", baseURL(&shm.DaemonState{Host: "::1", Port: 8080}))
	assert.Equal(t, "http://127.0.0.1:8080", baseURL(&shm.DaemonState{Port: 8080}))
}
