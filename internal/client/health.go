package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"daemonenv/internal/server"
	"daemonenv/internal/shm"
)

var httpClient = &http.Client{Timeout: 800 * time.Millisecond}

// baseURL addresses the daemon on the loopback address it bound.
func baseURL(st *shm.DaemonState) string {
	host := st.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(st.Port))
}

func get(ctx context.Context, st *shm.DaemonState, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(st)+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(server.TokenHeader, st.Token)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s status %d", path, resp.StatusCode)
	}
	return resp, nil
}

// Try a quick health check to an existing daemon.
func tryHealth(ctx context.Context, st *shm.DaemonState) error {
	resp, err := get(ctx, st, "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// FetchStatus asks the daemon which environment it bootstrapped.
func FetchStatus(ctx context.Context, st *shm.DaemonState) (*server.Status, error) {
	resp, err := get(ctx, st, "/environment")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status server.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}
