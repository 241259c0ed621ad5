package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"daemonenv/internal/shm"
	"daemonenv/internal/utils"
)

// EnsureDaemonRunning starts the daemon if none answers. It waits until
// /health is OK or the timeout passes. Extra args are appended to the
// daemon subcommand, e.g. "--env-file".
func EnsureDaemonRunning(ctx context.Context, args ...string) (*shm.DaemonState, error) {
	// 1) If we have shm state and health passes, we're done.
	if st, err := Discover(ctx); err == nil {
		return st, nil
	}

	// 2) Spawn the daemon.
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, append([]string{"daemon"}, args...)...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = utils.DetachSysProcAttr()

	// Start, not wait.
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = cmd.Process.Release()

	// 3) Wait for shm state then health OK.
	deadline := time.Now().Add(8 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		st, err := Discover(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return st, nil
	}
	return nil, fmt.Errorf("daemon did not become healthy: %v", lastErr)
}

// Discover returns the state of a running, healthy daemon.
func Discover(ctx context.Context) (*shm.DaemonState, error) {
	return DiscoverAt(ctx, shm.Locate())
}

// DiscoverAt is Discover for a daemon publishing at loc.
func DiscoverAt(ctx context.Context, loc shm.Location) (*shm.DaemonState, error) {
	st, err := shm.ReadAt(loc)
	if err != nil {
		return nil, err
	}
	if err := tryHealth(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
