package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daemonenv/internal/bootstrap"
	"daemonenv/internal/env"
	"daemonenv/internal/logging"
	"daemonenv/internal/shm"
	"daemonenv/internal/utils"
)

// Options configure RunDaemon.
type Options struct {
	EnvFile  string
	LockName string
	// LockDir defaults to os.TempDir() as seen before bootstrap.
	LockDir string
	// State defaults to shm.Locate() as seen before bootstrap.
	State  shm.Location
	Logger *logging.Logger
	// Space defaults to the real process environment.
	Space env.Space
}

// RunDaemon bootstraps the process environment and then serves its status
// until SIGINT/SIGTERM or ctx is done. A bootstrap failure is fatal: the
// daemon never serves with an environment it did not vet.
func RunDaemon(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	space := opts.Space
	if space == nil {
		space = env.NewProcessSpace()
	}

	// Both locations may depend on TMPDIR, which bootstrap can remove.
	lockDir := opts.LockDir
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	stateLoc := opts.State
	if stateLoc == "" {
		stateLoc = shm.Locate()
	}

	lock, err := utils.AcquireInstanceLock(lockDir, opts.LockName)
	if err != nil {
		return fmt.Errorf("another instance appears to be running: %w", err)
	}
	defer lock.Release()

	b := bootstrap.New(space, bootstrap.WithLogger(log))
	if _, err := b.Load(opts.EnvFile); err != nil {
		return err
	}
	status := NewStatus(os.Getpid(), opts.EnvFile, space.Current())

	// Handle graceful shutdown (Ctrl+C / SIGTERM).
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := utils.RandomTokenHex(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	ds, err := NewDaemonServer(status, token)
	if err != nil {
		return fmt.Errorf("failed to create daemon server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ds.Serve()
	}()

	st := &shm.DaemonState{
		Host:      ds.Host,
		Port:      ds.Port,
		Token:     token,
		PID:       status.PID,
		EnvFile:   status.Source,
		Entries:   status.Entries,
		StartedAt: status.InstalledAt,
	}
	shmCleanup, err := shm.PublishAt(stateLoc, st)
	if err != nil {
		log.Warn("shared memory publish failed, clients cannot discover this daemon", "location", string(stateLoc), "error", err)
	}
	if shmCleanup != nil {
		defer shmCleanup()
	}

	log.Event("daemon ready", "host", ds.Host, "port", ds.Port, "entries", status.Entries)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ds.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Event("daemon stopped")
		return nil
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	}
}
