//go:build !windows

package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const stateFileName = "daemonenv_state"

// ramDir is preferred when it exists (Linux).
var ramDir = "/dev/shm"

// Locate returns the state file location for the current environment. The
// daemon calls it before bootstrap: afterwards TMPDIR may be gone, and
// os.TempDir would point somewhere clients never look.
func Locate() Location {
	if _, err := os.Stat(ramDir); err == nil {
		return LocationIn(ramDir)
	}
	return LocationIn(os.TempDir())
}

// LocationIn places the state file in dir.
func LocationIn(dir string) Location {
	return Location(filepath.Join(dir, stateFileName))
}

// publishBytes writes b into a state file readable only by this user, mapped
// shared so readers see a fixed-size page. The returned cleanup unmaps and
// removes it.
func publishBytes(loc Location, b []byte) (func(), error) {
	if len(b) > shmSize {
		return nil, fmt.Errorf("state too large (%d > %d)", len(b), shmSize)
	}
	path := string(loc)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	if err := f.Truncate(shmSize); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("size state file: %w", err)
	}

	page, err := unix.Mmap(int(f.Fd()), 0, shmSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map state file: %w", err)
	}
	copy(page, b)
	clear(page[len(b):])

	var done bool
	cleanup := func() {
		if done {
			return
		}
		done = true
		_ = unix.Munmap(page)
		_ = f.Close()
		_ = os.Remove(path)
	}
	return cleanup, nil
}

// readBytes maps the state file read-only and returns its non-zero prefix.
func readBytes(loc Location) ([]byte, error) {
	f, err := os.Open(string(loc))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page, err := unix.Mmap(int(f.Fd()), 0, shmSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map state file: %w", err)
	}
	defer unix.Munmap(page)

	return trimZeros(page), nil
}
