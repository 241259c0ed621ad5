package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock is an exclusive advisory lock on a file; at most one daemon
// holds it per directory and name.
type InstanceLock struct {
	fl *flock.Flock
}

// AcquireInstanceLock takes the lock on dir/name without waiting.
func AcquireInstanceLock(dir, name string) (*InstanceLock, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock %s: no directory", name)
	}
	fl := flock.New(filepath.Join(dir, name))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire lock (%s)", fl.Path())
	}
	return &InstanceLock{fl: fl}, nil
}

func (l *InstanceLock) Path() string { return l.fl.Path() }

// Release unlocks and removes the lock file. Safe to call twice.
func (l *InstanceLock) Release() {
	if l == nil || !l.fl.Locked() {
		return
	}
	_ = l.fl.Unlock()
	_ = os.Remove(l.fl.Path())
}
