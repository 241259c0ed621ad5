//go:build !windows

package utils

import "syscall"

// DetachSysProcAttr starts a child in its own session so it outlives the
// terminal that spawned it.
func DetachSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
