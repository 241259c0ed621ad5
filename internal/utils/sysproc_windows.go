//go:build windows

package utils

import "syscall"

const (
	detachedProcess = 0x00000008
	createNoWindow  = 0x08000000
)

// DetachSysProcAttr starts a child without a console window.
func DetachSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: detachedProcess | createNoWindow}
}
