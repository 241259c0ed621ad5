package run

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// RunCommandWithEnv runs cmdName with exactly environ as its environment.
// Nothing from the calling process is merged in.
func RunCommandWithEnv(cmdName string, cmdArgs []string, environ []string) error {
	cmd := exec.Command(cmdName, cmdArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// A nil Env would make exec inherit the parent's environment.
	cmd.Env = append([]string{}, environ...)

	if err := cmd.Run(); err != nil {
		return err
	}
	return nil
}

// ExitCode extracts the child's exit status from a RunCommandWithEnv error,
// shell style: a child killed by signal N yields 128+N. It reports false for
// errors that did not come from a finished child.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code, true
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}
	return 1, true
}
