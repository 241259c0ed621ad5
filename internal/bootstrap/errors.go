package bootstrap

import (
	"errors"
	"fmt"
	"syscall"

	"daemonenv/internal/env"
)

// Kind says why a bootstrap failed.
type Kind int

const (
	KindOpenFailed Kind = iota + 1
	KindReadFailed
	KindTruncatedLine
	KindCapacityExceeded
	KindAllocationFailed
	KindInvalidEntry
	KindInstallFailed
)

var (
	ErrOpenFailed       = errors.New("open failed")
	ErrReadFailed       = errors.New("read failed")
	ErrTruncatedLine    = errors.New("truncated line")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrAllocationFailed = errors.New("allocation failed")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrInstallFailed    = errors.New("install failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindOpenFailed:
		return ErrOpenFailed
	case KindReadFailed:
		return ErrReadFailed
	case KindTruncatedLine:
		return ErrTruncatedLine
	case KindCapacityExceeded:
		return ErrCapacityExceeded
	case KindAllocationFailed:
		return ErrAllocationFailed
	case KindInvalidEntry:
		return ErrInvalidEntry
	case KindInstallFailed:
		return ErrInstallFailed
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// BootstrapError is returned by Load for every hard failure. errors.Is matches
// both the sentinel of its Kind and anything in the cause chain.
type BootstrapError struct {
	Kind Kind
	Path string
	Line int // 0 when the failure is not tied to a line
	Err  error
}

func (e *BootstrapError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("bootstrap environment from %s: %s at line %d: %v", e.Path, e.Kind, e.Line, e.Err)
	}
	return fmt.Sprintf("bootstrap environment from %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *BootstrapError) Unwrap() []error {
	errs := []error{e.Err}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

// Errno is the OS error code reported for this failure: the one carried by
// the cause if any, otherwise a fixed code per Kind.
func (e *BootstrapError) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	switch e.Kind {
	case KindTruncatedLine, KindInvalidEntry:
		return syscall.EINVAL
	case KindCapacityExceeded:
		return syscall.E2BIG
	case KindAllocationFailed:
		return syscall.ENOMEM
	}
	return 0
}

// classify maps a parse failure onto a BootstrapError.
func classify(path string, err error) *BootstrapError {
	be := &BootstrapError{Kind: KindReadFailed, Path: path, Err: err}

	var le *env.LineError
	if errors.As(err, &le) {
		be.Line = le.Line
	}

	switch {
	case errors.Is(err, env.ErrTruncated):
		be.Kind = KindTruncatedLine
	case errors.Is(err, env.ErrCapacity):
		be.Kind = KindCapacityExceeded
	case errors.Is(err, env.ErrEntryTooLarge):
		be.Kind = KindAllocationFailed
	case errors.Is(err, env.ErrInvalidEntry):
		be.Kind = KindInvalidEntry
	}
	return be
}
