// Package inspect checks a running process's environment against a vetted
// environment file.
package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v4/process"

	"daemonenv/internal/bootstrap"
	"daemonenv/internal/env"
)

// Report lists how a live environment drifted from the vetted one. Only names
// are reported; values never leave the inspected process.
type Report struct {
	PID        int      `json:"pid,omitempty" yaml:"pid,omitempty"`
	Missing    []string `json:"missing" yaml:"missing"`
	Unexpected []string `json:"unexpected" yaml:"unexpected"`
	Mismatched []string `json:"mismatched" yaml:"mismatched"`
}

// Clean reports whether the live environment matches exactly.
func (r Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0 && len(r.Mismatched) == 0
}

// FindByName returns the pids of processes whose executable base name equals
// name, case-insensitively.
func FindByName(name string) ([]int, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	want := strings.ToLower(filepath.Base(name))
	var pids []int
	for _, p := range procs {
		exe := strings.ToLower(filepath.Base(p.Executable()))
		if exe == want || strings.TrimSuffix(exe, ".exe") == want {
			pids = append(pids, p.Pid())
		}
	}
	slices.Sort(pids)
	return pids, nil
}

// ProcessEnviron reads the environment of another process. Reading a process
// owned by another user usually needs privileges.
func ProcessEnviron(ctx context.Context, pid int) ([]string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	environ, err := p.EnvironWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read environment of %d: %w", pid, err)
	}
	return environ, nil
}

// Compare loads the vetted file the way a daemon started with live would, and
// diffs the result against live. Bare names resolve against live itself, which
// is what the daemon inherited them from.
func Compare(path string, live []string, opts ...bootstrap.Option) (Report, error) {
	got := env.FromEnviron(live)
	space := env.NewMemorySpace(got)
	if _, err := bootstrap.New(space, opts...).Load(path); err != nil {
		return Report{}, err
	}
	return diff(space.Current(), got), nil
}

func diff(want, got *env.Table) Report {
	r := Report{Missing: []string{}, Unexpected: []string{}, Mismatched: []string{}}

	for _, name := range want.Names() {
		wv, _ := want.Lookup(name)
		gv, ok := got.Lookup(name)
		switch {
		case !ok:
			r.Missing = append(r.Missing, name)
		case gv != wv:
			r.Mismatched = append(r.Mismatched, name)
		}
	}
	for _, name := range got.Names() {
		if _, ok := want.Lookup(name); !ok {
			r.Unexpected = append(r.Unexpected, name)
		}
	}
	return r
}
