package server

import (
	"time"

	"daemonenv/internal/env"
)

// Status describes the environment the daemon bootstrapped. It is fixed once
// the daemon starts serving.
type Status struct {
	PID         int       `json:"pid"`
	Source      string    `json:"source"`
	Entries     int       `json:"entries"`
	Names       []string  `json:"names"`
	InstalledAt time.Time `json:"installed_at"`
}

// NewStatus captures names only; values are never served.
func NewStatus(pid int, source string, table *env.Table) Status {
	names := table.Names()
	if names == nil {
		names = []string{}
	}
	return Status{
		PID:         pid,
		Source:      source,
		Entries:     len(names),
		Names:       names,
		InstalledAt: time.Now().UTC(),
	}
}
