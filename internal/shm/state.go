// Package shm publishes the state of a running daemon in a fixed-size shared
// page so that clients can find and authenticate to it.
package shm

import (
	"encoding/json"
	"fmt"
	"time"
)

// shmSize is the size of the shared page; published state must fit.
const shmSize = 4096

// Location identifies a published page: a file path on Unix, a mapping name
// on Windows.
type Location string

// DaemonState is what a running daemon publishes for clients to find it.
type DaemonState struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	EnvFile   string    `json:"env_file"`
	Entries   int       `json:"entries"`
	StartedAt time.Time `json:"started_at"`
}

// PublishAt encodes st and writes it at loc. Keep the returned cleanup until
// the daemon exits; calling it more than once is harmless.
func PublishAt(loc Location, st *DaemonState) (func(), error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode daemon state: %w", err)
	}
	return publishBytes(loc, b)
}

// ReadAt decodes the state published at loc.
func ReadAt(loc Location) (*DaemonState, error) {
	b, err := readBytes(loc)
	if err != nil {
		return nil, err
	}
	var st DaemonState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode daemon state: %w", err)
	}
	if st.Port <= 0 || st.Token == "" {
		return nil, fmt.Errorf("invalid daemon state at %s", loc)
	}
	return &st, nil
}

func trimZeros(page []byte) []byte {
	n := len(page)
	for n > 0 && page[n-1] == 0 {
		n--
	}
	out := make([]byte, n)
	copy(out, page[:n])
	return out
}
