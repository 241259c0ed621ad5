package logging

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "text to stderr", config: Config{Level: "info", Format: "text", Output: "stderr", Component: "test"}},
		{name: "json to stdout", config: Config{Level: "debug", Format: "json", Output: "stdout", Component: "test"}},
		{name: "defaults", config: Config{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(tc.config)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Equal(t, tc.config.Component, l.Component())
			assert.NoError(t, l.Close())
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemonenv.log")
	l, err := New(Config{Format: "json", Output: path, Component: "file"})
	require.NoError(t, err)

	l.Event("read environment from /etc/daemonenv/environment")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"file"`)
	assert.Contains(t, string(data), `"service":"daemonenv"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{Level: "error"})

	l.Event("dropped")
	assert.Empty(t, buf.String())

	l.Failure(errors.New("boom"), "kept")
	assert.Contains(t, buf.String(), "kept")
}

type codedError struct{ code syscall.Errno }

func (e codedError) Error() string        { return "coded" }
func (e codedError) Errno() syscall.Errno { return e.code }

func TestErrno(t *testing.T) {
	assert.Zero(t, Errno(nil))
	assert.Zero(t, Errno(errors.New("plain")))
	assert.Equal(t, int(syscall.ENOENT), Errno(&fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}))
	assert.Equal(t, int(syscall.E2BIG), Errno(fmt.Errorf("wrapped: %w", codedError{syscall.E2BIG})))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Event("nothing")
	l.Failure(errors.New("nothing"), "nothing")
	assert.Nil(t, l.WithComponent("x"))
	assert.NoError(t, l.Close())
}
