package inspect

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daemonenv/internal/bootstrap"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environment")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCompare_Clean(t *testing.T) {
	path := writeFile(t, "# vetted\nPATH=/usr/bin\nHOME\n")

	r, err := Compare(path, []string{"PATH=/usr/bin", "HOME=/var/lib/daemon"})
	require.NoError(t, err)
	assert.True(t, r.Clean(), "%+v", r)
}

func TestCompare_Drift(t *testing.T) {
	path := writeFile(t, "PATH=/usr/bin\nLANG=C\nTZ=UTC\n")

	r, err := Compare(path, []string{"PATH=/tmp/evil:/usr/bin", "TZ=UTC", "LD_PRELOAD=/evil.so"})
	require.NoError(t, err)
	assert.False(t, r.Clean())
	assert.Equal(t, []string{"LANG"}, r.Missing)
	assert.Equal(t, []string{"PATH"}, r.Mismatched)
	assert.Equal(t, []string{"LD_PRELOAD"}, r.Unexpected)
}

func TestCompare_MissingFileExpectsEmpty(t *testing.T) {
	r, err := Compare(filepath.Join(t.TempDir(), "nope"), []string{"A=1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, r.Unexpected)
}

func TestCompare_InvalidFile(t *testing.T) {
	_, err := Compare(writeFile(t, "A=1\nB=2\n"), nil, bootstrap.WithCapacity(1))
	assert.ErrorIs(t, err, bootstrap.ErrCapacityExceeded)
}

func TestFindByName_FindsSelf(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	pids, err := FindByName(exe)
	require.NoError(t, err)
	assert.Contains(t, pids, os.Getpid())
}

func TestProcessEnviron_Self(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("reading a process environment is only reliable on linux")
	}
	environ, err := ProcessEnviron(context.Background(), os.Getpid())
	require.NoError(t, err)
	// /proc/self/environ is the environment the process started with.
	if path, ok := os.LookupEnv("PATH"); ok {
		assert.Contains(t, environ, "PATH="+path)
	}
}
