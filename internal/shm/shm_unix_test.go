//go:build !windows

package shm

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestShmPublishAndRead_Success(t *testing.T) {
	payloads := [][]byte{
		[]byte("A"),
		[]byte("hello"),
		bytes.Repeat([]byte{1}, 128),
		bytes.Repeat([]byte{0xFF}, shmSize),
	}

	for i, p := range payloads {
		t.Run("case_"+strconv.Itoa(i), func(t *testing.T) {
			loc := LocationIn(t.TempDir())

			cleanup, err := publishBytes(loc, p)
			if err != nil {
				t.Fatalf("publish error: %v", err)
			}
			defer cleanup()

			got, err := readBytes(loc)
			if err != nil {
				t.Fatalf("client read error: %v", err)
			}
			if !bytes.Equal(got, p) {
				t.Fatalf("roundtrip mismatch: len got=%d len want=%d", len(got), len(p))
			}
		})
	}
}

func TestShmPublish_TooLarge(t *testing.T) {
	if _, err := publishBytes(LocationIn(t.TempDir()), make([]byte, shmSize+1)); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func TestShmPublish_OverwriteShorter(t *testing.T) {
	loc := LocationIn(t.TempDir())

	cleanup, err := publishBytes(loc, []byte("a much longer first payload"))
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	cleanup()

	cleanup, err = publishBytes(loc, []byte("short"))
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	defer cleanup()

	got, err := readBytes(loc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "short" {
		t.Fatalf("stale bytes after republish: %q", got)
	}
}

func TestCleanupRemovesFile_AndIsIdempotent(t *testing.T) {
	loc := LocationIn(t.TempDir())

	cleanup, err := publishBytes(loc, []byte("x"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	cleanup()
	cleanup()

	if _, err := os.Stat(string(loc)); !os.IsNotExist(err) {
		t.Fatalf("state file should be gone after cleanup, stat err=%v", err)
	}
	if _, err := readBytes(loc); err == nil {
		t.Fatalf("read after cleanup should fail")
	}
}

func TestLocate_PrefersRAMDir(t *testing.T) {
	dir := t.TempDir()
	old := ramDir
	ramDir = dir
	t.Cleanup(func() { ramDir = old })

	if got, want := Locate(), Location(filepath.Join(dir, stateFileName)); got != want {
		t.Fatalf("Locate() = %q, want %q", got, want)
	}
}

// A daemon resolves its location while TMPDIR is still set, then bootstrap
// may clear the environment before it publishes. Clients that still have
// TMPDIR must find it.
func TestLocate_SurvivesClearedTMPDIR(t *testing.T) {
	old := ramDir
	ramDir = filepath.Join(t.TempDir(), "no-such-dir")
	t.Cleanup(func() { ramDir = old })

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	loc := Locate()
	if want := LocationIn(tmp); loc != want {
		t.Fatalf("Locate() = %q, want %q", loc, want)
	}

	os.Unsetenv("TMPDIR")
	if Locate() == loc {
		t.Fatalf("expected a different location once TMPDIR is gone")
	}
	cleanup, err := PublishAt(loc, &DaemonState{Host: "127.0.0.1", Port: 4242, Token: "tok"})
	if err != nil {
		t.Fatalf("PublishAt: %v", err)
	}
	defer cleanup()

	t.Setenv("TMPDIR", tmp)
	got, err := ReadAt(Locate())
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if got.Port != 4242 || got.Host != "127.0.0.1" {
		t.Fatalf("ReadAt() = %+v", got)
	}
}
