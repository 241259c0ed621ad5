package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"daemonenv/internal/bootstrap"
	"daemonenv/internal/env"
	"daemonenv/internal/inspect"
)

var sample = []env.Entry{
	{Name: "HOME", Value: "/root"},
	{Name: "GREETING", Value: "hello world"},
	{Name: "EMPTY", Value: ""},
}

func TestQuoteForSh(t *testing.T) {
	assert.Equal(t, "''", quoteForSh(""))
	assert.Equal(t, "/usr/bin", quoteForSh("/usr/bin"))
	assert.Equal(t, "'a b'", quoteForSh("a b"))
	assert.Equal(t, `'it'\''s'`, quoteForSh("it's"))
	assert.Equal(t, "'$HOME'", quoteForSh("$HOME"))
}

func TestFilterEntries(t *testing.T) {
	got := filterEntries(sample, []string{" HOME ", "EMPTY"}, []string{"EMPTY"})
	assert.Equal(t, []env.Entry{{Name: "HOME", Value: "/root"}}, got)

	assert.Len(t, filterEntries(sample, nil, nil), 3)
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEntries(&buf, sample, "sh"))
	assert.Equal(t, "export HOME=/root\nexport GREETING='hello world'\nexport EMPTY=''\n", buf.String())

	buf.Reset()
	require.NoError(t, printEntries(&buf, sample, "raw"))
	assert.Equal(t, "HOME=/root\nGREETING=hello world\nEMPTY=\n", buf.String())

	buf.Reset()
	require.NoError(t, printEntries(&buf, sample, "json"))
	var fromJSON map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, "hello world", fromJSON["GREETING"])

	buf.Reset()
	require.NoError(t, printEntries(&buf, sample, "yaml"))
	var fromYAML map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "/root", fromYAML["HOME"])
	assert.Contains(t, fromYAML, "EMPTY")

	assert.Error(t, printEntries(&buf, sample, "xml"))
}

func TestPrintDrift(t *testing.T) {
	var buf bytes.Buffer
	printDrift(&buf, inspect.Report{PID: 9})
	assert.Equal(t, "pid 9: clean\n", buf.String())

	buf.Reset()
	printDrift(&buf, inspect.Report{PID: 9, Missing: []string{"A"}, Mismatched: []string{"B"}})
	assert.Contains(t, buf.String(), "pid 9: drifted")
	assert.Contains(t, buf.String(), "- A (missing)")
	assert.Contains(t, buf.String(), "~ B (different value)")
}

func TestExitError(t *testing.T) {
	err := error(&exitError{code: 2})
	assert.Equal(t, "exit status 2", err.Error())

	wrapped := &exitError{code: 1, err: bootstrap.ErrTruncatedLine}
	assert.True(t, errors.Is(wrapped, bootstrap.ErrTruncatedLine))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(&exitError{code: 2}))
	assert.Equal(t, 143, exitCode(&exitError{code: 143}))
	assert.Equal(t, 1, exitCode(&exitError{code: -1}))
}

func TestCheckCommand_FailureClosesFileLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "daemonenv.log")
	t.Setenv("DAEMONENV_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("DAEMONENV_LOG_OUTPUT", logPath)
	path := filepath.Join(dir, "environment")
	require.NoError(t, os.WriteFile(path, []byte("=nameless\n"), 0o600))

	cli := &CLI{}
	root := NewRootCommand(cli)
	root.SetArgs([]string{"check", path})
	require.Error(t, root.Execute())

	require.NotNil(t, cli.log)
	require.NoError(t, cli.log.Close())
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "could not set up the environment")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DAEMONENV_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cli := &CLI{}
	root := NewRootCommand(cli)
	t.Cleanup(func() { _ = cli.log.Close() })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("DAEMONENV_TEST_INHERITED", "from-parent")
	path := filepath.Join(t.TempDir(), "environment")
	require.NoError(t, os.WriteFile(path, []byte("# vetted\nPATH=/usr/bin\nDAEMONENV_TEST_INHERITED\nABSENT_NAME\n"), 0o600))

	out, err := execute(t, "check", "--format", "raw", path)
	require.NoError(t, err)
	assert.Equal(t, "PATH=/usr/bin\nDAEMONENV_TEST_INHERITED=from-parent\n", out)

	// The process environment is untouched.
	assert.Equal(t, "from-parent", os.Getenv("DAEMONENV_TEST_INHERITED"))
}

func TestCheckCommand_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "environment")
	require.NoError(t, os.WriteFile(path, []byte("=nameless\n"), 0o600))

	_, err := execute(t, "check", path)
	assert.ErrorIs(t, err, bootstrap.ErrInvalidEntry)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Version: dev\n", out)
}
