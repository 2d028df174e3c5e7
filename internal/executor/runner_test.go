package executor

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShellRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	r := NewRunner(nil)
	r.Interpreter = "/bin/sh"
	r.Suffix = ".sh"
	r.TempDir = dir
	return r, dir
}

func assertNoScriptsLeft(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary script must be removed")
}

func TestRun_Success(t *testing.T) {
	r, dir := newShellRunner(t)

	res := r.Run(context.Background(), "echo OK\n", 5*time.Second)

	assert.True(t, res.Success)
	assert.Contains(t, res.Stdout, "OK")
	assert.Empty(t, res.Stderr)
	assert.Empty(t, res.Error)
	assert.Equal(t, Completed{ExitCode: 0}, res.Outcome)
	assertNoScriptsLeft(t, dir)
}

func TestRun_NonZeroExit(t *testing.T) {
	r, dir := newShellRunner(t)

	res := r.Run(context.Background(), "echo partial\necho boom >&2\nexit 3\n", 5*time.Second)

	assert.False(t, res.Success)
	assert.Equal(t, "partial\n", res.Stdout)
	assert.Equal(t, "boom\n", res.Stderr)
	assert.Empty(t, res.Error)
	assert.Equal(t, Completed{ExitCode: 3}, res.Outcome)
	assertNoScriptsLeft(t, dir)
}

func TestRun_Timeout(t *testing.T) {
	r, dir := newShellRunner(t)

	res := r.Run(context.Background(), "echo started\nsleep 10\n", 200*time.Millisecond)

	assert.False(t, res.Success)
	assert.Empty(t, res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, TimeoutMessage, res.Error)
	assert.Equal(t, TimedOut{}, res.Outcome)
	assertNoScriptsLeft(t, dir)
}

func TestRun_TimeoutKillsChildren(t *testing.T) {
	r, dir := newShellRunner(t)

	// The background sleep keeps the output pipe open unless the whole
	// process group is killed.
	start := time.Now()
	res := r.Run(context.Background(), "sleep 10 &\nsleep 10\n", 200*time.Millisecond)

	assert.Equal(t, TimedOut{}, res.Outcome)
	assert.Less(t, time.Since(start), killGrace)
	assertNoScriptsLeft(t, dir)
}

func TestRun_CallerCancel(t *testing.T) {
	r, dir := newShellRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := r.Run(ctx, "sleep 10\n", time.Minute)

	assert.False(t, res.Success)
	assert.Equal(t, TimedOut{}, res.Outcome)
	assertNoScriptsLeft(t, dir)
}

func TestRun_LaunchFailure(t *testing.T) {
	r, dir := newShellRunner(t)
	r.Interpreter = "/nonexistent/interpreter"

	res := r.Run(context.Background(), "echo OK\n", time.Second)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	require.IsType(t, LaunchFailed{}, res.Outcome)
	assert.Equal(t, res.Error, res.Outcome.(LaunchFailed).Reason)
	assertNoScriptsLeft(t, dir)
}

func TestRun_UnwritableTempDir(t *testing.T) {
	r, _ := newShellRunner(t)
	r.TempDir = "/nonexistent/dir"

	res := r.Run(context.Background(), "echo OK\n", time.Second)

	assert.False(t, res.Success)
	assert.IsType(t, LaunchFailed{}, res.Outcome)
}

func TestRun_DefaultTimeout(t *testing.T) {
	r, _ := newShellRunner(t)
	r.Timeout = 150 * time.Millisecond

	res := r.Run(context.Background(), "sleep 10\n", 0)

	assert.Equal(t, TimedOut{}, res.Outcome)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(nil)

	assert.Equal(t, DefaultInterpreter, r.Interpreter)
	assert.Equal(t, DefaultSuffix, r.Suffix)
	assert.Equal(t, DefaultTimeout, r.Timeout)
}
