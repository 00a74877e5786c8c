//go:build unix

package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/trace"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)) //nolint:gosec
	return path
}

func TestRunReturnsStdoutOnNonZeroExit(t *testing.T) {
	exe := writeScript(t, "tidy.sh", "printf '%s\\n' \"$@\"\necho oops >&2\nexit 1\n")
	dir := t.TempDir()

	var logs bytes.Buffer
	ctx := trace.WithTracer(context.Background(), trace.NewStreamTracer(&logs, trace.LevelDetail, trace.FormatText))

	out, err := New().Run(ctx, []string{"a.cpp"}, dir, Options{Executable: exe, Checks: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "a.cpp\n--export-fixes=-\n--checks=x\n", out)

	log := logs.String()
	assert.Contains(t, log, "> "+exe+" a.cpp --export-fixes=- --checks=x")
	assert.Contains(t, log, "Working Directory: "+dir)
	assert.Contains(t, log, "oops")
}

func TestRunUsesWorkingDirectory(t *testing.T) {
	exe := writeScript(t, "pwd.sh", "pwd\n")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	out, err := New().Run(context.Background(), nil, dir, Options{Executable: exe})
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestRunLaunchFailure(t *testing.T) {
	_, err := New().Run(context.Background(), []string{"a.cpp"}, t.TempDir(), Options{
		Executable: filepath.Join(t.TempDir(), "missing-clang-tidy"),
	})
	require.ErrorIs(t, err, ErrLaunch)
}

func TestRunSupersedesPrevious(t *testing.T) {
	slow := writeScript(t, "slow.sh", "sleep 30\necho first\n")
	fast := writeScript(t, "fast.sh", "echo second\n")
	r := New()

	type result struct {
		out string
		err error
	}
	first := make(chan result, 1)
	go func() {
		out, err := r.Run(context.Background(), []string{"a.cpp"}, t.TempDir(), Options{Executable: slow})
		first <- result{out, err}
	}()
	require.Eventually(t, r.Running, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	out, err := r.Run(context.Background(), []string{"a.cpp"}, t.TempDir(), Options{Executable: fast})
	require.NoError(t, err)
	assert.Equal(t, "second\n", out)

	select {
	case res := <-first:
		require.ErrorIs(t, res.err, ErrSuperseded)
		assert.Empty(t, res.out)
	case <-time.After(10 * time.Second):
		t.Fatal("first run was not terminated")
	}
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.False(t, r.Running())
}

func TestCancel(t *testing.T) {
	slow := writeScript(t, "slow.sh", "sleep 30\n")
	r := New()
	r.Cancel() // nothing in flight

	errs := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), nil, t.TempDir(), Options{Executable: slow})
		errs <- err
	}()
	require.Eventually(t, r.Running, 5*time.Second, 10*time.Millisecond)

	r.Cancel()
	r.Cancel()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(10 * time.Second):
		t.Fatal("run was not cancelled")
	}
}

func TestRunContextCancel(t *testing.T) {
	slow := writeScript(t, "slow.sh", "sleep 30\n")
	r := New()
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, nil, t.TempDir(), Options{Executable: slow})
		errs <- err
	}()
	require.Eventually(t, r.Running, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run ignored context cancellation")
	}
	assert.False(t, r.Running())
}

func TestTerminateExitedProcess(t *testing.T) {
	exe := writeScript(t, "quick.sh", "exit 0\n")
	r := New()
	_, err := r.Run(context.Background(), nil, t.TempDir(), Options{Executable: exe})
	require.NoError(t, err)
	assert.NotPanics(t, r.Cancel)
}
