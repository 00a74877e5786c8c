package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tidyls/internal/trace"
)

var (
	// ErrLaunch is returned when the analyzer process cannot be started.
	ErrLaunch = errors.New("failed to launch analyzer")
	// ErrSuperseded is returned by a run that was killed because a newer
	// run started or Cancel was called. Its output must not be used.
	ErrSuperseded = errors.New("analyzer run superseded")
)

// killGrace is how long a terminated run may take to exit before its
// process group is killed outright.
const killGrace = 3 * time.Second

// Runner runs the analyzer with at most one process in flight. Starting a
// run terminates the previous one; nothing is queued. A Runner is safe for
// concurrent use.
type Runner struct {
	mu      sync.Mutex
	current *run
}

type run struct {
	cmd        *exec.Cmd
	done       chan struct{}
	superseded atomic.Bool
}

// New returns an idle Runner.
func New() *Runner {
	return &Runner{}
}

// Run starts the analyzer over files in workDir and returns its standard
// output. A non-zero exit status is not an error: the analyzer exits
// non-zero whenever it reports findings. Command line, working directory,
// stdout and stderr are logged to the tracer in ctx.
func (r *Runner) Run(ctx context.Context, files []string, workDir string, opts Options) (string, error) {
	exe := opts.executable()
	args := Args(files, opts)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(exe, args...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = sysProcAttr()

	r.mu.Lock()
	r.stopLocked()
	if err := ctx.Err(); err != nil {
		r.mu.Unlock()
		return "", err
	}

	trace.LogContext(ctx, trace.ScopeProcess, "process", "> %s %s", exe, strings.Join(args, " "))
	trace.LogContext(ctx, trace.ScopeProcess, "process", "Working Directory: %s", workDir)

	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		trace.Errorf(trace.FromContext(ctx), trace.ScopeProcess, "process", "launch %s: %v", exe, err)
		return "", fmt.Errorf("%w: %s: %w", ErrLaunch, exe, err)
	}
	cur := &run{cmd: cmd, done: make(chan struct{})}
	r.current = cur
	r.mu.Unlock()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(cur.done)
	}()

	var err error
	canceled := false
	select {
	case err = <-waitErr:
	case <-ctx.Done():
		canceled = true
		r.mu.Lock()
		if r.current == cur {
			r.current = nil
		}
		r.mu.Unlock()
		stop(cur)
		err = <-waitErr
	}

	r.mu.Lock()
	if r.current == cur {
		r.current = nil
	}
	r.mu.Unlock()

	trace.LogContext(ctx, trace.ScopeProcess, "stdout", "%s", stdout.String())
	trace.LogContext(ctx, trace.ScopeProcess, "stderr", "%s", stderr.String())

	switch {
	case canceled:
		return "", ctx.Err()
	case cur.superseded.Load():
		return "", ErrSuperseded
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return stdout.String(), fmt.Errorf("wait %s: %w", exe, err)
	}
	return stdout.String(), nil
}

// Cancel terminates the run in flight, if any. Calling it again, or with
// no run in flight, does nothing.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// stopLocked supersedes the current run and waits for it to exit.
func (r *Runner) stopLocked() {
	cur := r.current
	if cur == nil {
		return
	}
	r.current = nil
	select {
	case <-cur.done:
		return
	default:
	}
	cur.superseded.Store(true)
	stop(cur)
}

// stop terminates the process tree of cur and waits for it, escalating to
// a forced kill after killGrace. Errors from an already exited process are
// ignored.
func stop(cur *run) {
	if cur.cmd.Process == nil {
		return
	}
	_ = terminate(cur.cmd.Process) //nolint:errcheck
	select {
	case <-cur.done:
		return
	case <-time.After(killGrace):
	}
	_ = forceKill(cur.cmd.Process) //nolint:errcheck
	<-cur.done
}
