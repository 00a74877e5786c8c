package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"tidyls/internal/project"
	"tidyls/internal/runner"
	"tidyls/internal/trace"
)

// Runner is the analyzer runner being cached. *runner.Runner implements it.
type Runner interface {
	Run(ctx context.Context, files []string, workDir string, opts runner.Options) (string, error)
	Cancel()
}

// CachedRunner replays analyzer output for invocations whose inputs have
// not changed. Runs with Fix set rewrite files and always go through.
type CachedRunner struct {
	next   Runner
	disk   *DiskCache
	hits   atomic.Int64
	misses atomic.Int64
}

// Wrap returns next with a disk cache in front. A nil disk disables caching.
func Wrap(next Runner, disk *DiskCache) *CachedRunner {
	return &CachedRunner{next: next, disk: disk}
}

// Run implements Runner.
func (r *CachedRunner) Run(ctx context.Context, files []string, workDir string, opts runner.Options) (string, error) {
	if r.disk == nil || opts.Fix {
		return r.next.Run(ctx, files, workDir, opts)
	}
	key, err := keyFor(files, workDir, opts)
	if err != nil {
		trace.LogContext(ctx, trace.ScopeProcess, "cache", "skip cache: %v", err)
		return r.next.Run(ctx, files, workDir, opts)
	}

	entry, ok, err := r.disk.Get(key)
	switch {
	case err != nil:
		trace.Errorf(trace.FromContext(ctx), trace.ScopeProcess, "cache", "%v", err)
	case ok:
		r.hits.Add(1)
		trace.LogContext(ctx, trace.ScopeProcess, "cache", "hit %s", key)
		return entry.Output, nil
	}
	r.misses.Add(1)

	out, err := r.next.Run(ctx, files, workDir, opts)
	if err != nil {
		return out, err
	}
	if err := r.disk.Put(key, out); err != nil {
		trace.Errorf(trace.FromContext(ctx), trace.ScopeProcess, "cache", "store %s: %v", key, err)
	}
	return out, nil
}

// Cancel implements Runner.
func (r *CachedRunner) Cancel() {
	r.next.Cancel()
}

// Stats returns the number of cache hits and misses so far.
func (r *CachedRunner) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

// keyFor hashes the invocation together with the content of every file,
// the nearest .clang-tidy above workDir and the compilation database.
// Included headers are not part of the key.
func keyFor(files []string, workDir string, opts runner.Options) (Key, error) {
	exe := opts.Executable
	if exe == "" {
		exe = runner.DefaultExecutable
	}
	inputs := make([]Input, 0, len(files)+2)
	for _, f := range files {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		// #nosec G304 -- analyzer inputs chosen by the caller
		content, err := os.ReadFile(p)
		if err != nil {
			return Key{}, fmt.Errorf("read %s: %w", f, err)
		}
		inputs = append(inputs, Input{Path: f, Content: content})
	}
	for _, extra := range []string{nearest(workDir, ".clang-tidy"), compilationDatabase(workDir, opts.BuildPath)} {
		if extra == "" {
			continue
		}
		// #nosec G304 -- analyzer configuration next to the inputs
		if content, err := os.ReadFile(extra); err == nil {
			inputs = append(inputs, Input{Path: extra, Content: content})
		}
	}
	return KeyOf(exe, runner.Args(files, opts), workDir, inputs...), nil
}

func nearest(dir, name string) string {
	path, ok, err := project.FindUp(dir, name)
	if err != nil || !ok {
		return ""
	}
	return path
}

// compilationDatabase returns the compile_commands.json the analyzer will
// read: the one in buildPath when set, else the nearest above workDir.
func compilationDatabase(workDir, buildPath string) string {
	const name = "compile_commands.json"
	if buildPath == "" {
		return nearest(workDir, name)
	}
	if !filepath.IsAbs(buildPath) {
		buildPath = filepath.Join(workDir, buildPath)
	}
	return filepath.Join(buildPath, name)
}
