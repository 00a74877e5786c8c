package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/runner"
)

func TestKeyOfSeparatesFields(t *testing.T) {
	a := KeyOf("clang-tidy", []string{"ab", "c"}, "/w")
	b := KeyOf("clang-tidy", []string{"a", "bc"}, "/w")
	c := KeyOf("clang-tidy", []string{"ab", "c"}, "/w")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)

	withInput := KeyOf("clang-tidy", []string{"ab", "c"}, "/w", Input{Path: "a.cpp", Content: []byte("x")})
	changed := KeyOf("clang-tidy", []string{"ab", "c"}, "/w", Input{Path: "a.cpp", Content: []byte("y")})
	assert.NotEqual(t, a, withInput)
	assert.NotEqual(t, withInput, changed)
}

func TestDiskCachePutGet(t *testing.T) {
	c, err := OpenAt(t.TempDir())
	require.NoError(t, err)
	key := KeyOf("clang-tidy", nil, "/w")

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(key, "---\nDiagnostics: []\n...\n"))
	entry, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "---\nDiagnostics: []\n...\n", entry.Output)
	assert.NotZero(t, entry.Created)

	require.NoError(t, c.DropAll())
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	c, err := OpenAt(t.TempDir())
	require.NoError(t, err)
	key := KeyOf("x", nil, "")
	p := c.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte{0xc1}, 0o600))

	_, ok, err := c.Get(key)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNilDiskCache(t *testing.T) {
	var c *DiskCache
	assert.NoError(t, c.Put(Key{}, "x"))
	_, ok, err := c.Get(Key{})
	assert.NoError(t, err)
	assert.False(t, ok)
}

type countingRunner struct {
	calls    int
	out      string
	canceled bool
}

func (r *countingRunner) Run(context.Context, []string, string, runner.Options) (string, error) {
	r.calls++
	return r.out, nil
}

func (r *countingRunner) Cancel() { r.canceled = true }

func TestCachedRunner(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "a.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int x;\n"), 0o600))

	disk, err := OpenAt(t.TempDir())
	require.NoError(t, err)
	next := &countingRunner{out: "report"}
	r := Wrap(next, disk)
	ctx := context.Background()

	out, err := r.Run(ctx, []string{src}, work, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, "report", out)

	next.out = "changed"
	out, err = r.Run(ctx, []string{src}, work, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, "report", out, "replayed from cache")
	assert.Equal(t, 1, next.calls)

	require.NoError(t, os.WriteFile(src, []byte("int y;\n"), 0o600))
	out, err = r.Run(ctx, []string{src}, work, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, "changed", out)

	_, err = r.Run(ctx, []string{src}, work, runner.Options{Fix: true})
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls, "fix runs bypass the cache")

	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)

	r.Cancel()
	assert.True(t, next.canceled)
}

func TestCachedRunnerTracksCompilationDatabase(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "a.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int x;\n"), 0o600))
	db := filepath.Join(work, "build", "compile_commands.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(db), 0o755))
	require.NoError(t, os.WriteFile(db, []byte(`[{"file":"a.cpp","command":"cc -O0"}]`), 0o600))

	disk, err := OpenAt(t.TempDir())
	require.NoError(t, err)
	next := &countingRunner{out: "report"}
	r := Wrap(next, disk)
	ctx := context.Background()
	opts := runner.Options{BuildPath: "build"}

	_, err = r.Run(ctx, []string{src}, work, opts)
	require.NoError(t, err)
	_, err = r.Run(ctx, []string{src}, work, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	require.NoError(t, os.WriteFile(db, []byte(`[{"file":"a.cpp","command":"cc -O2"}]`), 0o600))
	next.out = "recompiled"
	out, err := r.Run(ctx, []string{src}, work, opts)
	require.NoError(t, err)
	assert.Equal(t, "recompiled", out)
	assert.Equal(t, 2, next.calls)
}

func TestCompilationDatabase(t *testing.T) {
	assert.Equal(t, filepath.Join("/w", "out", "compile_commands.json"), compilationDatabase("/w", "out"))
	assert.Equal(t, filepath.Join("/abs", "compile_commands.json"), compilationDatabase("/w", "/abs"))

	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "compile_commands.json"), []byte("[]"), 0o600))
	sub := filepath.Join(work, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	assert.Equal(t, filepath.Join(work, "compile_commands.json"), compilationDatabase(sub, ""))
}
