package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ".clang-tidy"))
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok, err := FindUp(nested, ".clang-tidy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, ".clang-tidy"), path)

	_, ok, err = FindUp(nested, "no-such-marker-here")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindRootPrefersConfig(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ".git"))
	sub := filepath.Join(root, "lib")
	touch(t, filepath.Join(sub, ".tidyls.toml"))
	file := filepath.Join(sub, "src", "a.cpp")
	touch(t, file)

	got, ok, err := FindRoot(file)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sub, got)
}

func TestRootOrSelf(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.cpp")
	touch(t, file)

	got, err := RootOrSelf(file)
	require.NoError(t, err)
	// a marker above the temp dir would win; either way the result contains the file
	rel, err := filepath.Rel(got, file)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}
