//go:build unix

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/fix"
	"tidyls/internal/lint"
	"tidyls/internal/runner"
)

// fakeAnalyzer writes a shell script that prints a one-finding report
// about path.
func fakeAnalyzer(t *testing.T, path string) string {
	t.Helper()
	report := fmt.Sprintf(`---
MainSourceFile: '%[1]s'
Diagnostics:
  - DiagnosticName: modernize-use-nullptr
    Level: Warning
    DiagnosticMessage:
      Message: use nullptr
      FilePath: '%[1]s'
      FileOffset: 9
      Replacements:
        - FilePath: '%[1]s'
          Offset: 9
          Length: 4
          ReplacementText: nullptr
`, path)
	exe := filepath.Join(t.TempDir(), "clang-tidy.sh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\ncat <<'EOF'\n"+report+"EOF\n"), 0o755)) //nolint:gosec
	return exe
}

func newProject(t *testing.T) (dir, file string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, ".clang-tidy"), "Checks: modernize-*\n")
	file = filepath.Join(dir, "a.cpp")
	writeFile(t, file, "int *p = NULL;\n")
	writeFile(t, filepath.Join(dir, "notes.py"), "")
	return dir, file
}

func TestAnalyzeProjectsDiagnostics(t *testing.T) {
	dir, file := newProject(t)
	files, err := expandTargets([]string{dir, filepath.Join(dir, "notes.py")})
	require.NoError(t, err)

	s := config.Default()
	s.Executable = fakeAnalyzer(t, file)
	res, err := analyze(context.Background(), analyzeRequest{Files: files, Settings: s})
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, filepath.Join(dir, "notes.py"), res.Skipped[0].Path)
	assert.ErrorIs(t, res.Skipped[0].Reason, lint.ErrSkipped)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, file, d.Path)
	assert.Equal(t, diag.SevWarning, d.Severity)
	assert.Equal(t, "modernize-use-nullptr", d.Name)
	assert.Equal(t, 9, d.Range.Start.Character)
	require.NotNil(t, d.Fix)
	assert.Equal(t, `["nullptr",9,4]`, d.Fix.Code())
}

func TestAnalyzeThenApplyFixes(t *testing.T) {
	dir, file := newProject(t)
	s := config.Default()
	s.Executable = fakeAnalyzer(t, file)

	res, err := analyze(context.Background(), analyzeRequest{Files: []string{file}, Settings: s})
	require.NoError(t, err)
	applied, err := fix.Apply(res.FileSet, res.Diagnostics, fix.ApplyOptions{Mode: fix.ApplyModeAll})
	require.NoError(t, err)
	require.Len(t, applied.Applied, 1)

	got, err := os.ReadFile(filepath.Join(dir, "a.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "int *p = nullptr;\n", string(got))
}

func TestAnalyzeLaunchFailure(t *testing.T) {
	_, file := newProject(t)
	s := config.Default()
	s.Executable = filepath.Join(t.TempDir(), "missing-clang-tidy")

	res, err := analyze(context.Background(), analyzeRequest{Files: []string{file}, Settings: s})
	require.Error(t, err)
	assert.True(t, errors.Is(err, runner.ErrLaunch))
	assert.Empty(t, res.Diagnostics)
}
