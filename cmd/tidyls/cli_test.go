package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/diagfmt"
	"tidyls/internal/fix"
	"tidyls/internal/source"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestExpandTargets(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.cpp", "b.c", "sub/c.cc", "x.h", "notes.txt"} {
		writeFile(t, filepath.Join(root, rel), "")
	}

	got, err := expandTargets([]string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.cpp"),
		filepath.Join(root, "b.c"),
		filepath.Join(root, "sub", "c.cc"),
	}, got)

	got, err = expandTargets([]string{filepath.Join(root, "*.h"), filepath.Join(root, "a.cpp"), root})
	require.NoError(t, err)
	assert.Contains(t, got, filepath.Join(root, "x.h"))
	assert.Len(t, got, 4, "duplicates are dropped")

	_, err = expandTargets([]string{filepath.Join(root, "missing.cpp")})
	assert.Error(t, err)
	_, err = expandTargets([]string{filepath.Join(root, "*.rs")})
	assert.Error(t, err)
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := readUIMode("sometimes")
	assert.Error(t, err)
	assert.True(t, shouldUseTUI(uiModeOn, true))
	assert.False(t, shouldUseTUI(uiModeOff, false))
}

func TestFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addAnalyzerFlags(cmd)
	require.NoError(t, cmd.Flags().Set("executable", "clang-tidy-18"))
	require.NoError(t, cmd.Flags().Set("checks", "modernize-*,-modernize-use-trailing-return-type"))
	require.NoError(t, cmd.Flags().Set("extra-arg", "-std=c++20"))
	require.NoError(t, cmd.Flags().Set("extra-arg", "-Wall"))

	o, err := flagOverrides(cmd)
	require.NoError(t, err)
	s := config.Default().Apply(o)
	assert.Equal(t, "clang-tidy-18", s.Executable)
	assert.Equal(t, []string{"modernize-*", "-modernize-use-trailing-return-type"}, s.Checks)
	assert.Equal(t, []string{"-std=c++20", "-Wall"}, s.CompilerArgs)
	assert.Empty(t, s.CompilerArgsBefore)
	assert.Nil(t, o.BuildPath, "unset flags leave settings alone")
}

func TestLoadSettingsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, "executable = \"ct-file\"\nbuild_path = \"out\"\n")

	cmd := &cobra.Command{Use: "test"}
	addAnalyzerFlags(cmd)
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("build-path", "build"))

	s, used, err := loadSettings(cmd, dir)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "build", s.BuildPath)
	if os.Getenv(config.EnvExecutable) == "" {
		assert.Equal(t, "ct-file", s.Executable)
	}
}

func TestBuildBag(t *testing.T) {
	diags := []diag.Diagnostic{
		{Path: "/w/b.cpp", Severity: diag.SevWarning, Name: "w"},
		{Path: "/w/a.cpp", Severity: diag.SevError, Name: "e"},
		{Path: "/w/a.cpp", Severity: diag.SevError, Name: "e"},
		{Path: "/w/a.cpp", Severity: diag.SevInformation, Name: "i"},
	}

	bag := buildBag(diags, checkOptions{})
	require.Equal(t, 3, bag.Len(), "duplicates are dropped")
	assert.Equal(t, "/w/a.cpp", bag.Items()[0].Path)

	bag = buildBag(diags, checkOptions{noWarnings: true})
	assert.Equal(t, 1, bag.Len())

	bag = buildBag(diags, checkOptions{warningsAsErrors: true})
	assert.Equal(t, 2, bag.Count(diag.SevError))

	bag = buildBag(diags, checkOptions{maxDiagnostics: 2})
	assert.Equal(t, 2, bag.Len())
}

func TestWriteDiagnosticsFormats(t *testing.T) {
	fs := source.NewFileSet()
	fs.Add("/w/a.cpp", []byte("int *p = NULL;\n"), 0)
	d := diag.Diagnostic{
		Path:     "/w/a.cpp",
		Range:    source.Range{Start: source.Position{Line: 0, Character: 9}, End: source.Position{Line: 0, Character: 13}},
		Message:  "use nullptr",
		Severity: diag.SevWarning,
		Source:   diag.SourceClangTidy,
		Name:     "modernize-use-nullptr",
		Fix:      &diag.FixPayload{ReplacementText: "nullptr", Offset: 9, Length: 4},
	}
	bag := buildBag([]diag.Diagnostic{d}, checkOptions{})
	res := analysis{FileSet: fs}

	var out bytes.Buffer
	require.NoError(t, writeDiagnostics(&out, bag, res, checkOptions{format: diagfmt.FormatShort, pathMode: diagfmt.PathModeAbsolute}, nil))
	assert.Equal(t, "/w/a.cpp:1:10: warning: use nullptr [modernize-use-nullptr]\n", out.String())

	for _, format := range []string{"pretty", "json", "sarif"} {
		out.Reset()
		require.NoError(t, writeDiagnostics(&out, bag, res, checkOptions{format: diagfmt.Format(format)}, []string{"a.cpp"}), format)
		assert.Contains(t, out.String(), "modernize-use-nullptr", format)
	}
}

func TestHandleApplyResult(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, handleApplyResult(&out, &fix.ApplyResult{}, fix.ErrNoFixes, false))
	assert.Equal(t, "No applicable fixes found.\n", out.String())

	out.Reset()
	res := &fix.ApplyResult{
		Applied:     []fix.AppliedFix{{ID: "modernize-use-nullptr@1:10#0", Title: "Apply fix: use nullptr (modernize-use-nullptr)", Path: "/w/a.cpp"}},
		FileChanges: []fix.FileChange{{Path: "/w/a.cpp", EditCount: 1}},
		Skipped:     []fix.SkippedFix{{ID: "x", Reason: "conflicts with another fix"}},
	}
	require.NoError(t, handleApplyResult(&out, res, nil, true))
	assert.Contains(t, out.String(), "Would apply 1 fix(es):")
	assert.Contains(t, out.String(), "Files that would change:")
	assert.Contains(t, out.String(), "[x]: conflicts with another fix")
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	cmd := &cobra.Command{Use: "init"}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runInit(cmd, []string{dir}))
	assert.Contains(t, out.String(), "Created")
	_, err := os.Stat(filepath.Join(dir, config.FileName))
	require.NoError(t, err)

	err = runInit(cmd, []string{dir})
	assert.ErrorContains(t, err, "already initialized")
}

func TestRenderVersionJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderVersionJSON(&out))

	var payload versionPayload
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, "tidyls", payload.Tool)
	assert.NotEmpty(t, payload.Version)
	assert.Equal(t, runtime.Version(), payload.Go)
}
