package fix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/diag"
	"tidyls/internal/source"
)

func fixDiag(path, name string, offset, length int, text string) diag.Diagnostic {
	return diag.Diagnostic{
		Path:    path,
		Message: name + " message",
		Source:  diag.SourceClangTidy,
		Name:    name,
		Fix:     &diag.FixPayload{ReplacementText: text, Offset: offset, Length: length},
	}
}

func TestApplyEdits(t *testing.T) {
	content := []byte("int *p = 0; int *q = NULL;")
	out := ApplyEdits(content, []Edit{
		{Span: source.Span{Start: 9, End: 10}, NewText: "nullptr"},
		{Span: source.Span{Start: 21, End: 25}, NewText: "nullptr"},
		{Span: source.Span{Start: 0, End: 0}, NewText: "// fixed\n"},
	})
	assert.Equal(t, "// fixed\nint *p = nullptr; int *q = nullptr;", string(out))
	assert.Equal(t, "int *p = 0; int *q = NULL;", string(content), "input is not modified")
}

func TestFromPayloadUsesUnits(t *testing.T) {
	file := source.NewFile("a.cpp", []byte("s = \"é\"; x = 0;"))
	// UTF-16 offset 13 is the "0"; its byte offset is 14
	e := FromPayload(file, diag.FixPayload{ReplacementText: "1", Offset: 13, Length: 1})
	assert.Equal(t, uint32(14), e.Span.Start)
	assert.Equal(t, uint32(15), e.Span.End)

	r := RangeOf(file, diag.FixPayload{Offset: 13, Length: 1})
	assert.Equal(t, source.Position{Line: 0, Character: 13}, r.Start)
	assert.Equal(t, source.Position{Line: 0, Character: 14}, r.End)
}

func TestTitle(t *testing.T) {
	d := fixDiag("a.cpp", "modernize-use-nullptr", 0, 1, "nullptr")
	assert.Equal(t, "Apply fix: modernize-use-nullptr message (modernize-use-nullptr)", Title(&d))
	d.Fix.ReplacementText = ""
	assert.Equal(t, "Remove code (modernize-use-nullptr)", Title(&d))
	d.Fix = nil
	assert.Empty(t, Title(&d))
}

func TestApplyWritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cpp")
	require.NoError(t, os.WriteFile(path, []byte("int *p = 0;\nint *q = NULL;\n"), 0o600))

	fs := source.NewFileSet()
	_, err := fs.Load(path)
	require.NoError(t, err)

	diags := []diag.Diagnostic{
		fixDiag(path, "modernize-use-nullptr", 21, 4, "nullptr"),
		fixDiag(path, "modernize-use-nullptr", 9, 1, "nullptr"),
		fixDiag(path, "modernize-use-nullptr", 9, 1, "nullptr"),
		fixDiag(path, "readability-other", 9, 1, "NULL"),
		{Path: path, Source: diag.SourceClangTidy, Name: "no-fix"},
	}
	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "int *p = nullptr;\nint *q = nullptr;\n", string(got))

	assert.Len(t, res.Applied, 2)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "duplicate fix", res.Skipped[0].Reason)
	assert.Contains(t, res.Skipped[1].Reason, "conflicts with previously applied edits")
	require.Len(t, res.FileChanges, 1)
	assert.Equal(t, 2, res.FileChanges[0].EditCount)
}

func TestApplyDryRunAndModes(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("v.cpp", []byte("a b c"))
	diags := []diag.Diagnostic{
		fixDiag("v.cpp", "check-two", 4, 1, "C"),
		fixDiag("v.cpp", "check-one", 0, 1, "A"),
		fixDiag("v.cpp", "check-two", 2, 1, "B"),
	}

	res, err := Apply(fs, diags, ApplyOptions{Mode: ApplyModeOnce, DryRun: true})
	require.NoError(t, err)
	require.Len(t, res.FileChanges, 1)
	assert.Equal(t, "A b c", string(res.FileChanges[0].Content))

	res, err = Apply(fs, diags, ApplyOptions{Mode: ApplyModeCheck, Check: "check-two", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "a B C", string(res.FileChanges[0].Content))

	_, err = Apply(fs, diags, ApplyOptions{Mode: ApplyModeCheck, Check: "missing"})
	assert.ErrorIs(t, err, ErrNoFixes)
}

func TestApplyNoFixes(t *testing.T) {
	fs := source.NewFileSet()
	_, err := Apply(fs, []diag.Diagnostic{{Path: "x.cpp", Source: "other", Fix: &diag.FixPayload{}}}, ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoFixes)

	res, err := Apply(fs, []diag.Diagnostic{fixDiag("unloaded.cpp", "c", 0, 0, "")}, ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoFixes)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "not loaded")
}
