package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/diag"
	"tidyls/internal/source"
)

func TestPrettySnippetAndCaret(t *testing.T) {
	var buf bytes.Buffer
	err := Pretty(&buf, sampleBag(nullptrDiag()), sampleSet(), PrettyOpts{})
	require.NoError(t, err)

	want := "src/a.cpp:2:12: warning: use nullptr [modernize-use-nullptr]\n" +
		" 2 |   int *p = NULL;\n" +
		"   |            ^~~~\n"
	assert.Equal(t, want, buf.String())
}

func TestPrettyWholeLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(lineDiag()), sampleSet(), PrettyOpts{}))

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "src/a.cpp:1:1: error: function 'main' is too complex [readability-function-size]", lines[0])
	assert.Equal(t, " 1 | int main() {", lines[1])
	assert.Equal(t, "   | ^~~~~~~~~~~~", lines[2])
}

func TestPrettyWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("w.cpp", []byte("s = \"日本\"; bad();\n"))
	d := diag.Diagnostic{
		Path:     "w.cpp",
		Range:    source.Range{Start: source.Position{Line: 0, Character: 10}, End: source.Position{Line: 0, Character: 13}},
		Message:  "bad call",
		Severity: diag.SevInformation,
	}

	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(d), fs, PrettyOpts{}))
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "w.cpp:1:11: info: bad call", lines[0])
	assert.Equal(t, "   | "+strings.Repeat(" ", 12)+"^~~", lines[2])
}

func TestPrettyShowFixes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(nullptrDiag()), sampleSet(), PrettyOpts{ShowFixes: true}))

	out := buf.String()
	assert.Contains(t, out, "   = fix: replace with `nullptr`\n")
	assert.Contains(t, out, "     -   int *p = NULL;\n")
	assert.Contains(t, out, "     +   int *p = nullptr;\n")
}

func TestPrettyWithoutSource(t *testing.T) {
	d := nullptrDiag()
	d.Path = "missing.cpp"

	var buf bytes.Buffer
	require.NoError(t, Pretty(&buf, sampleBag(d), sampleSet(), PrettyOpts{ShowFixes: true}))
	assert.Equal(t, "missing.cpp:2:12: warning: use nullptr [modernize-use-nullptr]\n", buf.String())
}

func TestPrettySummary(t *testing.T) {
	var buf bytes.Buffer
	bag := sampleBag(nullptrDiag(), nullptrDiag(), lineDiag())
	require.NoError(t, Pretty(&buf, bag, sampleSet(), PrettyOpts{Summary: true}))

	out := buf.String()
	assert.Contains(t, out, "modernize-use-nullptr")
	assert.Contains(t, out, "readability-function-size")
	assert.Contains(t, out, "1 error, 2 warning")
}

func TestPrettyColor(t *testing.T) {
	var plain, colored bytes.Buffer
	require.NoError(t, Pretty(&plain, sampleBag(nullptrDiag()), sampleSet(), PrettyOpts{}))
	require.NoError(t, Pretty(&colored, sampleBag(nullptrDiag()), sampleSet(), PrettyOpts{Color: true}))

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Short(&buf, sampleBag(nullptrDiag(), lineDiag()), ShortOpts{}))
	assert.Equal(t,
		"src/a.cpp:2:12: warning: use nullptr [modernize-use-nullptr]\n"+
			"src/a.cpp:1:1: error: function 'main' is too complex [readability-function-size]\n",
		buf.String())
}

func TestFormatPath(t *testing.T) {
	assert.Equal(t, "src/a.cpp", FormatPath("/w/src/a.cpp", PathModeRelative, "/w"))
	assert.Equal(t, "src/a.cpp", FormatPath("/w/src/a.cpp", PathModeAuto, "/w"))
	assert.Equal(t, "/other/a.cpp", FormatPath("/other/a.cpp", PathModeAuto, "/w"))
	assert.Equal(t, "../other/a.cpp", FormatPath("/other/a.cpp", PathModeRelative, "/w"))
	assert.Equal(t, "a.cpp", FormatPath("/w/src/a.cpp", PathModeBasename, ""))
	assert.Equal(t, "/w/src/a.cpp", FormatPath("/w/src/a.cpp", PathModeAbsolute, ""))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SARIF")
	require.NoError(t, err)
	assert.Equal(t, FormatSarif, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPretty, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
