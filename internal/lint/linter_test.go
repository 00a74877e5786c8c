package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/runner"
	"tidyls/internal/tidy"
	"tidyls/internal/trace"
)

type call struct {
	files   []string
	workDir string
	opts    runner.Options
}

type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	outputs  map[string]string // workDir -> output
	err      error
	canceled int
}

func (f *fakeRunner) Run(_ context.Context, files []string, workDir string, opts runner.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{files: files, workDir: workDir, opts: opts})
	if f.err != nil {
		return "", f.err
	}
	return f.outputs[workDir], nil
}

func (f *fakeRunner) Cancel() {
	f.mu.Lock()
	f.canceled++
	f.mu.Unlock()
}

func report(entries ...string) string {
	out := "---\nDiagnostics:\n"
	for _, e := range entries {
		out += e
	}
	return out
}

func entry(name, path string, offset int) string {
	return fmt.Sprintf("  - DiagnosticName: %s\n    DiagnosticMessage:\n      Message: %s found\n      FilePath: %s\n      FileOffset: %d\n", name, name, path, offset)
}

func doc(path, content string) Document {
	return Document{Path: path, Scheme: "file", LanguageID: LanguageCPP, Content: []byte(content)}
}

func TestCheckGates(t *testing.T) {
	l := New(&fakeRunner{})
	ws := tidy.NewWorkspace("/w")
	s := config.Default()
	s.Blacklist = []string{`^third_party/`, `[invalid`, `_gen\.cpp$`}

	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{name: "eligible", doc: doc("/w/src/a.cpp", ""), want: nil},
		{name: "language", doc: Document{Path: "/w/a.py", LanguageID: "python"}, want: ErrLanguage},
		{name: "scheme", doc: Document{Path: "/w/a.cpp", Scheme: "untitled", LanguageID: LanguageCPP}, want: ErrScheme},
		{name: "outside", doc: doc("/elsewhere/a.cpp", ""), want: ErrOutsideWorkspace},
		{name: "blacklisted dir", doc: doc("/w/third_party/x.cpp", ""), want: ErrBlacklisted},
		{name: "blacklisted suffix", doc: doc("/w/src/proto_gen.cpp", ""), want: ErrBlacklisted},
		{name: "empty scheme is file", doc: Document{Path: "/w/a.c", LanguageID: LanguageC}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Check(context.Background(), tt.doc, s, ws)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSkipped)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckLogsInvalidPattern(t *testing.T) {
	var buf bytes.Buffer
	ctx := trace.WithTracer(context.Background(), trace.NewStreamTracer(&buf, trace.LevelError, trace.FormatText))
	s := config.Default()
	s.Blacklist = []string{`(`}

	l := New(&fakeRunner{})
	require.NoError(t, l.Check(ctx, doc("/w/a.cpp", ""), s, tidy.NewWorkspace("/w")))
	assert.Contains(t, buf.String(), "invalid blacklist pattern")
}

func TestLint(t *testing.T) {
	content := "int *p = 0;\n"
	fr := &fakeRunner{outputs: map[string]string{
		"/w": "/w/src/a.cpp:1:10: error: use nullptr [modernize-use-nullptr]\n" +
			report(entry("modernize-use-nullptr", "/w/src/a.cpp", 9), entry("other", "/w/src/b.h", 0)),
	}}
	l := New(fr)
	s := config.Default()
	s.Checks = []string{"modernize-*"}
	s.BuildPath = "build"

	got, err := l.Lint(context.Background(), doc("/w/src/a.cpp", content), s, tidy.NewWorkspace("/w"), true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "modernize-use-nullptr", got[0].Name)
	assert.Equal(t, diag.SevError, got[0].Severity)
	assert.Equal(t, 0, got[0].Range.Start.Line)

	require.Len(t, fr.calls, 1)
	assert.Equal(t, []string{"/w/src/a.cpp"}, fr.calls[0].files)
	assert.Equal(t, "/w", fr.calls[0].workDir)
	assert.Equal(t, runner.Options{
		Executable:         "clang-tidy",
		Checks:             []string{"modernize-*"},
		CompilerArgs:       []string{},
		CompilerArgsBefore: []string{},
		BuildPath:          "build",
		Fix:                true,
	}, fr.calls[0].opts)
}

func TestLintSkippedDoesNotRun(t *testing.T) {
	fr := &fakeRunner{}
	_, err := New(fr).Lint(context.Background(), Document{Path: "/w/a.rs", LanguageID: "rust"}, config.Default(), tidy.NewWorkspace("/w"), false)
	assert.ErrorIs(t, err, ErrSkipped)
	assert.Empty(t, fr.calls)
}

func TestLintErrors(t *testing.T) {
	tests := []struct {
		name string
		fr   *fakeRunner
		want error
	}{
		{name: "launch", fr: &fakeRunner{err: fmt.Errorf("%w: boom", runner.ErrLaunch)}, want: runner.ErrLaunch},
		{name: "superseded", fr: &fakeRunner{err: runner.ErrSuperseded}, want: runner.ErrSuperseded},
		{name: "malformed", fr: &fakeRunner{outputs: map[string]string{"/w": "---\n[oops"}}, want: tidy.ErrMalformedReport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.fr).Lint(context.Background(), doc("/w/a.cpp", ""), config.Default(), tidy.NewWorkspace("/w"), false)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLintAllOneRunPerRoot(t *testing.T) {
	fr := &fakeRunner{outputs: map[string]string{
		"/w1": report(entry("c1", "/w1/a.cpp", 0), entry("c2", "/w1/b.cpp", 0)),
		"/w2": report(entry("c3", "/w2/c.cpp", 0)),
	}}
	ws := tidy.NewWorkspace("/w1", "/w2")
	docs := []Document{
		doc("/w1/a.cpp", "x\n"),
		doc("/w2/c.cpp", "y\n"),
		doc("/w1/b.cpp", "z\n"),
		{Path: "/w1/notes.txt", LanguageID: "plaintext"},
	}

	got, err := New(fr).LintAll(context.Background(), docs, config.Default(), ws)
	require.NoError(t, err)
	require.Len(t, fr.calls, 2)
	assert.Equal(t, []string{"/w1/a.cpp", "/w1/b.cpp"}, fr.calls[0].files)
	assert.Equal(t, []string{"/w2/c.cpp"}, fr.calls[1].files)
	assert.False(t, fr.calls[0].opts.Fix)

	require.Len(t, got, 3)
	assert.Equal(t, "c1", got["/w1/a.cpp"][0].Name)
	assert.Equal(t, "c2", got["/w1/b.cpp"][0].Name)
	assert.Equal(t, "c3", got["/w2/c.cpp"][0].Name)
}

func TestLintAllStopsWhenSuperseded(t *testing.T) {
	fr := &fakeRunner{err: runner.ErrSuperseded}
	ws := tidy.NewWorkspace("/w1", "/w2")
	got, err := New(fr).LintAll(context.Background(), []Document{doc("/w1/a.cpp", ""), doc("/w2/b.cpp", "")}, config.Default(), ws)
	assert.ErrorIs(t, err, runner.ErrSuperseded)
	assert.Empty(t, got)
	assert.Len(t, fr.calls, 1)
}

type recordingObserver struct {
	mu        sync.Mutex
	analyzing []string
	analyzed  []error
	collected map[string]int
}

func (o *recordingObserver) Analyzing(root string, _ []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.analyzing = append(o.analyzing, root)
}

func (o *recordingObserver) Analyzed(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.analyzed = append(o.analyzed, err)
}

func (o *recordingObserver) Collected(path string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.collected == nil {
		o.collected = make(map[string]int)
	}
	o.collected[path] = n
}

func TestLintBatchReportsProgress(t *testing.T) {
	fr := &fakeRunner{outputs: map[string]string{
		"/w": report(entry("c1", "/w/a.cpp", 0), entry("c2", "/w/a.cpp", 1), entry("c3", "/w/b.cpp", 0)),
	}}
	obs := &recordingObserver{}
	docs := []Document{doc("/w/a.cpp", "ab\n"), doc("/w/b.cpp", "c\n"), doc("/w/c.cpp", "d\n")}

	got, err := New(fr).LintBatch(context.Background(), docs, config.Default(), tidy.NewWorkspace("/w"), Batch{Fix: true, Jobs: 2, Observer: obs})
	require.NoError(t, err)
	require.Len(t, fr.calls, 1)
	assert.True(t, fr.calls[0].opts.Fix)
	assert.Len(t, got["/w/a.cpp"], 2)
	assert.Len(t, got["/w/b.cpp"], 1)
	assert.Empty(t, got["/w/c.cpp"])

	assert.Equal(t, []string{"/w"}, obs.analyzing)
	assert.Equal(t, []error{nil}, obs.analyzed)
	assert.Equal(t, map[string]int{"/w/a.cpp": 2, "/w/b.cpp": 1, "/w/c.cpp": 0}, obs.collected)
}

func TestLintBatchMalformedReport(t *testing.T) {
	fr := &fakeRunner{outputs: map[string]string{"/w": "---\nDiagnostics: [\n"}}
	obs := &recordingObserver{}
	got, err := New(fr).LintBatch(context.Background(), []Document{doc("/w/a.cpp", "")}, config.Default(), tidy.NewWorkspace("/w"), Batch{Observer: obs})
	assert.ErrorIs(t, err, tidy.ErrMalformedReport)
	assert.Empty(t, got)
	require.Len(t, obs.analyzed, 1)
	assert.ErrorIs(t, obs.analyzed[0], tidy.ErrMalformedReport)
	assert.Empty(t, obs.collected)
}

func TestCancelForwards(t *testing.T) {
	fr := &fakeRunner{}
	New(fr).Cancel()
	assert.Equal(t, 1, fr.canceled)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    string
	}{
		{"main.c", "int main(void) { return 0; }\n", LanguageC},
		{"main.cpp", "int main() {}\n", LanguageCPP},
		{"widget.cc", "", LanguageCPP},
		{"vector.hpp", "", LanguageCPP},
		{"README.md", "# hi\n", "markdown"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.path, []byte(tt.content)))
		})
	}
}
