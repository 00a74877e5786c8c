package lint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/runner"
	"tidyls/internal/source"
	"tidyls/internal/tidy"
	"tidyls/internal/trace"
)

// Reasons a document is not linted. Check wraps them in ErrSkipped.
var (
	ErrSkipped          = errors.New("document skipped")
	ErrLanguage         = errors.New("language is not linted")
	ErrScheme           = errors.New("not a file")
	ErrOutsideWorkspace = errors.New("outside every workspace folder")
	ErrBlacklisted      = errors.New("matches blacklist")
)

// Runner runs the analyzer. *runner.Runner implements it.
type Runner interface {
	Run(ctx context.Context, files []string, workDir string, opts runner.Options) (string, error)
	Cancel()
}

// Document is a snapshot of a source file to lint.
type Document struct {
	Path       string
	Scheme     string // "file" for documents on disk; empty means file
	LanguageID string
	Content    []byte
}

// Linter applies the lint gates and runs the analyzer pipeline.
type Linter struct {
	runner  Runner
	regexps *lru.Cache[string, *regexp.Regexp]
}

// New returns a Linter driving r.
func New(r Runner) *Linter {
	cache, err := lru.New[string, *regexp.Regexp](256)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Linter{runner: r, regexps: cache}
}

// Cancel stops the analyzer run in flight.
func (l *Linter) Cancel() {
	l.runner.Cancel()
}

// Check reports why doc would not be linted, or nil.
func (l *Linter) Check(ctx context.Context, doc Document, s config.Settings, ws tidy.Workspace) error {
	if !slices.Contains(s.Languages, doc.LanguageID) {
		return fmt.Errorf("%w: %w: %q", ErrSkipped, ErrLanguage, doc.LanguageID)
	}
	if doc.Scheme != "" && doc.Scheme != "file" {
		return fmt.Errorf("%w: %w: %s", ErrSkipped, ErrScheme, doc.Scheme)
	}
	if !ws.Contains(doc.Path) {
		return fmt.Errorf("%w: %w", ErrSkipped, ErrOutsideWorkspace)
	}
	rel := ws.Relative(doc.Path)
	for _, pattern := range s.Blacklist {
		re, err := l.compile(pattern)
		if err != nil {
			trace.Errorf(trace.FromContext(ctx), trace.ScopeLint, "blacklist", "%v", err)
			continue
		}
		if re.MatchString(rel) {
			return fmt.Errorf("%w: %w: %s", ErrSkipped, ErrBlacklisted, pattern)
		}
	}
	return nil
}

func (l *Linter) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := l.regexps.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid blacklist pattern %q: %w", pattern, err)
	}
	l.regexps.Add(pattern, re)
	return re, nil
}

// Options converts settings into analyzer options.
func Options(s config.Settings, fix bool) runner.Options {
	return runner.Options{
		Executable:         s.Executable,
		Checks:             s.Checks,
		CompilerArgs:       s.CompilerArgs,
		CompilerArgsBefore: s.CompilerArgsBefore,
		BuildPath:          s.BuildPath,
		Fix:                fix,
	}
}

// Lint runs the analyzer on doc from its workspace root and returns the
// diagnostics that belong to it. Documents failing a gate return an error
// wrapping ErrSkipped.
func (l *Linter) Lint(ctx context.Context, doc Document, s config.Settings, ws tidy.Workspace, fix bool) ([]diag.Diagnostic, error) {
	if err := l.Check(ctx, doc, s, ws); err != nil {
		return nil, err
	}
	root, _ := ws.Root(doc.Path)

	ctx, span := trace.BeginContext(ctx, trace.ScopeLint, "lint")
	out, err := l.runner.Run(ctx, []string{doc.Path}, root, Options(s, fix))
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	diags, err := collect(ctx, out, doc, ws)
	span.WithExtra("diagnostics", strconv.Itoa(len(diags))).End(doc.Path)
	return diags, err
}

// LintAll runs the analyzer once per workspace root over every eligible
// document, one root after another, and returns diagnostics by path.
// Documents failing a gate are left out. Errors from individual roots are
// joined; results from other roots are still returned.
func (l *Linter) LintAll(ctx context.Context, docs []Document, s config.Settings, ws tidy.Workspace) (map[string][]diag.Diagnostic, error) {
	return l.LintBatch(ctx, docs, s, ws, Batch{})
}

// Observer follows the progress of LintBatch. Collected may be called
// from several goroutines at once.
type Observer interface {
	Analyzing(root string, files []string)
	Analyzed(root string, err error)
	Collected(path string, n int)
}

type nopObserver struct{}

func (nopObserver) Analyzing(string, []string) {}
func (nopObserver) Analyzed(string, error)     {}
func (nopObserver) Collected(string, int)      {}

// Batch configures LintBatch.
type Batch struct {
	Fix      bool
	Jobs     int // documents collected in parallel; 0 means GOMAXPROCS
	Observer Observer
}

// LintBatch is LintAll with progress reporting and optional fixing. Each
// report is projected onto its documents in parallel.
func (l *Linter) LintBatch(ctx context.Context, docs []Document, s config.Settings, ws tidy.Workspace, b Batch) (map[string][]diag.Diagnostic, error) {
	obs := b.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	jobs := b.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	byRoot := make(map[string][]Document)
	var roots []string
	for _, doc := range docs {
		if l.Check(ctx, doc, s, ws) != nil {
			continue
		}
		root, _ := ws.Root(doc.Path)
		if _, seen := byRoot[root]; !seen {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], doc)
	}

	results := make(map[string][]diag.Diagnostic)
	var errs []error
	for _, root := range roots {
		group := byRoot[root]
		files := make([]string, len(group))
		for i, doc := range group {
			files[i] = doc.Path
		}

		rctx, span := trace.BeginContext(ctx, trace.ScopeLint, "lint-workspace")
		obs.Analyzing(root, files)
		out, err := l.runner.Run(rctx, files, root, Options(s, b.Fix))
		if err == nil {
			var report *tidy.Report
			if report, err = parse(rctx, out); err == nil {
				collected := collectAll(report, group, ws, jobs, obs)
				for i, doc := range group {
					results[doc.Path] = collected[i]
				}
			}
		}
		obs.Analyzed(root, err)
		if err != nil {
			span.End(err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", root, err))
			if errors.Is(err, runner.ErrSuperseded) || ctx.Err() != nil {
				break
			}
			continue
		}
		span.WithExtra("documents", strconv.Itoa(len(group))).End(root)
	}
	return results, errors.Join(errs...)
}

func collectAll(report *tidy.Report, group []Document, ws tidy.Workspace, jobs int, obs Observer) [][]diag.Diagnostic {
	out := make([][]diag.Diagnostic, len(group))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, doc := range group {
		g.Go(func() error {
			out[i] = report.For(source.NewFile(doc.Path, doc.Content), ws)
			obs.Collected(doc.Path, len(out[i]))
			return nil
		})
	}
	// projection cannot fail
	_ = g.Wait()
	return out
}

func collect(ctx context.Context, out string, doc Document, ws tidy.Workspace) ([]diag.Diagnostic, error) {
	report, err := parse(ctx, out)
	if err != nil {
		return nil, err
	}
	return report.For(source.NewFile(doc.Path, doc.Content), ws), nil
}

// parse decodes analyzer output and backfills severities. A malformed
// report is logged with the raw output.
func parse(ctx context.Context, out string) (*tidy.Report, error) {
	report, err := tidy.ParseReport(out)
	if err != nil {
		t := trace.FromContext(ctx)
		trace.Errorf(t, trace.ScopeLint, "report", "%v", err)
		trace.Errorf(t, trace.ScopeLint, "report", "%s", out)
		return nil, err
	}
	tidy.ApplySeverities(report.Diagnostics, tidy.ExtractSeverities(out))
	trace.LogContext(ctx, trace.ScopeDiagnostic, "report", "%d diagnostics in report", len(report.Diagnostics))
	return report, nil
}
