package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"tidyls/internal/cache"
	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/lint"
	"tidyls/internal/observ"
	"tidyls/internal/project"
	"tidyls/internal/runner"
	"tidyls/internal/source"
	"tidyls/internal/tidy"
	"tidyls/internal/trace"
	"tidyls/internal/ui"
)

// sourcePattern selects translation units when a directory is given.
// Headers are only analyzed when named explicitly.
const sourcePattern = "**/*.{c,cc,cpp,cxx,c++,m,mm}"

type analyzeRequest struct {
	Files    []string
	Settings config.Settings
	Fix      bool
	Jobs     int
	Cache    bool
	Clear    bool // drop cached results before the run
	Timer    *observ.Timer
	Progress ui.Sink
}

type skippedFile struct {
	Path   string
	Reason error
}

type analysis struct {
	FileSet     *source.FileSet
	Workspace   tidy.Workspace
	Diagnostics []diag.Diagnostic
	Skipped     []skippedFile
	CacheHits   int64
	CacheMisses int64
}

// expandTargets turns command-line targets into absolute file paths:
// directories are searched for sources, glob patterns are expanded and
// plain paths are kept. The result is sorted and free of duplicates.
func expandTargets(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		switch {
		case err == nil && info.IsDir():
			matches, err := doublestar.Glob(os.DirFS(target), sourcePattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", target, err)
			}
			for _, m := range matches {
				files = append(files, filepath.Join(target, filepath.FromSlash(m)))
			}
		case err == nil:
			files = append(files, target)
		case strings.ContainsAny(target, "*?[{"):
			matches, err := doublestar.FilepathGlob(target, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", target, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%s: no files match", target)
			}
			files = append(files, matches...)
		default:
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
	}
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		files[i] = abs
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// workspaceFor groups files under their project roots.
func workspaceFor(files []string) (tidy.Workspace, []string, error) {
	var roots []string
	for _, f := range files {
		root, err := project.RootOrSelf(filepath.Dir(f))
		if err != nil {
			return tidy.Workspace{}, nil, err
		}
		if !slices.Contains(roots, root) {
			roots = append(roots, root)
		}
	}
	return tidy.NewWorkspace(roots...), roots, nil
}

// analyze runs the analyzer over req.Files, one run per project root.
func analyze(ctx context.Context, req analyzeRequest) (analysis, error) {
	var result analysis
	timer := req.Timer
	sink := req.Progress
	if sink == nil {
		sink = ui.NopSink{}
	}

	done := timer.Track("load")
	ws, _, err := workspaceFor(req.Files)
	if err != nil {
		done("")
		return result, err
	}
	result.Workspace = ws
	result.FileSet = source.NewFileSet()

	var r lint.Runner = runner.New()
	var cached *cache.CachedRunner
	if req.Cache {
		disk, err := cache.Open("tidyls")
		if err != nil {
			trace.Errorf(trace.FromContext(ctx), trace.ScopeServer, "cache", "%v", err)
		}
		if disk != nil && req.Clear {
			if err := disk.DropAll(); err != nil {
				trace.Errorf(trace.FromContext(ctx), trace.ScopeServer, "cache", "clear %s: %v", disk.Dir(), err)
			} else {
				trace.LogContext(ctx, trace.ScopeServer, "cache", "cleared %s", disk.Dir())
			}
		}
		cached = cache.Wrap(r, disk)
		r = cached
	}
	linter := lint.New(r)

	docs := make([]lint.Document, 0, len(req.Files))
	for _, path := range req.Files {
		id, err := result.FileSet.Load(path)
		if err != nil {
			done("")
			return result, err
		}
		file := result.FileSet.Get(id)
		doc := lint.Document{
			Path:       path,
			Scheme:     "file",
			LanguageID: lint.DetectLanguage(path, file.Content),
			Content:    file.Content,
		}
		if err := linter.Check(ctx, doc, req.Settings, ws); err != nil {
			result.Skipped = append(result.Skipped, skippedFile{Path: path, Reason: err})
			sink.OnEvent(ui.Event{File: path, Stage: ui.StageCollect, Status: ui.StatusDone})
			continue
		}
		docs = append(docs, doc)
	}
	done(fmt.Sprintf("%d files", len(req.Files)))

	obs := &progressObserver{sink: sink, timer: timer, ends: make(map[string]func(string))}
	byPath, err := linter.LintBatch(ctx, docs, req.Settings, ws, lint.Batch{
		Fix:      req.Fix,
		Jobs:     req.Jobs,
		Observer: obs,
	})
	if cached != nil {
		result.CacheHits, result.CacheMisses = cached.Stats()
	}
	if err != nil && len(byPath) == 0 {
		return result, err
	}
	for _, doc := range docs {
		result.Diagnostics = append(result.Diagnostics, byPath[doc.Path]...)
	}
	return result, err
}

// progressObserver turns lint progress into UI events and timer phases.
type progressObserver struct {
	sink  ui.Sink
	timer *observ.Timer
	ends  map[string]func(string)
}

func (o *progressObserver) Analyzing(root string, files []string) {
	o.ends[root] = o.timer.Track("analyze " + filepath.Base(root))
	o.sink.OnEvent(ui.Event{Stage: ui.StageAnalyze, Status: ui.StatusWorking})
}

func (o *progressObserver) Analyzed(root string, err error) {
	note := ""
	if err != nil {
		note = "failed"
		if errors.Is(err, runner.ErrLaunch) {
			note = "launch failed"
		}
	}
	if end := o.ends[root]; end != nil {
		end(note)
	}
	if err != nil {
		o.sink.OnEvent(ui.Event{Stage: ui.StageAnalyze, Status: ui.StatusError})
		return
	}
	o.sink.OnEvent(ui.Event{Stage: ui.StageCollect, Status: ui.StatusWorking})
}

func (o *progressObserver) Collected(path string, n int) {
	o.sink.OnEvent(ui.Event{File: path, Stage: ui.StageCollect, Status: ui.StatusDone, Diagnostics: n})
}
