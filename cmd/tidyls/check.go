package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tidyls/internal/diag"
	"tidyls/internal/diagfmt"
	"tidyls/internal/observ"
	"tidyls/internal/trace"
	"tidyls/internal/ui"
	"tidyls/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file|directory|glob>...",
	Short: "Run clang-tidy and print its diagnostics",
	Long: `Run clang-tidy over source files, directories or glob patterns and print
the diagnostics that belong to them. Exits with status 2 when error
diagnostics are found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	checkCmd.Flags().String("path-mode", "auto", "how file paths are printed (auto|absolute|relative|basename)")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	checkCmd.Flags().Bool("preview", false, "include before/after lines of fixes in json output")
	checkCmd.Flags().Bool("summary", false, "append a per-check summary table to pretty output")
	checkCmd.Flags().Bool("no-warnings", false, "drop warnings and below")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Bool("fix", false, "let clang-tidy apply its fixes in place")
	checkCmd.Flags().Bool("cache", false, "reuse analyzer output for unchanged sources, .clang-tidy and compile_commands.json (included headers are not tracked)")
	checkCmd.Flags().Bool("clear-cache", false, "drop cached analyzer output first (implies --cache)")
	checkCmd.Flags().Int("jobs", 0, "documents collected in parallel (0=auto)")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	addAnalyzerFlags(checkCmd)
}

type checkOptions struct {
	format           diagfmt.Format
	pathMode         diagfmt.PathMode
	suggest          bool
	preview          bool
	summary          bool
	noWarnings       bool
	warningsAsErrors bool
	fix              bool
	cache            bool
	clearCache       bool
	jobs             int
	ui               uiMode
	quiet            bool
	timings          bool
	maxDiagnostics   int
	color            bool
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	var opts checkOptions
	flags := cmd.Flags()

	formatStr, err := flags.GetString("format")
	if err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.format, err = diagfmt.ParseFormat(formatStr); err != nil {
		return opts, err
	}
	pathModeStr, err := flags.GetString("path-mode")
	if err != nil {
		return opts, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	if opts.pathMode, err = diagfmt.ParsePathMode(pathModeStr); err != nil {
		return opts, err
	}
	fullPath, err := flags.GetBool("fullpath")
	if err != nil {
		return opts, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		opts.pathMode = diagfmt.PathModeAbsolute
	}

	for name, dst := range map[string]*bool{
		"suggest":            &opts.suggest,
		"preview":            &opts.preview,
		"summary":            &opts.summary,
		"no-warnings":        &opts.noWarnings,
		"warnings-as-errors": &opts.warningsAsErrors,
		"fix":                &opts.fix,
		"cache":              &opts.cache,
		"clear-cache":        &opts.clearCache,
	} {
		if *dst, err = flags.GetBool(name); err != nil {
			return opts, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
	}
	if opts.noWarnings && opts.warningsAsErrors {
		return opts, fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	if opts.clearCache {
		opts.cache = true
	}
	if opts.jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiStr, err := flags.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if opts.ui, err = readUIMode(uiStr); err != nil {
		return opts, err
	}

	root := cmd.Root().PersistentFlags()
	if opts.quiet, err = root.GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = root.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.maxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.color, err = useColor(cmd); err != nil {
		return opts, err
	}
	return opts, nil
}

// runCheck executes the check command: it expands the targets, runs the
// analyzer once per project root, and prints the diagnostics in the chosen
// format. Error diagnostics end the process with status 2.
func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd.Context())

	opts, err := readCheckOptions(cmd)
	if err != nil {
		return err
	}
	files, err := expandTargets(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no source files found in %v", args)
	}

	ctx := cmd.Context()
	settings, configPath, err := loadSettings(cmd, filepath.Dir(files[0]))
	if err != nil {
		return err
	}
	if configPath != "" {
		trace.LogContext(ctx, trace.ScopeServer, "config", "loaded %s", configPath)
	}

	timer := observ.NewTimer()
	if !opts.timings {
		timer = nil
	}
	req := analyzeRequest{
		Files:    files,
		Settings: settings,
		Fix:      opts.fix,
		Jobs:     opts.jobs,
		Cache:    opts.cache,
		Clear:    opts.clearCache,
		Timer:    timer,
	}

	var res analysis
	if shouldUseTUI(opts.ui, opts.quiet) {
		res, err = runWithUI("check", files, func(sink ui.Sink) (analysis, error) {
			r := req
			r.Progress = sink
			return analyze(ctx, r)
		})
	} else {
		res, err = analyze(ctx, req)
	}
	// results of the roots that did run are printed before a failure
	// is reported
	if err != nil && res.FileSet == nil {
		return err
	}
	runErr := err

	stderr := cmd.ErrOrStderr()
	if !opts.quiet {
		for _, s := range res.Skipped {
			fmt.Fprintf(stderr, "skipped %s: %v\n", s.Path, s.Reason)
		}
	}

	bag := buildBag(res.Diagnostics, opts)
	done := timer.Track("format")
	if err := writeDiagnostics(cmd.OutOrStdout(), bag, res, opts, args); err != nil {
		return err
	}
	done(string(opts.format))

	if opts.cache && !opts.quiet {
		fmt.Fprintf(stderr, "cache: %d hits, %d misses\n", res.CacheHits, res.CacheMisses)
	}
	if opts.timings {
		fmt.Fprint(stderr, timer.Summary())
	}
	if runErr != nil {
		return runErr
	}
	if bag.HasErrors() {
		return errFindings
	}
	return nil
}

// buildBag applies the severity flags, sorts and removes the duplicates
// that headers shared by several sources produce.
func buildBag(diags []diag.Diagnostic, opts checkOptions) *diag.Bag {
	bag := diag.NewBag(0)
	r := severityFilter{
		next:             diag.BagReporter{Bag: bag},
		noWarnings:       opts.noWarnings,
		warningsAsErrors: opts.warningsAsErrors,
	}
	for _, d := range diags {
		r.Report(d)
	}
	bag.Sort()
	bag.Dedup()
	if opts.maxDiagnostics > 0 && bag.Len() > opts.maxDiagnostics {
		limited := diag.NewBag(opts.maxDiagnostics)
		limited.AddAll(bag.Items())
		return limited
	}
	return bag
}

type severityFilter struct {
	next             diag.Reporter
	noWarnings       bool
	warningsAsErrors bool
}

func (f severityFilter) Report(d diag.Diagnostic) {
	switch {
	case f.noWarnings && d.Severity >= diag.SevWarning:
		return
	case f.warningsAsErrors && d.Severity == diag.SevWarning:
		d.Severity = diag.SevError
	}
	f.next.Report(d)
}

func writeDiagnostics(w io.Writer, bag *diag.Bag, res analysis, opts checkOptions, args []string) error {
	base, _ := os.Getwd()
	switch opts.format {
	case diagfmt.FormatPretty:
		return diagfmt.Pretty(w, bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     opts.color,
			PathMode:  opts.pathMode,
			BaseDir:   base,
			ShowFixes: opts.suggest,
			Summary:   opts.summary,
		})
	case diagfmt.FormatShort:
		return diagfmt.Short(w, bag, diagfmt.ShortOpts{PathMode: opts.pathMode, BaseDir: base})
	case diagfmt.FormatJSON:
		err := diagfmt.JSON(w, bag, res.FileSet, diagfmt.JSONOpts{
			PathMode:        opts.pathMode,
			BaseDir:         base,
			IncludeFixes:    opts.suggest || opts.preview,
			IncludePreviews: opts.preview,
		})
		if err != nil {
			return fmt.Errorf("failed to encode diagnostics output: %w", err)
		}
		return nil
	case diagfmt.FormatSarif:
		return diagfmt.Sarif(w, bag, res.FileSet, diagfmt.SarifRunMeta{
			ToolName:       "tidyls",
			ToolVersion:    version.Version,
			InvocationArgs: append([]string{"check"}, args...),
			BaseDir:        base,
		})
	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}
}
