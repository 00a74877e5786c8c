package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tidyls/internal/diagfmt"
	"tidyls/internal/fix"
	"tidyls/internal/observ"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file|directory|glob>...",
	Short: "Apply clang-tidy fixes to source files",
	Long: `Run clang-tidy, collect the replacements it proposes, and apply them to the
files. Overlapping replacements are applied first come, first served.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply every non-conflicting fix (default)")
	fixCmd.Flags().Bool("once", false, "apply the first available fix")
	fixCmd.Flags().String("check", "", "apply only fixes of the named check")
	fixCmd.Flags().Bool("dry-run", false, "list the fixes that would be applied without writing files")
	fixCmd.Flags().Bool("cache", false, "reuse analyzer output for unchanged sources, .clang-tidy and compile_commands.json (included headers are not tracked)")
	fixCmd.Flags().Bool("clear-cache", false, "drop cached analyzer output first (implies --cache)")
	addAnalyzerFlags(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd.Context())

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	check, err := cmd.Flags().GetString("check")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return err
	}
	useCache = useCache || clearCache
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	if check != "" && (applyAll || applyOnce) {
		return fmt.Errorf("--check cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}
	opts := fix.ApplyOptions{Mode: fix.ApplyModeAll, DryRun: dryRun}
	switch {
	case check != "":
		opts.Mode, opts.Check = fix.ApplyModeCheck, check
	case applyOnce:
		opts.Mode = fix.ApplyModeOnce
	}

	files, err := expandTargets(args)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("fix: no source files found in %v", args)
	}
	settings, _, err := loadSettings(cmd, filepath.Dir(files[0]))
	if err != nil {
		return err
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}
	res, err := analyze(cmd.Context(), analyzeRequest{
		Files:    files,
		Settings: settings,
		Cache:    useCache,
		Clear:    clearCache,
		Timer:    timer,
	})
	if err != nil {
		return fmt.Errorf("fix: analysis failed: %w", err)
	}

	done := timer.Track("apply")
	applied, applyErr := fix.Apply(res.FileSet, res.Diagnostics, opts)
	done("")
	if err := handleApplyResult(cmd.OutOrStdout(), applied, applyErr, dryRun); err != nil {
		return err
	}
	if showTimings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error, dryRun bool) error {
	if res == nil {
		return applyErr
	}
	base, _ := os.Getwd()
	display := func(path string) string {
		return diagfmt.FormatPath(path, diagfmt.PathModeAuto, base)
	}

	verb := "Applied"
	if dryRun {
		verb = "Would apply"
	}
	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "%s %d fix(es):\n", verb, len(res.Applied))
		for _, item := range res.Applied {
			fmt.Fprintf(out, "  %s [%s] %s\n", item.Title, item.ID, display(item.Path))
		}
	}

	if len(res.FileChanges) > 0 {
		if dryRun {
			fmt.Fprintln(out, "Files that would change:")
		} else {
			fmt.Fprintln(out, "Updated files:")
		}
		for _, change := range res.FileChanges {
			fmt.Fprintf(out, "  %s (%d edits)\n", display(change.Path), change.EditCount)
		}
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			fmt.Fprintln(out, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}
	if len(res.Applied) == 0 {
		fmt.Fprintln(out, "No fixes applied.")
	}
	return nil
}
