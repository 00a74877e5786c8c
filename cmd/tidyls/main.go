package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tidyls/internal/version"
)

// errFindings makes the process exit with status 2 without printing; the
// diagnostics themselves were already written.
var errFindings = errors.New("error diagnostics found")

var rootCmd = &cobra.Command{
	Use:   "tidyls",
	Short: "clang-tidy diagnostics for editors and the command line",
	Long: `tidyls runs clang-tidy and turns its report into positioned diagnostics
and quick fixes, either as a language server (tidyls lsp) or from the
command line (tidyls check, tidyls fix).`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupRun,
	PersistentPostRunE: finishRun,
}

// main registers subcommands and persistent flags and executes the root
// command. Errors exit with status 1, error diagnostics with status 2.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics to show (0 = unlimited)")

	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|info|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "interval of heartbeat events (0 = off)")

	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file")
	flags.String("runtime-trace", "", "write a Go runtime trace to file")

	err := rootCmd.Execute()
	finish()
	switch {
	case err == nil:
	case errors.Is(err, errFindings):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "tidyls: %v\n", err)
		os.Exit(1)
	}
}

func setupRun(cmd *cobra.Command, _ []string) error {
	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, traceCleanup)
	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, profCleanup)
	return nil
}

// cleanups run once, whether or not the command succeeded; cobra skips
// the post-run hook on error.
var cleanups []func()

func finishRun(*cobra.Command, []string) error {
	finish()
	return nil
}

func finish() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}
