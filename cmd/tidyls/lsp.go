package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidyls/internal/lsp"
	"tidyls/internal/trace"
	"tidyls/internal/version"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the clang-tidy language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().String("log-level", "info", "level of messages sent to the editor log (error|info|detail|debug)")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	defer dumpTraceOnPanic(cmd.Context())

	levelStr, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	if level == trace.LevelOff {
		// the server treats the zero level as its default
		level = trace.LevelError
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Tracer:   trace.FromContext(cmd.Context()),
		LogLevel: level,
		Version:  version.Version,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
