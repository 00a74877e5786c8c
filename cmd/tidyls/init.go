package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tidyls/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default " + config.FileName,
	Long: `Write a configuration file holding the default settings into the given
directory, or the current one. An existing file is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit writes the default configuration file into the target directory,
// creating the directory when it does not exist yet.
func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	path := filepath.Join(target, config.FileName)
	if err := config.WriteDefault(path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("already initialized: %s exists", path)
		}
		return fmt.Errorf("failed to write %s: %w", config.FileName, err)
	}

	rel := path
	if wd, err := os.Getwd(); err == nil {
		if r, err := filepath.Rel(wd, path); err == nil {
			rel = r
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", rel)
	return nil
}
