package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidyls/internal/config"
)

// addAnalyzerFlags registers the flags that override configuration.
func addAnalyzerFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "configuration file (default: nearest "+config.FileName+")")
	cmd.Flags().String("executable", "", "clang-tidy executable")
	cmd.Flags().StringSlice("checks", nil, "check globs passed as --checks")
	cmd.Flags().StringArray("extra-arg", nil, "compiler argument appended to the analyzer command line")
	cmd.Flags().StringArray("extra-arg-before", nil, "compiler argument prepended to the analyzer command line")
	cmd.Flags().StringP("build-path", "p", "", "directory holding compile_commands.json")
	cmd.Flags().StringArray("blacklist", nil, "regexp of workspace-relative paths to skip")
}

// loadSettings resolves the configuration for dir and applies the flags
// that were set explicitly.
func loadSettings(cmd *cobra.Command, dir string) (config.Settings, string, error) {
	var (
		settings config.Settings
		path     string
	)
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return settings, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		s, _, err := config.LoadFile(explicit, config.Default())
		if err != nil {
			return settings, "", err
		}
		settings, path = config.ApplyEnv(s), explicit
	} else {
		loaded, err := config.Load(dir)
		if err != nil {
			return settings, "", err
		}
		settings, path = loaded.Settings, loaded.Path
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return settings, "", err
	}
	return settings.Apply(overrides), path, nil
}

func flagOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("executable") {
		v, err := flags.GetString("executable")
		if err != nil {
			return o, err
		}
		o.Executable = &v
	}
	if flags.Changed("build-path") {
		v, err := flags.GetString("build-path")
		if err != nil {
			return o, err
		}
		o.BuildPath = &v
	}
	if flags.Changed("checks") {
		v, err := flags.GetStringSlice("checks")
		if err != nil {
			return o, err
		}
		o.Checks = &v
	}
	for name, dst := range map[string]**[]string{
		"extra-arg":        &o.CompilerArgs,
		"extra-arg-before": &o.CompilerArgsBefore,
		"blacklist":        &o.Blacklist,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetStringArray(name)
		if err != nil {
			return o, err
		}
		*dst = &v
	}
	return o, nil
}
