package diagfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names an output format of the check command.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatShort  Format = "short"
	FormatJSON   Format = "json"
	FormatSarif  Format = "sarif"
)

// ParseFormat accepts the names listed above, case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPretty, FormatShort, FormatJSON, FormatSarif:
		return f, nil
	case "":
		return FormatPretty, nil
	default:
		return "", fmt.Errorf("unknown format %q (want pretty, short, json or sarif)", s)
	}
}

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shows paths relative to BaseDir when they are inside it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode maps auto|absolute|relative|basename onto PathMode.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute", "abs":
		return PathModeAbsolute, nil
	case "relative", "rel":
		return PathModeRelative, nil
	case "basename", "base":
		return PathModeBasename, nil
	default:
		return PathModeAuto, fmt.Errorf("unknown path mode %q", s)
	}
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string
	ShowFixes bool
	Summary   bool // append a per-check count table
}

// ShortOpts configures the one-line-per-diagnostic format.
type ShortOpts struct {
	PathMode PathMode
	BaseDir  string
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode        PathMode
	BaseDir         string
	Max             int // truncates output only, never the Bag
	IncludeFixes    bool
	IncludePreviews bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
	BaseDir        string
}

// FormatPath renders path according to mode. Relative forms fall back to
// the path as given when it cannot be expressed under base.
func FormatPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
		return filepath.ToSlash(path)
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			return filepath.ToSlash(path)
		}
		absPath, err1 := filepath.Abs(path)
		absBase, err2 := filepath.Abs(base)
		if err1 != nil || err2 != nil {
			return filepath.ToSlash(path)
		}
		rel, err := filepath.Rel(absBase, absPath)
		if err != nil {
			return filepath.ToSlash(path)
		}
		if mode == PathModeAuto && (rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return filepath.ToSlash(path)
		}
		return filepath.ToSlash(rel)
	default:
		return filepath.ToSlash(path)
	}
}
