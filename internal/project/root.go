package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Markers identify a C/C++ workspace root, in order of preference.
var Markers = []string{".tidyls.toml", "compile_commands.json", ".clang-tidy", ".git"}

// FindUp walks up from startDir and returns the first path named name.
func FindUp(startDir, name string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindRoot returns the workspace root for startDir: the directory holding
// the first marker found, trying markers in order. A start path that is a
// file is resolved from its directory.
func FindRoot(startDir string) (root string, ok bool, err error) {
	if info, statErr := os.Stat(startDir); statErr == nil && !info.IsDir() {
		startDir = filepath.Dir(startDir)
	}
	for _, marker := range Markers {
		path, found, err := FindUp(startDir, marker)
		if err != nil {
			return "", false, err
		}
		if found {
			return filepath.Dir(path), true, nil
		}
	}
	return "", false, nil
}

// RootOrSelf is FindRoot falling back to the absolute start directory.
func RootOrSelf(startDir string) (string, error) {
	root, ok, err := FindRoot(startDir)
	if err != nil {
		return "", err
	}
	if ok {
		return root, nil
	}
	if info, statErr := os.Stat(startDir); statErr == nil && !info.IsDir() {
		startDir = filepath.Dir(startDir)
	}
	return filepath.Abs(startDir)
}
