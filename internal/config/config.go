package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"tidyls/internal/project"
)

// FileName is the per-workspace configuration file.
const FileName = ".tidyls.toml"

// Environment variables applied on top of the configuration file.
const (
	EnvExecutable = "TIDYLS_EXECUTABLE"
	EnvBuildPath  = "TIDYLS_BUILD_PATH"
	EnvChecks     = "TIDYLS_CHECKS" // comma separated
)

// Settings is the resolved configuration of a lint pass.
type Settings struct {
	Executable         string   `toml:"executable" json:"executable"`
	Checks             []string `toml:"checks" json:"checks"`
	CompilerArgs       []string `toml:"compiler_args" json:"compilerArgs"`
	CompilerArgsBefore []string `toml:"compiler_args_before" json:"compilerArgsBefore"`
	BuildPath          string   `toml:"build_path" json:"buildPath"`
	Blacklist          []string `toml:"blacklist" json:"blacklist"` // regexps over the workspace-relative path
	LintOnSave         bool     `toml:"lint_on_save" json:"lintOnSave"`
	LintOnOpen         bool     `toml:"lint_on_open" json:"lintOnOpen"`
	FixOnSave          bool     `toml:"fix_on_save" json:"fixOnSave"`
	Languages          []string `toml:"languages" json:"languages"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Executable:         "clang-tidy",
		Checks:             []string{},
		CompilerArgs:       []string{},
		CompilerArgsBefore: []string{},
		Blacklist:          []string{},
		LintOnSave:         true,
		LintOnOpen:         true,
		FixOnSave:          false,
		Languages:          []string{"c", "cpp"},
	}
}

// Overrides holds explicitly set values from the editor or the command
// line. Nil fields leave the underlying setting alone.
type Overrides struct {
	Executable         *string   `json:"executable"`
	Checks             *[]string `json:"checks"`
	CompilerArgs       *[]string `json:"compilerArgs"`
	CompilerArgsBefore *[]string `json:"compilerArgsBefore"`
	BuildPath          *string   `json:"buildPath"`
	Blacklist          *[]string `json:"blacklist"`
	LintOnSave         *bool     `json:"lintOnSave"`
	LintOnOpen         *bool     `json:"lintOnOpen"`
	FixOnSave          *bool     `json:"fixOnSave"`
	Languages          *[]string `json:"languages"`
}

// Apply returns s with every set field of o applied.
func (s Settings) Apply(o Overrides) Settings {
	if o.Executable != nil {
		s.Executable = *o.Executable
	}
	if o.Checks != nil {
		s.Checks = clone(*o.Checks)
	}
	if o.CompilerArgs != nil {
		s.CompilerArgs = clone(*o.CompilerArgs)
	}
	if o.CompilerArgsBefore != nil {
		s.CompilerArgsBefore = clone(*o.CompilerArgsBefore)
	}
	if o.BuildPath != nil {
		s.BuildPath = *o.BuildPath
	}
	if o.Blacklist != nil {
		s.Blacklist = clone(*o.Blacklist)
	}
	if o.LintOnSave != nil {
		s.LintOnSave = *o.LintOnSave
	}
	if o.LintOnOpen != nil {
		s.LintOnOpen = *o.LintOnOpen
	}
	if o.FixOnSave != nil {
		s.FixOnSave = *o.FixOnSave
	}
	if o.Languages != nil {
		s.Languages = clone(*o.Languages)
	}
	return s
}

func clone(in []string) []string {
	return append(make([]string, 0, len(in)), in...)
}

// Loaded is the result of Load.
type Loaded struct {
	Settings Settings
	Path     string   // configuration file used, empty if none
	Unknown  []string // keys in the file that mean nothing to tidyls
}

// Load resolves settings for a workspace: defaults, then the nearest
// .tidyls.toml at or above dir, then .env next to it (or in dir), then
// the process environment.
func Load(dir string) (Loaded, error) {
	out := Loaded{Settings: Default()}

	path, ok, err := project.FindUp(dir, FileName)
	if err != nil {
		return out, err
	}
	envDir := dir
	if ok {
		s, unknown, err := LoadFile(path, out.Settings)
		if err != nil {
			return out, err
		}
		out.Settings, out.Path, out.Unknown = s, path, unknown
		envDir = filepath.Dir(path)
	}

	if err := LoadDotEnv(envDir); err != nil {
		return out, err
	}
	out.Settings = ApplyEnv(out.Settings)
	return out, nil
}

// LoadFile decodes a TOML configuration file over base. Keys absent from
// the file keep their value in base.
func LoadFile(path string, base Settings) (Settings, []string, error) {
	s := base
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return base, nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return s, unknown, nil
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file from %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies TIDYLS_* variables to s.
func ApplyEnv(s Settings) Settings {
	if v, ok := os.LookupEnv(EnvExecutable); ok && v != "" {
		s.Executable = v
	}
	if v, ok := os.LookupEnv(EnvBuildPath); ok {
		s.BuildPath = v
	}
	if v, ok := os.LookupEnv(EnvChecks); ok {
		s.Checks = splitList(v)
	}
	return s
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// WriteDefault writes the default settings to path. An existing file is
// left alone and reported as os.ErrExist.
func WriteDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	enc.Indent = ""
	if _, err := f.WriteString("# tidyls configuration\n"); err != nil {
		_ = f.Close()
		return err
	}
	if err := enc.Encode(Default()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
