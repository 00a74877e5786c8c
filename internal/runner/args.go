package runner

import "strings"

// DefaultExecutable is used when Options.Executable is empty.
const DefaultExecutable = "clang-tidy"

// Options configures one analyzer invocation.
type Options struct {
	Executable         string
	Checks             []string
	CompilerArgs       []string // each becomes --extra-arg=
	CompilerArgsBefore []string // each becomes --extra-arg-before=
	BuildPath          string   // compile_commands.json directory, -p=
	Fix                bool     // apply fixes in place
}

func (o Options) executable() string {
	if o.Executable == "" {
		return DefaultExecutable
	}
	return o.Executable
}

// Args builds the analyzer argument list: target files first, then the
// report flag and the configured options.
func Args(files []string, opts Options) []string {
	args := make([]string, 0, len(files)+4+len(opts.CompilerArgs)+len(opts.CompilerArgsBefore))
	args = append(args, files...)
	args = append(args, "--export-fixes=-")
	if len(opts.Checks) > 0 {
		args = append(args, "--checks="+strings.Join(opts.Checks, ","))
	}
	for _, a := range opts.CompilerArgs {
		args = append(args, "--extra-arg="+a)
	}
	for _, a := range opts.CompilerArgsBefore {
		args = append(args, "--extra-arg-before="+a)
	}
	if opts.BuildPath != "" {
		args = append(args, "-p="+opts.BuildPath)
	}
	if opts.Fix {
		args = append(args, "--fix")
	}
	return args
}
