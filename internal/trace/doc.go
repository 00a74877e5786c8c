// Package trace is the logging and tracing layer of tidyls.
//
// Every component reports through a Tracer: lint passes open spans, the
// process runner logs the analyzer command line, working directory and
// output, and the language server forwards events to the client as
// window/logMessage notifications.
//
// # Usage
//
//	tidyls check --trace=- --trace-level=detail src/
//
// # Tracers
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer dumped on panics
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: failures only
//   - LevelInfo: server requests and lint passes
//   - LevelDetail: analyzer command lines and output
//   - LevelDebug: per-diagnostic pipeline steps
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.BeginContext(ctx, trace.ScopeLint, "lint")
//	defer span.End("")
//	trace.LogContext(ctx, trace.ScopeProcess, "process", "> %s", cmdline)
package trace
