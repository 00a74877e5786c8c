package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint is an instant event, usually a log line.
	KindPoint
	// KindError is an instant event that reports a failure. It passes
	// every level except LevelOff.
	KindError
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindError:
		return "error"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeServer covers the request loop and CLI commands.
	ScopeServer Scope = iota + 1
	// ScopeLint covers one lint pass over a document or workspace.
	ScopeLint
	// ScopeProcess covers the analyzer subprocess: command line and output.
	ScopeProcess
	// ScopeDiagnostic covers per-diagnostic pipeline steps.
	ScopeDiagnostic
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeServer:
		return "server"
	case ScopeLint:
		return "lint"
	case ScopeProcess:
		return "process"
	case ScopeDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	Name     string            // e.g. "lint", "process", "publish"
	Detail   string            // optional detail message
	Elapsed  time.Duration     // span duration, set on end events
	Extra    map[string]string // extensible key-value pairs
}
