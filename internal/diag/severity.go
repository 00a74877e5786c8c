package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic. Values follow the
// language server protocol numbering, so lower is more severe.
type Severity uint8

const (
	// SevError is for diagnostics the analyzer reports as errors.
	SevError Severity = iota + 1
	// SevWarning is the default for analyzer findings.
	SevWarning
	// SevInformation is for informational notes.
	SevInformation
	// SevHint is for hints.
	SevHint
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	case SevInformation:
		return "info"
	case SevHint:
		return "hint"
	}
	return "unknown"
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s != 0 && s <= other
}

// ParseSeverity maps the analyzer's textual level to a Severity.
// Both the log-line spelling ("warning") and the structured report
// spelling ("Warning", "Remark") are accepted.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fatal":
		return SevError, nil
	case "warning":
		return SevWarning, nil
	case "info", "information", "note", "remark":
		return SevInformation, nil
	case "hint":
		return SevHint, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}
