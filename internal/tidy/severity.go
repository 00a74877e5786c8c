package tidy

import (
	"regexp"
	"strings"

	"tidyls/internal/diag"
)

var severityLine = regexp.MustCompile(`^.*:\d+:\d+:\s+(warning|error|info|hint):\s+.*$`)

// ExtractSeverities returns one severity per "path:line:col: level: text"
// line of output, in line order.
func ExtractSeverities(output string) []diag.Severity {
	var out []diag.Severity
	for _, line := range strings.Split(output, "\n") {
		m := severityLine.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		out = append(out, severityWord(m[1]))
	}
	return out
}

func severityWord(w string) diag.Severity {
	switch w {
	case "error":
		return diag.SevError
	case "info":
		return diag.SevInformation
	case "hint":
		return diag.SevHint
	default:
		return diag.SevWarning
	}
}

// ApplySeverities assigns sevs[i] to diags[i]. Correlation is by position
// only; surplus entries on either side are ignored and diagnostics that
// carried a Level in the report keep it.
func ApplySeverities(diags []Diagnostic, sevs []diag.Severity) {
	n := min(len(diags), len(sevs))
	for i := range n {
		if diags[i].HasLevel {
			continue
		}
		diags[i].Severity = sevs[i]
	}
}
