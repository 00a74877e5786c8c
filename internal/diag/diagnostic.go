package diag

import (
	"tidyls/internal/source"
)

// SourceClangTidy tags every diagnostic produced from analyzer output.
const SourceClangTidy = "clang-tidy"

// Diagnostic is a positioned finding ready for an editor or a report.
type Diagnostic struct {
	Path     string       `json:"path,omitempty"`
	Range    source.Range `json:"range"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
	Source   string       `json:"source"`
	Name     string       `json:"name,omitempty"` // check name, e.g. modernize-use-nullptr
	Fix      *FixPayload  `json:"fix,omitempty"`
}

// HasFix reports whether d carries a replacement.
func (d *Diagnostic) HasFix() bool {
	return d != nil && d.Fix != nil
}

// FromClangTidy reports whether d was produced by the analyzer pipeline.
func (d *Diagnostic) FromClangTidy() bool {
	return d != nil && d.Source == SourceClangTidy
}
