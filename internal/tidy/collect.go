package tidy

import (
	"tidyls/internal/diag"
	"tidyls/internal/source"
)

// Collect runs the whole pipeline for one document over raw analyzer output.
func Collect(output string, doc *source.File, ws Workspace) ([]diag.Diagnostic, error) {
	report, err := ParseReport(output)
	if err != nil {
		return nil, err
	}
	ApplySeverities(report.Diagnostics, ExtractSeverities(output))
	return report.For(doc, ws), nil
}

// For projects the report onto doc. Diagnostics are copied before
// correction so one report can serve many documents concurrently.
func (r *Report) For(doc *source.File, ws Workspace) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		d = d.Clone()
		Correct(doc, &d)
		if !Relevant(doc.Path, &d, ws) {
			continue
		}
		out = append(out, Project(doc, &d)...)
	}
	return out
}
