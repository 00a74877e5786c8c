package tidy

import (
	"tidyls/internal/diag"
	"tidyls/internal/source"
)

// Project converts a corrected diagnostic into editor records: one per
// replacement, each carrying its fix payload, or a single record covering
// the line of FileOffset when there is nothing to replace.
func Project(doc *source.File, d *Diagnostic) []diag.Diagnostic {
	base := diag.Diagnostic{
		Path:     doc.Path,
		Message:  d.Message,
		Severity: d.Severity,
		Source:   diag.SourceClangTidy,
		Name:     d.Name,
	}
	if len(d.Replacements) == 0 {
		base.Range = source.LineRange(doc.PositionAt(d.FileOffset).Line)
		return []diag.Diagnostic{base}
	}

	out := make([]diag.Diagnostic, 0, len(d.Replacements))
	for _, r := range d.Replacements {
		rec := base
		rec.Range = source.Range{
			Start: doc.PositionAt(r.Offset),
			End:   doc.PositionAt(r.Offset + r.Length),
		}
		rec.Fix = &diag.FixPayload{
			ReplacementText: r.ReplacementText,
			Offset:          r.Offset,
			Length:          r.Length,
		}
		out = append(out, rec)
	}
	return out
}
