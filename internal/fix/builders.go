package fix

import (
	"fmt"

	"tidyls/internal/diag"
	"tidyls/internal/source"
)

// Edit replaces the bytes of Span with NewText.
type Edit struct {
	Span    source.Span
	NewText string
}

// Fix is one analyzer replacement resolved against a document.
type Fix struct {
	ID    string
	Title string
	Check string
	Path  string
	Edit  Edit
	Range source.Range // UTF-16 range of the replaced text
}

// Title is the label shown for the quick fix of d.
func Title(d *diag.Diagnostic) string {
	if d.Fix == nil {
		return ""
	}
	if d.Fix.ReplacementText == "" {
		return fmt.Sprintf("Remove code (%s)", checkName(d))
	}
	return fmt.Sprintf("Apply fix: %s (%s)", d.Message, checkName(d))
}

func checkName(d *diag.Diagnostic) string {
	if d.Name == "" {
		return diag.SourceClangTidy
	}
	return d.Name
}

// FromPayload resolves p against file. Offsets are UTF-16 units and are
// clamped to the document.
func FromPayload(file *source.File, p diag.FixPayload) Edit {
	return Edit{
		Span:    file.SpanForUnits(p.Offset, p.Length),
		NewText: p.ReplacementText,
	}
}

// RangeOf returns the UTF-16 range p replaces in file.
func RangeOf(file *source.File, p diag.FixPayload) source.Range {
	return source.Range{
		Start: file.PositionAt(p.Offset),
		End:   file.PositionAt(p.Offset + p.Length),
	}
}

// FromDiagnostic builds the Fix carried by d, if any.
func FromDiagnostic(file *source.File, d *diag.Diagnostic, idx int) (Fix, bool) {
	if d.Fix == nil {
		return Fix{}, false
	}
	r := RangeOf(file, *d.Fix)
	return Fix{
		ID:    fmt.Sprintf("%s@%d:%d#%d", checkName(d), r.Start.Line+1, r.Start.Character+1, idx),
		Title: Title(d),
		Check: d.Name,
		Path:  file.Path,
		Edit:  FromPayload(file, *d.Fix),
		Range: r,
	}, true
}
