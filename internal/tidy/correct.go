package tidy

import "tidyls/internal/source"

// Correct rewrites the byte offsets of d into UTF-16 units of doc.
// Replacement lengths are measured over the original byte range before the
// replacement offset itself is converted. Out of range values clamp.
func Correct(doc *source.File, d *Diagnostic) {
	d.FileOffset = doc.UnitsBefore(d.FileOffset)
	for i := range d.Replacements {
		r := &d.Replacements[i]
		r.Length = doc.UnitsIn(r.Offset, r.Length)
		r.Offset = doc.UnitsBefore(r.Offset)
	}
}
