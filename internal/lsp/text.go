package lsp

import "tidyls/internal/source"

// applyChanges applies content changes in order. A change without a range
// replaces the whole text; ranged changes use UTF-16 positions.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		f := source.NewFile("", []byte(text))
		start := f.ByteOffset(f.OffsetAt(toSourcePosition(change.Range.Start)))
		end := f.ByteOffset(f.OffsetAt(toSourcePosition(change.Range.End)))
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func toSourcePosition(p position) source.Position {
	return source.Position{Line: p.Line, Character: p.Character}
}

func fromSourceRange(r source.Range) lspRange {
	return lspRange{
		Start: position{Line: r.Start.Line, Character: r.Start.Character},
		End:   position{Line: r.End.Line, Character: r.End.Character},
	}
}
