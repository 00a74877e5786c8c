package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"tidyls/internal/fix"
	"tidyls/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixEditPreview renders the whole lines touched by edit before and
// after it is applied.
func buildFixEditPreview(file *source.File, edit fix.Edit) (fixEditPreview, error) {
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("nil file")
	}
	startLine := file.LineOfByte(int(edit.Span.Start))
	endLine := max(file.LineOfByte(int(edit.Span.End)), startLine)

	blockStart := lineStartOffset(file, startLine)
	blockEnd := max(lineEndOffsetInclusive(file, endLine), blockStart)

	lenFileContent, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fixEditPreview{}, fmt.Errorf("len file content overflow: %w", err)
	}
	blockEnd = min(blockEnd, lenFileContent)

	original := file.Content[blockStart:blockEnd]
	relStart := int(edit.Span.Start) - int(blockStart)
	relEnd := int(edit.Span.End) - int(blockStart)

	if relStart < 0 || relStart > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span start %d out of range for preview block", relStart)
	}
	if relEnd < relStart || relEnd > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span end %d out of range for preview block", relEnd)
	}

	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, original[:relStart]...)
	after = append(after, edit.NewText...)
	after = append(after, original[relEnd:]...)

	return fixEditPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}

// lineStartOffset returns the byte offset where zero-based line begins.
func lineStartOffset(f *source.File, line int) uint32 {
	if line <= 0 {
		return 0
	}
	if line-1 < len(f.LineIdx) {
		return f.LineIdx[line-1] + 1
	}
	return contentLen(f)
}

// lineEndOffsetInclusive returns the offset just past line's terminator.
func lineEndOffsetInclusive(f *source.File, line int) uint32 {
	if line >= 0 && line < len(f.LineIdx) {
		return f.LineIdx[line] + 1
	}
	return contentLen(f)
}

func contentLen(f *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}
