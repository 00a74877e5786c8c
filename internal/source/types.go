package source

import "math"

type (
	// FileID identifies a document within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a document.
	FileFlags uint8
)

const (
	// FileVirtual marks a document that was not read from disk (editor buffer, test).
	FileVirtual FileFlags = 1 << iota
	// FileHadBOM marks content that starts with a UTF-8 byte order mark.
	FileHadBOM
)

// MaxColumn is the end character used by ranges that cover a whole line.
// Editors clamp it to the real line length.
const MaxColumn = math.MaxInt32

// File is an immutable snapshot of a document's bytes together with
// the indexes needed to move between byte offsets and UTF-16 positions.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of every '\n'
	Flags   FileFlags

	lineUnits []int // UTF-16 offset of every line start
	units     int   // total UTF-16 length
}

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open pair of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// LineRange returns a range spanning the whole of line.
func LineRange(line int) Range {
	return Range{
		Start: Position{Line: line, Character: 0},
		End:   Position{Line: line, Character: MaxColumn},
	}
}
