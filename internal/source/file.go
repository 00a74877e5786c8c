package source

import (
	"os"
	"sort"
)

// NewFile snapshots content as a document located at path.
// Content is kept byte-for-byte: the analyzer reports offsets into the
// exact bytes it read, so no BOM or CRLF normalization happens here.
func NewFile(path string, content []byte) *File {
	f := &File{
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
	}
	if hasBOM(content) {
		f.Flags |= FileHadBOM
	}
	f.indexUnits()
	return f
}

// Load reads a document from disk.
func Load(path string) (*File, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFile(path, content), nil
}

func (f *File) indexUnits() {
	f.lineUnits = make([]int, len(f.LineIdx)+1)
	units := 0
	prev := 0
	for i, nl := range f.LineIdx {
		end := int(nl) + 1
		units += countUnits(f.Content[prev:end])
		f.lineUnits[i+1] = units
		prev = end
	}
	f.units = units + countUnits(f.Content[prev:])
}

// LineCount returns the number of lines; an empty document has one.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// Len returns the document length in bytes.
func (f *File) Len() int {
	return len(f.Content)
}

// Units returns the document length in UTF-16 code units.
func (f *File) Units() int {
	return f.units
}

// lineBounds returns the byte range of line without its terminator.
func (f *File) lineBounds(line int) (start, end int) {
	if line <= 0 {
		start = 0
	} else {
		start = int(f.LineIdx[line-1]) + 1
	}
	if line < len(f.LineIdx) {
		end = int(f.LineIdx[line])
	} else {
		end = len(f.Content)
	}
	if end > start && f.Content[end-1] == '\r' && line < len(f.LineIdx) {
		end--
	}
	return start, end
}

// Line returns the text of a zero-based line without its terminator.
// Out-of-range lines yield an empty string.
func (f *File) Line(line int) string {
	if line < 0 || line >= f.LineCount() {
		return ""
	}
	start, end := f.lineBounds(line)
	return string(f.Content[start:end])
}

// LineOfByte returns the zero-based line containing byte offset off.
func (f *File) LineOfByte(off int) int {
	off = f.clampByte(off)
	return sort.Search(len(f.LineIdx), func(i int) bool { return int(f.LineIdx[i]) >= off })
}
