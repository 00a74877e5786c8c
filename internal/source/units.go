package source

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// runeUnits returns the UTF-16 width of the rune decoded from b and its size
// in bytes. An undecodable sequence counts as one unit, like a U+FFFD
// substitution, and spans the longest prefix of a valid encoding.
func runeUnits(b []byte) (units, size int) {
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return 1, invalidPrefix(b)
	}
	n := utf16.RuneLen(r)
	if n < 1 {
		n = 1
	}
	return n, size
}

// invalidPrefix returns the length of the maximal subpart of an ill-formed
// sequence at the start of b; always at least one byte.
func invalidPrefix(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	lead := b[0]
	need, lo, hi := 0, byte(0x80), byte(0xBF)
	switch {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 2
	case lead == 0xE0:
		need, lo = 3, 0xA0
	case lead == 0xED:
		need, hi = 3, 0x9F
	case lead >= 0xE1 && lead <= 0xEF:
		need = 3
	case lead == 0xF0:
		need, lo = 4, 0x90
	case lead == 0xF4:
		need, hi = 4, 0x8F
	case lead >= 0xF1 && lead <= 0xF3:
		need = 4
	default:
		return 1
	}
	size := 1
	for size < need && size < len(b) && b[size] >= lo && b[size] <= hi {
		size++
		lo, hi = 0x80, 0xBF
	}
	return size
}

func countUnits(b []byte) int {
	units := 0
	for len(b) > 0 {
		n, size := runeUnits(b)
		units += n
		b = b[size:]
	}
	return units
}

func (f *File) clampByte(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(f.Content) {
		return len(f.Content)
	}
	return off
}

// UnitsBefore returns how many UTF-16 code units precede byte offset off.
// Offsets outside the document clamp to its bounds.
func (f *File) UnitsBefore(off int) int {
	off = f.clampByte(off)
	if off == len(f.Content) {
		return f.units
	}
	line := f.LineOfByte(off)
	start, _ := f.lineBounds(line)
	if start > off {
		start = off
	}
	return f.lineUnits[line] + countUnits(f.Content[start:off])
}

// UnitsIn returns how many UTF-16 code units the byte range [off, off+n)
// decodes to on its own. The range is clamped to the document.
func (f *File) UnitsIn(off, n int) int {
	start := f.clampByte(off)
	end := len(f.Content)
	if n >= 0 && n < end-start {
		end = start + n
	}
	if n < 0 {
		end = start
	}
	return countUnits(f.Content[start:end])
}

// PositionAt converts a UTF-16 offset into a line/character position.
// The offset clamps to the document and the character clamps to the line.
func (f *File) PositionAt(unit int) Position {
	if unit < 0 {
		unit = 0
	}
	if unit > f.units {
		unit = f.units
	}
	line := sort.Search(len(f.lineUnits), func(i int) bool { return f.lineUnits[i] > unit }) - 1
	if line < 0 {
		line = 0
	}
	start, end := f.lineBounds(line)
	char := unit - f.lineUnits[line]
	if width := countUnits(f.Content[start:end]); char > width {
		char = width
	}
	return Position{Line: line, Character: char}
}

// OffsetAt converts a position back into a UTF-16 offset.
func (f *File) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= f.LineCount() {
		return f.units
	}
	start, end := f.lineBounds(pos.Line)
	char := pos.Character
	if char < 0 {
		char = 0
	}
	if width := countUnits(f.Content[start:end]); char > width {
		char = width
	}
	return f.lineUnits[pos.Line] + char
}

// ByteOffset converts a UTF-16 offset into a byte offset. An offset that
// falls inside a surrogate pair resolves to the start of that rune.
func (f *File) ByteOffset(unit int) int {
	if unit <= 0 {
		return 0
	}
	if unit >= f.units {
		return len(f.Content)
	}
	line := sort.Search(len(f.lineUnits), func(i int) bool { return f.lineUnits[i] > unit }) - 1
	if line < 0 {
		line = 0
	}
	off, _ := f.lineBounds(line)
	units := f.lineUnits[line]
	for off < len(f.Content) && units < unit {
		n, size := runeUnits(f.Content[off:])
		if units+n > unit {
			break
		}
		units += n
		off += size
	}
	return off
}

// SpanForUnits converts a UTF-16 range into a byte span of this file.
func (f *File) SpanForUnits(start, length int) Span {
	from := f.ByteOffset(start)
	to := f.ByteOffset(start + length)
	if to < from {
		to = from
	}
	return Span{File: f.ID, Start: safeUint32(from), End: safeUint32(to)}
}
