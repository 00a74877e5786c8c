package diag

import (
	"fmt"
	"sort"
)

// Bag collects diagnostics across documents up to a limit.
// It is not safe for concurrent use; see Collector.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag returns a bag that holds at most max diagnostics. A non-positive
// max means no limit.
func NewBag(max int) *Bag {
	capHint := max
	if capHint <= 0 || capHint > 256 {
		capHint = 256
	}
	return &Bag{
		items: make([]Diagnostic, 0, capHint),
		max:   max,
	}
}

// Add appends d. It returns false when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// AddAll appends ds until the bag is full and returns how many were kept.
func (b *Bag) AddAll(ds []Diagnostic) int {
	n := 0
	for _, d := range ds {
		if !b.Add(d) {
			break
		}
		n++
	}
	return n
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice. Callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any diagnostic is error severity.
func (b *Bag) HasErrors() bool {
	return b.Count(SevError) > 0
}

// Count returns how many diagnostics have exactly severity sev.
func (b *Bag) Count(sev Severity) int {
	n := 0
	for i := range b.items {
		if b.items[i].Severity == sev {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by path, start, end, severity (most severe
// first) and check name for deterministic output.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if c := comparePos(di.Range.Start.Line, di.Range.Start.Character, dj.Range.Start.Line, dj.Range.Start.Character); c != 0 {
			return c < 0
		}
		if c := comparePos(di.Range.End.Line, di.Range.End.Character, dj.Range.End.Line, dj.Range.End.Character); c != 0 {
			return c < 0
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		return di.Name < dj.Name
	})
}

func comparePos(l1, c1, l2, c2 int) int {
	if l1 != l2 {
		if l1 < l2 {
			return -1
		}
		return 1
	}
	switch {
	case c1 < c2:
		return -1
	case c1 > c2:
		return 1
	}
	return 0
}

// Dedup drops repeated diagnostics with the same path, range, name and
// fix payload. The analyzer reports header findings once per translation
// unit, so checking several sources can surface the same record twice.
func (b *Bag) Dedup() {
	seen := make(map[string]struct{}, len(b.items))
	kept := b.items[:0]
	for _, d := range b.items {
		key := fmt.Sprintf("%s|%v|%s|%s", d.Path, d.Range, d.Name, d.Message)
		if d.Fix != nil {
			key += "|" + d.Fix.Code()
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, d)
	}
	b.items = kept
}
