package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"tidyls/internal/diag"
	"tidyls/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeAll   ApplyMode = iota // every non-conflicting fix
	ApplyModeOnce                   // the first fix in document order
	ApplyModeCheck                  // every fix of one check
)

// ApplyOptions configures how fixes are selected and written.
type ApplyOptions struct {
	Mode   ApplyMode
	Check  string // for ApplyModeCheck
	DryRun bool   // compute changes without writing files
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID      string
	Title   string
	Check   string
	Message string
	Path    string
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	Content   []byte // new content
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   Fix
	file  *source.File
	order int
}

// Apply collects the fix payloads of diagnostics, selects a subset
// according to opts and applies them to the files in fs. Diagnostics are
// matched to files by path. Overlapping edits are applied first come,
// first served; later ones are skipped.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(fs, diagnostics)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)
	selected := selectCandidates(candidates, opts)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skipped, changes, err := applyCandidates(selected, opts.DryRun)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skipped...)
	result.FileChanges = append(result.FileChanges, changes...)
	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

func gatherCandidates(fs *source.FileSet, diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0)
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})

	order := 0
	for i := range diagnostics {
		d := diagnostics[i]
		if !d.HasFix() || !d.FromClangTidy() {
			continue
		}
		file, ok := fs.GetByPath(d.Path)
		if !ok {
			skips = append(skips, SkippedFix{Title: Title(&d), Reason: fmt.Sprintf("file %s is not loaded", d.Path)})
			continue
		}
		f, _ := FromDiagnostic(file, &d, order)
		key := fmt.Sprintf("%s|%d|%d|%s", file.Path, f.Edit.Span.Start, f.Edit.Span.End, f.Edit.NewText)
		if _, dup := seen[key]; dup {
			skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "duplicate fix"})
			continue
		}
		seen[key] = struct{}{}
		cands = append(cands, candidate{diag: d, fix: f, file: file, order: order})
		order++
	}
	return cands, skips
}

// sortCandidates orders candidates by file, span start, span end and
// insertion order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.file.Path != cj.file.Path {
			return ci.file.Path < cj.file.Path
		}
		si, sj := ci.fix.Edit.Span, cj.fix.Edit.Span
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		if si.End != sj.End {
			return si.End < sj.End
		}
		return ci.order < cj.order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) []candidate {
	switch opts.Mode {
	case ApplyModeOnce:
		return candidates[:1]
	case ApplyModeCheck:
		selected := make([]candidate, 0)
		for _, cand := range candidates {
			if cand.diag.Name == opts.Check {
				selected = append(selected, cand)
			}
		}
		return selected
	default:
		return candidates
	}
}

func applyCandidates(selected []candidate, dryRun bool) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	applied := make([]AppliedFix, 0, len(selected))
	skipped := make([]SkippedFix, 0)
	accepted := make(map[*source.File][]Edit)
	var files []*source.File

	for _, cand := range selected {
		edits := accepted[cand.file]
		if conflictsWithExisting(edits, cand.fix.Edit) {
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: "conflicts with previously applied edits in " + cand.file.Path,
			})
			continue
		}
		if edits == nil {
			files = append(files, cand.file)
		}
		accepted[cand.file] = append(edits, cand.fix.Edit)
		applied = append(applied, AppliedFix{
			ID:      cand.fix.ID,
			Title:   cand.fix.Title,
			Check:   cand.diag.Name,
			Message: cand.diag.Message,
			Path:    cand.file.Path,
		})
	}

	fileChanges := make([]FileChange, 0, len(files))
	for _, file := range files {
		edits := accepted[file]
		buf := ApplyEdits(file.Content, edits)
		if !dryRun && file.Flags&source.FileVirtual == 0 {
			mode := os.FileMode(0o644)
			if info, err := os.Stat(file.Path); err == nil {
				mode = info.Mode()
			}
			if err := os.WriteFile(file.Path, buf, mode); err != nil {
				return applied, skipped, fileChanges, fmt.Errorf("write %s: %w", file.Path, err)
			}
		}
		fileChanges = append(fileChanges, FileChange{Path: file.Path, EditCount: len(edits), Content: buf})
	}

	sort.SliceStable(fileChanges, func(i, j int) bool {
		return fileChanges[i].Path < fileChanges[j].Path
	})
	return applied, skipped, fileChanges, nil
}

// ApplyEdits returns content with non-overlapping edits applied.
func ApplyEdits(content []byte, edits []Edit) []byte {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	out := append([]byte(nil), content...)
	for _, e := range sorted {
		start, end := int(e.Span.Start), int(e.Span.End)
		if start > len(out) || end > len(out) || start > end {
			continue
		}
		suffix := append([]byte(nil), out[end:]...)
		out = append(append(out[:start], e.NewText...), suffix...)
	}
	return out
}

func conflictsWithExisting(existing []Edit, edit Edit) bool {
	for _, prev := range existing {
		if spansConflict(prev.Span, edit.Span) {
			return true
		}
	}
	return false
}

// spansConflict reports whether two edits touch the same bytes. Two
// insertions at the same point conflict; their order would be ambiguous.
func spansConflict(a, b source.Span) bool {
	return a.Overlaps(b)
}
