package diagfmt

import (
	"encoding/json"
	"io"

	"tidyls/internal/diag"
	"tidyls/internal/fix"
	"tidyls/internal/source"
)

// PositionJSON is a one-based line and UTF-16 column.
type PositionJSON struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// LocationJSON locates a diagnostic in a file.
type LocationJSON struct {
	File  string       `json:"file"`
	Start PositionJSON `json:"start"`
	End   PositionJSON `json:"end"`
}

// FixEditJSON is one replacement with an optional line preview.
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	Code        string       `json:"code"` // [text, offset, length]
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

// FixJSON is a quick fix attached to a diagnostic.
type FixJSON struct {
	ID    string      `json:"id,omitempty"`
	Title string      `json:"title"`
	Edit  FixEditJSON `json:"edit"`
}

// DiagnosticJSON is a diagnostic in JSON form.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Check    string       `json:"check,omitempty"`
	Source   string       `json:"source"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Fix      *FixJSON     `json:"fix,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

func makeLocation(path string, r source.Range, opts JSONOpts) LocationJSON {
	end := r.End
	if end.Character == source.MaxColumn {
		end.Character = -1 // rendered as column 0: end of line
	}
	return LocationJSON{
		File:  FormatPath(path, opts.PathMode, opts.BaseDir),
		Start: PositionJSON{Line: r.Start.Line + 1, Column: r.Start.Character + 1},
		End:   PositionJSON{Line: end.Line + 1, Column: end.Character + 1},
	}
}

// BuildDiagnosticsOutput builds the JSON document without serializing it.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, n)
	for i := range n {
		d := items[i]
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Check:    d.Name,
			Source:   d.Source,
			Message:  d.Message,
			Location: makeLocation(d.Path, d.Range, opts),
		}
		if opts.IncludeFixes && d.Fix != nil {
			dj.Fix = buildFixJSON(fs, &d, i, opts)
		}
		diagnostics = append(diagnostics, dj)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
		Errors:      bag.Count(diag.SevError),
		Warnings:    bag.Count(diag.SevWarning),
	}
}

func buildFixJSON(fs *source.FileSet, d *diag.Diagnostic, idx int, opts JSONOpts) *FixJSON {
	fj := &FixJSON{
		Title: fix.Title(d),
		Edit: FixEditJSON{
			NewText: d.Fix.ReplacementText,
			Code:    d.Fix.Code(),
		},
	}
	var file *source.File
	if fs != nil {
		file, _ = fs.GetByPath(d.Path)
	}
	if file == nil {
		fj.Edit.Location = LocationJSON{File: FormatPath(d.Path, opts.PathMode, opts.BaseDir)}
		return fj
	}
	f, _ := fix.FromDiagnostic(file, d, idx)
	fj.ID = f.ID
	fj.Edit.Location = makeLocation(d.Path, f.Range, opts)
	if opts.IncludePreviews {
		if preview, err := buildFixEditPreview(file, f.Edit); err == nil {
			fj.Edit.BeforeLines = preview.before
			fj.Edit.AfterLines = preview.after
		}
	}
	return fj
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
