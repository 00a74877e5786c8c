package diagfmt

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"tidyls/internal/diag"
	"tidyls/internal/fix"
	"tidyls/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, hint *color.Color
	path, gutter, caret   *color.Color
	check, fixText        *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		hint:    color.New(color.FgBlue),
		path:    color.New(color.Bold),
		gutter:  color.New(color.FgBlue, color.Bold),
		caret:   color.New(color.FgGreen, color.Bold),
		check:   color.New(color.Faint),
		fixText: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.hint, p.path, p.gutter, p.caret, p.check, p.fixText} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	case diag.SevInformation:
		return p.info
	default:
		return p.hint
	}
}

// Pretty writes diagnostics with the offending source line and a caret
// marker underneath. Documents missing from fs are printed without context.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var sb strings.Builder

	for i, d := range bag.Items() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		path := FormatPath(d.Path, opts.PathMode, opts.BaseDir)
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s",
			p.path.Sprint(path),
			d.Range.Start.Line+1,
			d.Range.Start.Character+1,
			p.severity(d.Severity).Sprint(d.Severity.String()),
			d.Message,
		)
		if d.Name != "" {
			sb.WriteString(" " + p.check.Sprintf("[%s]", d.Name))
		}
		sb.WriteByte('\n')

		var file *source.File
		if fs != nil {
			file, _ = fs.GetByPath(d.Path)
		}
		if file == nil {
			continue
		}
		writeSnippet(&sb, p, file, d.Range)
		if opts.ShowFixes && d.Fix != nil {
			writeFix(&sb, p, file, &d, i)
		}
	}

	if opts.Summary && bag.Len() > 0 {
		sb.WriteByte('\n')
		sb.WriteString(summaryTable(bag, opts.Color))
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeSnippet(sb *strings.Builder, p palette, file *source.File, r source.Range) {
	line := r.Start.Line
	if line < 0 || line >= file.LineCount() {
		return
	}
	lineText := file.Line(line)
	start, end := lineColumns(file, r, len(lineText))

	num := strconv.Itoa(line + 1)
	pad := strings.Repeat(" ", len(num))
	fmt.Fprintf(sb, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), expandTabs(lineText))

	lead := runewidth.StringWidth(expandTabs(lineText[:start]))
	width := max(runewidth.StringWidth(expandTabs(lineText[start:end])), 1)
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(sb, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", lead), p.caret.Sprint(marker))
}

// lineColumns maps r onto byte columns of its first line. Ranges that run
// past the line are cut at its end.
func lineColumns(file *source.File, r source.Range, lineLen int) (start, end int) {
	lineStart := file.ByteOffset(file.OffsetAt(source.Position{Line: r.Start.Line}))
	start = file.ByteOffset(file.OffsetAt(r.Start)) - lineStart
	if r.End.Line == r.Start.Line {
		end = file.ByteOffset(file.OffsetAt(r.End)) - lineStart
	} else {
		end = lineLen
	}
	start = min(max(start, 0), lineLen)
	end = min(max(end, start), lineLen)
	return start, end
}

func writeFix(sb *strings.Builder, p palette, file *source.File, d *diag.Diagnostic, idx int) {
	f, ok := fix.FromDiagnostic(file, d, idx)
	if !ok {
		return
	}
	if f.Edit.NewText == "" {
		fmt.Fprintf(sb, "   = fix: %s\n", p.fixText.Sprint("remove code"))
	} else {
		fmt.Fprintf(sb, "   = fix: replace with %s\n", p.fixText.Sprintf("`%s`", f.Edit.NewText))
	}
	preview, err := buildFixEditPreview(file, f.Edit)
	if err != nil {
		return
	}
	for _, l := range preview.before {
		fmt.Fprintf(sb, "     %s %s\n", p.err.Sprint("-"), expandTabs(l))
	}
	for _, l := range preview.after {
		fmt.Fprintf(sb, "     %s %s\n", p.fixText.Sprint("+"), expandTabs(l))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

type checkCount struct {
	name  string
	sev   diag.Severity
	count int
}

// summaryTable renders per-check counts, most frequent first.
func summaryTable(bag *diag.Bag, colored bool) string {
	byCheck := make(map[string]*checkCount)
	for _, d := range bag.Items() {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		c, ok := byCheck[name]
		if !ok {
			c = &checkCount{name: name, sev: d.Severity}
			byCheck[name] = c
		}
		c.count++
		if d.Severity < c.sev {
			c.sev = d.Severity
		}
	}
	rows := make([]*checkCount, 0, len(byCheck))
	for _, c := range byCheck {
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Severity", "Count"})
	for _, c := range rows {
		t.AppendRow(table.Row{c.name, c.sev.String(), c.count})
	}
	t.AppendFooter(table.Row{"Total", severityTotals(bag), bag.Len()})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Style().Format.Footer = text.FormatDefault
	if colored {
		t.Style().Color.Header = text.Colors{text.Bold}
		t.Style().Color.Footer = text.Colors{text.Bold}
	}
	return t.Render()
}

func severityTotals(bag *diag.Bag) string {
	parts := make([]string, 0, 4)
	for _, sev := range []diag.Severity{diag.SevError, diag.SevWarning, diag.SevInformation, diag.SevHint} {
		if n := bag.Count(sev); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return strings.Join(parts, ", ")
}
