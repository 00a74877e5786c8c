package tidy

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"tidyls/internal/diag"
)

// ErrMalformedReport is returned when the structured block is present
// but cannot be decoded.
var ErrMalformedReport = errors.New("malformed clang-tidy report")

// Report is the decoded structured block of one analyzer run.
type Report struct {
	MainSourceFile string
	Diagnostics    []Diagnostic
}

// Diagnostic is one analyzer finding with the schema differences between
// analyzer versions already resolved.
type Diagnostic struct {
	Name           string
	Message        string
	FilePath       string
	FileOffset     int // bytes until Correct, UTF-16 units after
	Replacements   []Replacement
	BuildDirectory string
	Severity       diag.Severity
	HasLevel       bool // severity came from the report's Level field
}

// Replacement is a suggested substitution of [Offset, Offset+Length).
type Replacement struct {
	FilePath        string
	Offset          int
	Length          int
	ReplacementText string
}

// Clone returns a deep copy so per-document correction never touches
// a report shared between documents.
func (d Diagnostic) Clone() Diagnostic {
	c := d
	c.Replacements = append(make([]Replacement, 0, len(d.Replacements)), d.Replacements...)
	return c
}

// yamlReport keeps entries as nodes so that one entry of the wrong type
// is dropped on its own instead of failing the whole report.
type yamlReport struct {
	MainSourceFile string      `yaml:"MainSourceFile"`
	Diagnostics    []yaml.Node `yaml:"Diagnostics"`
}

// yamlDiagnostic holds both layouts. Older analyzers put the message fields
// at the top level; newer ones nest them under DiagnosticMessage and add Level.
type yamlDiagnostic struct {
	DiagnosticName    string       `yaml:"DiagnosticName"`
	Level             string       `yaml:"Level"`
	BuildDirectory    string       `yaml:"BuildDirectory"`
	DiagnosticMessage *yamlMessage `yaml:"DiagnosticMessage"`

	Message      *string           `yaml:"Message"`
	FilePath     *string           `yaml:"FilePath"`
	FileOffset   *int              `yaml:"FileOffset"`
	Replacements []yamlReplacement `yaml:"Replacements"`
}

type yamlMessage struct {
	Message      *string           `yaml:"Message"`
	FilePath     *string           `yaml:"FilePath"`
	FileOffset   *int              `yaml:"FileOffset"`
	Replacements []yamlReplacement `yaml:"Replacements"`
}

type yamlReplacement struct {
	FilePath        string `yaml:"FilePath"`
	Offset          int    `yaml:"Offset"`
	Length          int    `yaml:"Length"`
	ReplacementText string `yaml:"ReplacementText"`
}

// ParseReport decodes the structured block of output. The block starts at
// the first line that is exactly "---"; output without one is an empty
// report. Entries that match neither layout, or hold values of the wrong
// type, are dropped.
func ParseReport(output string) (*Report, error) {
	report := &Report{Diagnostics: []Diagnostic{}}
	block, ok := reportBlock(output)
	if !ok {
		return report, nil
	}

	var raw yamlReport
	dec := yaml.NewDecoder(strings.NewReader(block))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	report.MainSourceFile = raw.MainSourceFile
	for i := range raw.Diagnostics {
		var entry yamlDiagnostic
		if err := raw.Diagnostics[i].Decode(&entry); err != nil {
			continue
		}
		if d, ok := entry.resolve(); ok {
			report.Diagnostics = append(report.Diagnostics, d)
		}
	}
	return report, nil
}

// reportBlock returns output from the start marker to the end.
func reportBlock(output string) (string, bool) {
	rest, offset := output, 0
	for {
		line, next, found := strings.Cut(rest, "\n")
		if strings.TrimSuffix(line, "\r") == "---" {
			return output[offset:], true
		}
		if !found {
			return "", false
		}
		offset += len(line) + 1
		rest = next
	}
}

func (y *yamlDiagnostic) resolve() (Diagnostic, bool) {
	d := Diagnostic{
		Name:           y.DiagnosticName,
		BuildDirectory: y.BuildDirectory,
		Severity:       diag.SevWarning,
	}
	if y.Level != "" {
		if sev, err := diag.ParseSeverity(y.Level); err == nil {
			d.Severity = sev
			d.HasLevel = true
		}
	}

	var reps []yamlReplacement
	switch {
	case y.DiagnosticMessage != nil:
		m := y.DiagnosticMessage
		if m.Message == nil || m.FilePath == nil || m.FileOffset == nil {
			return Diagnostic{}, false
		}
		d.Message, d.FilePath, d.FileOffset = *m.Message, *m.FilePath, *m.FileOffset
		reps = m.Replacements
	case y.Message != nil && *y.Message != "" && y.FilePath != nil && *y.FilePath != "" && y.FileOffset != nil:
		d.Message, d.FilePath, d.FileOffset = *y.Message, *y.FilePath, *y.FileOffset
		reps = y.Replacements
	default:
		return Diagnostic{}, false
	}
	if d.FileOffset < 0 {
		return Diagnostic{}, false
	}

	d.Replacements = make([]Replacement, 0, len(reps))
	for _, r := range reps {
		if r.Offset < 0 || r.Length < 0 {
			continue
		}
		d.Replacements = append(d.Replacements, Replacement(r))
	}
	return d, true
}
