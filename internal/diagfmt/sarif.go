package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"tidyls/internal/diag"
	"tidyls/internal/fix"
	"tidyls/internal/source"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	docsBaseURL  = "https://clang.llvm.org/extra/clang-tidy/checks/"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string        `json:"id"`
	HelpURI          string        `json:"helpUri,omitempty"`
	ShortDescription *sarifMessage `json:"shortDescription,omitempty"`
}

type sarifInvocation struct {
	CommandLine         string `json:"commandLine,omitempty"`
	ExecutionSuccessful bool   `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId,omitempty"`
	RuleIndex *int            `json:"ruleIndex,omitempty"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion   `json:"deletedRegion"`
	InsertedContent *sarifMessage `json:"insertedContent,omitempty"`
}

// sarifLevel maps severities onto SARIF result levels.
func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// sarifRegionOf converts a zero-based UTF-16 range to a one-based SARIF
// region. Whole-line ranges carry no end column.
func sarifRegionOf(r source.Range) sarifRegion {
	reg := sarifRegion{
		StartLine:   r.Start.Line + 1,
		StartColumn: r.Start.Character + 1,
		EndLine:     r.End.Line + 1,
	}
	if r.End.Character != source.MaxColumn {
		reg.EndColumn = r.End.Character + 1
	}
	return reg
}

// checkDocsURL points at the documentation page of a check: the first
// dash separates the group from the check name.
func checkDocsURL(name string) string {
	group, check, ok := strings.Cut(name, "-")
	if !ok || name == diag.SourceClangTidy || strings.HasPrefix(name, "clang-diagnostic") {
		return ""
	}
	return docsBaseURL + group + "/" + check + ".html"
}

// Sarif writes diagnostics as a SARIF 2.1.0 log with one run.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	toolName := meta.ToolName
	if toolName == "" {
		toolName = diag.SourceClangTidy
	}

	ruleIndex := make(map[string]int)
	names := make([]string, 0)
	for _, d := range bag.Items() {
		if d.Name == "" {
			continue
		}
		if _, ok := ruleIndex[d.Name]; !ok {
			ruleIndex[d.Name] = 0
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	rules := make([]sarifRule, len(names))
	for i, name := range names {
		ruleIndex[name] = i
		rules[i] = sarifRule{ID: name, HelpURI: checkDocsURL(name)}
	}

	results := make([]sarifResult, 0, bag.Len())
	for i, d := range bag.Items() {
		uri := FormatPath(d.Path, PathModeRelative, meta.BaseDir)
		res := sarifResult{
			RuleID:  d.Name,
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           sarifRegionOf(d.Range),
				},
			}},
		}
		if idx, ok := ruleIndex[d.Name]; ok && d.Name != "" {
			res.RuleIndex = &idx
		}
		if sf, ok := sarifFixOf(fs, &d, i, uri); ok {
			res.Fixes = []sarifFix{sf}
		}
		results = append(results, res)
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           toolName,
			Version:        meta.ToolVersion,
			InformationURI: "https://clang.llvm.org/extra/clang-tidy/",
			Rules:          rules,
		}},
		Results: results,
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{
			CommandLine:         strings.Join(meta.InvocationArgs, " "),
			ExecutionSuccessful: true,
		}}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{run}}); err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return nil
}

func sarifFixOf(fs *source.FileSet, d *diag.Diagnostic, idx int, uri string) (sarifFix, bool) {
	if d.Fix == nil || fs == nil {
		return sarifFix{}, false
	}
	file, ok := fs.GetByPath(d.Path)
	if !ok {
		return sarifFix{}, false
	}
	f, ok := fix.FromDiagnostic(file, d, idx)
	if !ok {
		return sarifFix{}, false
	}
	rep := sarifReplacement{DeletedRegion: sarifRegionOf(f.Range)}
	if f.Edit.NewText != "" {
		rep.InsertedContent = &sarifMessage{Text: f.Edit.NewText}
	}
	return sarifFix{
		Description: sarifMessage{Text: f.Title},
		ArtifactChanges: []sarifArtifactChange{{
			ArtifactLocation: sarifArtifactLocation{URI: uri},
			Replacements:     []sarifReplacement{rep},
		}},
	}, true
}
