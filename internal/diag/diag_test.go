package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyls/internal/source"
)

func TestFixPayloadCode(t *testing.T) {
	p := FixPayload{ReplacementText: "nullptr", Offset: 12, Length: 4}
	assert.Equal(t, `["nullptr",12,4]`, p.Code())

	got, err := ParseFixCode(p.Code())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestFixPayloadCodeEscapes(t *testing.T) {
	p := FixPayload{ReplacementText: "\"a\"\n\tb", Offset: 0, Length: 0}
	got, err := ParseFixCode(p.Code())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParseFixCodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "not json", code: "modernize-use-nullptr"},
		{name: "too short", code: `["x",1]`},
		{name: "wrong types", code: `[1,"a",2]`},
		{name: "negative", code: `["x",-1,2]`},
		{name: "object", code: `{"offset":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixCode(tt.code)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadFixCode))
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"error", SevError},
		{"Error", SevError},
		{"warning", SevWarning},
		{"Warning", SevWarning},
		{"info", SevInformation},
		{"Remark", SevInformation},
		{"hint", SevHint},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseSeverity("loud")
	assert.Error(t, err)
}

func TestSeverityOrdering(t *testing.T) {
	assert.Equal(t, Severity(1), SevError)
	assert.Equal(t, Severity(4), SevHint)
	assert.True(t, SevError.AtLeast(SevWarning))
	assert.False(t, SevHint.AtLeast(SevWarning))
	assert.False(t, Severity(0).AtLeast(SevHint))
}

func diagAt(path string, line, char int, sev Severity, name string) Diagnostic {
	pos := source.Position{Line: line, Character: char}
	return Diagnostic{
		Path:     path,
		Range:    source.Range{Start: pos, End: pos},
		Severity: sev,
		Source:   SourceClangTidy,
		Name:     name,
		Message:  name,
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(0)
	b.Add(diagAt("b.cpp", 0, 0, SevWarning, "x"))
	b.Add(diagAt("a.cpp", 3, 1, SevWarning, "y"))
	b.Add(diagAt("a.cpp", 3, 1, SevError, "z"))
	b.Add(diagAt("a.cpp", 1, 9, SevWarning, "w"))
	b.Add(diagAt("a.cpp", 1, 9, SevWarning, "w"))

	b.Sort()
	b.Dedup()

	var names []string
	for _, d := range b.Items() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"w", "z", "y", "x"}, names)
	assert.True(t, b.HasErrors())
	assert.Equal(t, 3, b.Count(SevWarning))
}

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	assert.Equal(t, 2, b.AddAll([]Diagnostic{{}, {}, {}}))
	assert.False(t, b.Add(Diagnostic{}))
	assert.Equal(t, 2, b.Len())
}

func TestBagReporter(t *testing.T) {
	b := NewBag(0)
	var r Reporter = BagReporter{Bag: b}
	r.Report(diagAt("f.cpp", 1, 0, SevWarning, "n"))
	BagReporter{}.Report(Diagnostic{})
	assert.Equal(t, 1, b.Len())
}
