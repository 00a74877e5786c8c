package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyChanges(t *testing.T) {
	text := "int a;\nint é = 0;\n"

	got := applyChanges(text, []textDocumentContentChangeEvent{{
		Range: &lspRange{Start: position{Line: 1, Character: 4}, End: position{Line: 1, Character: 5}},
		Text:  "b",
	}})
	assert.Equal(t, "int a;\nint b = 0;\n", got)

	got = applyChanges(text, []textDocumentContentChangeEvent{
		{Text: "x\n"},
		{Range: &lspRange{Start: position{Line: 1, Character: 0}, End: position{Line: 1, Character: 0}}, Text: "y"},
	})
	assert.Equal(t, "x\ny", got)

	got = applyChanges("a🙂b", []textDocumentContentChangeEvent{{
		Range: &lspRange{Start: position{Line: 0, Character: 3}, End: position{Line: 0, Character: 4}},
		Text:  "c",
	}})
	assert.Equal(t, "a🙂c", got, "emoji is two units")

	assert.Equal(t, text, applyChanges(text, nil))
}
