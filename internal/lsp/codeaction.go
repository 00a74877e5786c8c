package lsp

import (
	"encoding/json"
	"strings"

	"tidyls/internal/diag"
	"tidyls/internal/fix"
	"tidyls/internal/source"
)

const kindQuickFix = "quickfix"

// handleCodeAction turns the fix payload stored in each clang-tidy
// diagnostic code back into an edit of the open document.
func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	actions := []codeAction{}
	if !wantsQuickFix(params.Context.Only) {
		return s.sendResponse(msg.ID, actions)
	}

	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	doc := s.docs[uri]
	var file *source.File
	if doc != nil {
		file = source.NewFile(doc.path, []byte(doc.text))
	}
	s.mu.Unlock()
	if file == nil {
		return s.sendResponse(msg.ID, actions)
	}

	for _, d := range params.Context.Diagnostics {
		if d.Source != diag.SourceClangTidy {
			continue
		}
		payload, err := diag.ParseFixCode(d.Code)
		if err != nil {
			continue
		}
		check := ""
		if d.Data != nil {
			check = d.Data.Check
		}
		title := fix.Title(&diag.Diagnostic{Message: d.Message, Name: check, Fix: &payload})
		actions = append(actions, codeAction{
			Title:       title,
			Kind:        kindQuickFix,
			Diagnostics: []lspDiagnostic{d},
			IsPreferred: true,
			Edit: &workspaceEdit{
				Changes: map[string][]textEdit{
					params.TextDocument.URI: {{
						Range:   fromSourceRange(fix.RangeOf(file, payload)),
						NewText: payload.ReplacementText,
					}},
				},
			},
		})
	}
	return s.sendResponse(msg.ID, actions)
}

func wantsQuickFix(only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, kind := range only {
		if kind == kindQuickFix || strings.HasPrefix(kindQuickFix, kind+".") {
			return true
		}
	}
	return false
}
