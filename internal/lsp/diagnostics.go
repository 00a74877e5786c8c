package lsp

import (
	"context"
	"errors"

	"tidyls/internal/config"
	"tidyls/internal/diag"
	"tidyls/internal/lint"
	"tidyls/internal/runner"
	"tidyls/internal/tidy"
	"tidyls/internal/trace"
)

type lintRequest struct {
	uri      string
	seq      uint64
	doc      lint.Document
	settings config.Settings
	ws       tidy.Workspace
	fix      bool
}

// lint starts an analyzer run for the open document uri. The result is
// published only if no newer request for the document was made meanwhile.
func (s *Server) lint(uri string, fix bool, reason string) {
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return
	}
	s.seq++
	doc.seq = s.seq
	req := lintRequest{
		uri:      uri,
		seq:      doc.seq,
		doc:      doc.lintDocument(),
		settings: s.settingsLocked(),
		ws:       s.ws,
		fix:      fix,
	}
	s.mu.Unlock()

	trace.Logf(s.tracer, trace.ScopeServer, "lint", "%s: %s (fix=%t)", reason, uri, fix)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLint(req)
	}()
}

func (s *Server) runLint(req lintRequest) {
	ctx := trace.WithTracer(s.baseCtx, s.tracer)
	diags, err := s.linter.Lint(ctx, req.doc, req.settings, req.ws, req.fix)
	switch {
	case err == nil:
	case errors.Is(err, lint.ErrSkipped):
		// a document that no longer passes the gates loses what it showed
		trace.Logf(s.tracer, trace.ScopeLint, "skip", "%s: %v", req.uri, err)
		diags = nil
	case errors.Is(err, runner.ErrLaunch):
		trace.Errorf(s.tracer, trace.ScopeLint, "launch", "%v", err)
		diags = nil
	case errors.Is(err, runner.ErrSuperseded), errors.Is(err, context.Canceled):
		trace.Logf(s.tracer, trace.ScopeLint, "superseded", "%s: keeping previous diagnostics", req.uri)
		return
	default:
		trace.Errorf(s.tracer, trace.ScopeLint, "lint", "%s: %v", req.uri, err)
		return
	}
	s.publishIfCurrent(req.uri, req.seq, diags)
}

// relintAll lints every open document again with one analyzer run per
// workspace root.
func (s *Server) relintAll(reason string) {
	s.mu.Lock()
	if len(s.docs) == 0 {
		s.mu.Unlock()
		return
	}
	settings := s.settingsLocked()
	ws := s.ws
	docs := make([]lint.Document, 0, len(s.docs))
	uris := make([]string, 0, len(s.docs))
	seqs := make([]uint64, 0, len(s.docs))
	for uri, doc := range s.docs {
		s.seq++
		doc.seq = s.seq
		docs = append(docs, doc.lintDocument())
		uris = append(uris, uri)
		seqs = append(seqs, doc.seq)
	}
	s.mu.Unlock()

	trace.Logf(s.tracer, trace.ScopeServer, "relint", "%s: %d open documents", reason, len(docs))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := trace.WithTracer(s.baseCtx, s.tracer)
		results, err := s.linter.LintAll(ctx, docs, settings, ws)
		if err != nil {
			trace.Errorf(s.tracer, trace.ScopeLint, "relint", "%v", err)
		}
		for i, doc := range docs {
			diags, ok := results[doc.Path]
			if !ok {
				// missing from the results: either gated, which clears, or
				// part of a failed run, which keeps the previous list
				if s.linter.Check(ctx, doc, settings, ws) == nil {
					continue
				}
				diags = nil
			}
			s.publishIfCurrent(uris[i], seqs[i], diags)
		}
	}()
}

func (s *Server) publishIfCurrent(uri string, seq uint64, diags []diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[uri]
	if doc == nil || doc.seq != seq {
		trace.Logf(s.tracer, trace.ScopeLint, "stale", "%s: discarding result of request %d", uri, seq)
		return
	}
	version := doc.version
	if err := s.sendPublish(uri, &version, toLSPDiagnostics(diags)); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "publish", "%v", err)
		return
	}
	s.published[uri] = struct{}{}
	trace.Logf(s.tracer, trace.ScopeServer, "publish", "%s: %d diagnostics", uri, len(diags))
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: list,
	})
}

func toLSPDiagnostics(diags []diag.Diagnostic) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		item := lspDiagnostic{
			Range:    fromSourceRange(d.Range),
			Severity: int(d.Severity),
			Code:     d.Name,
			Source:   d.Source,
			Message:  d.Message,
		}
		if d.Fix != nil {
			item.Code = d.Fix.Code()
		}
		if d.Name != "" {
			item.Data = &diagnosticData{Check: d.Name}
		}
		out = append(out, item)
	}
	return out
}
