package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"tidyls/internal/config"
	"tidyls/internal/lint"
	"tidyls/internal/runner"
	"tidyls/internal/tidy"
	"tidyls/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// CommandLintFile lints one document on request.
const CommandLintFile = "clang-tidy.lintFile"

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Runner     lint.Runner                              // defaults to runner.New()
	Tracer     trace.Tracer                             // extra sink besides the client log
	LogLevel   trace.Level                              // level of window/logMessage; defaults to info
	LoadConfig func(dir string) (config.Loaded, error) // defaults to config.Load
	Version    string
}

// Server handles stdio JSON-RPC for the clang-tidy language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	mu                sync.Mutex
	docs              map[string]*document
	lastTouched       string
	published         map[string]struct{}
	ws                tidy.Workspace
	base              config.Settings
	overrides         config.Overrides
	shutdownRequested bool
	seq               uint64

	linter     *lint.Linter
	loadConfig func(dir string) (config.Loaded, error)
	tracer     trace.Tracer
	version    string
	baseCtx    context.Context
	wg         sync.WaitGroup
}

type document struct {
	uri        string
	path       string
	scheme     string
	languageID string
	version    int
	text       string
	seq        uint64 // latest lint request; older results are discarded
}

func (d *document) lintDocument() lint.Document {
	return lint.Document{
		Path:       d.path,
		Scheme:     d.scheme,
		LanguageID: d.languageID,
		Content:    []byte(d.text),
	}
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	r := opts.Runner
	if r == nil {
		r = runner.New()
	}
	load := opts.LoadConfig
	if load == nil {
		load = config.Load
	}
	level := opts.LogLevel
	if level == trace.LevelOff {
		level = trace.LevelInfo
	}
	s := &Server{
		in:         bufio.NewReader(in),
		out:        bufio.NewWriter(out),
		docs:       make(map[string]*document),
		published:  make(map[string]struct{}),
		base:       config.Default(),
		linter:     lint.New(r),
		loadConfig: load,
		version:    opts.Version,
		baseCtx:    context.Background(),
	}
	s.tracer = trace.NewMultiTracer(&clientTracer{server: s, level: level}, opts.Tracer)
	return s
}

// Run serves LSP requests until exit or end of input. Lint runs still in
// flight are cancelled and awaited before it returns.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	defer s.wg.Wait()
	defer s.linter.Cancel()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			trace.Errorf(s.tracer, trace.ScopeServer, "decode", "failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWorkspaceFolders":
		return s.handleDidChangeWorkspaceFolders(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/willSave":
		return s.handleWillSave(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	var roots []string
	for _, folder := range params.WorkspaceFolders {
		if root := uriToPath(folder.URI); root != "" {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 && params.RootURI != "" {
		if root := uriToPath(params.RootURI); root != "" {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 && params.RootPath != "" {
		if abs, err := filepath.Abs(params.RootPath); err == nil {
			roots = append(roots, abs)
		}
	}

	base := config.Default()
	if len(roots) > 0 {
		loaded, err := s.loadConfig(roots[0])
		if err != nil {
			trace.Errorf(s.tracer, trace.ScopeServer, "config", "%v", err)
		} else {
			base = loaded.Settings
			if loaded.Path != "" {
				trace.Logf(s.tracer, trace.ScopeServer, "config", "loaded %s", loaded.Path)
			}
			for _, key := range loaded.Unknown {
				trace.Logf(s.tracer, trace.ScopeServer, "config", "unknown key %q in %s", key, loaded.Path)
			}
		}
	}

	s.mu.Lock()
	s.ws = tidy.NewWorkspace(roots...)
	s.base = base
	s.mu.Unlock()
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    syncFull,
				WillSave:  true,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			CodeActionProvider: &codeActionOptions{
				CodeActionKinds: []string{kindQuickFix},
			},
			ExecuteCommandProvider: &executeCommandOptions{
				Commands: []string{CommandLintFile},
			},
			Workspace: &workspaceServerCapabilities{
				WorkspaceFolders: workspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
		ServerInfo: &serverInfo{Name: "tidyls", Version: s.version},
	}
	trace.Logf(s.tracer, trace.ScopeServer, "initialize", "workspace folders: %v", roots)
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.linter.Cancel()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidChangeWorkspaceFolders(msg *rpcMessage) error {
	var params didChangeWorkspaceFoldersParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "workspaceFolders", "%v", err)
		return nil
	}
	removed := make(map[string]bool, len(params.Event.Removed))
	for _, folder := range params.Event.Removed {
		removed[uriToPath(folder.URI)] = true
	}
	s.mu.Lock()
	var roots []string
	for _, root := range s.ws.Roots() {
		if !removed[root] {
			roots = append(roots, root)
		}
	}
	for _, folder := range params.Event.Added {
		if root := uriToPath(folder.URI); root != "" {
			roots = append(roots, root)
		}
	}
	s.ws = tidy.NewWorkspace(roots...)
	s.mu.Unlock()
	trace.Logf(s.tracer, trace.ScopeServer, "workspaceFolders", "workspace folders: %v", roots)
	return nil
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "didOpen", "%v", err)
		return nil
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri] = &document{
		uri:        uri,
		path:       uriToPath(uri),
		scheme:     uriScheme(uri),
		languageID: params.TextDocument.LanguageID,
		version:    params.TextDocument.Version,
		text:       params.TextDocument.Text,
	}
	s.lastTouched = uri
	lintOnOpen := s.settingsLocked().LintOnOpen
	s.mu.Unlock()
	if lintOnOpen {
		s.lint(uri, false, "didOpen")
	}
	return nil
}

// handleDidChange only tracks the text. clang-tidy reads files from disk,
// so unsaved edits are not linted.
func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "didChange", "%v", err)
		return nil
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[uri]
	if doc == nil {
		return nil
	}
	doc.text = applyChanges(doc.text, params.ContentChanges)
	doc.version = params.TextDocument.Version
	s.lastTouched = uri
	return nil
}

// handleWillSave stops the run in flight so that a fix run cannot race
// the editor writing the file.
func (s *Server) handleWillSave(msg *rpcMessage) error {
	var params willSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "willSave", "%v", err)
		return nil
	}
	s.linter.Cancel()
	trace.Logf(s.tracer, trace.ScopeServer, "willSave", "cancelled analyzer for %s", params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "didSave", "%v", err)
		return nil
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	if filepath.Base(uriToPath(uri)) == ".clang-tidy" {
		s.relintAll(".clang-tidy saved")
		return nil
	}

	s.mu.Lock()
	doc := s.docs[uri]
	if doc != nil && params.Text != nil {
		doc.text = *params.Text
	}
	if doc != nil {
		s.lastTouched = uri
	}
	settings := s.settingsLocked()
	s.mu.Unlock()
	if doc == nil {
		return nil
	}
	switch {
	case settings.FixOnSave:
		s.lint(uri, true, "didSave")
	case settings.LintOnSave:
		s.lint(uri, false, "didSave")
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "didClose", "%v", err)
		return nil
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
	if s.lastTouched == uri {
		s.lastTouched = ""
	}
	if _, ok := s.published[uri]; ok {
		delete(s.published, uri)
		if err := s.sendPublish(uri, nil, nil); err != nil {
			trace.Errorf(s.tracer, trace.ScopeServer, "didClose", "failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if params.Command != CommandLintFile {
		return s.sendError(msg.ID, codeInvalidParams, "unknown command: "+params.Command)
	}
	uri := ""
	if len(params.Arguments) > 0 {
		var arg string
		if err := json.Unmarshal(params.Arguments[0], &arg); err == nil {
			uri = canonicalURI(arg)
		}
	}
	s.mu.Lock()
	if uri == "" {
		uri = s.lastTouched
	}
	_, open := s.docs[uri]
	s.mu.Unlock()
	if open {
		s.lint(uri, false, CommandLintFile)
	} else {
		trace.Logf(s.tracer, trace.ScopeServer, "executeCommand", "no open document to lint")
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri := range s.published {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			trace.Errorf(s.tracer, trace.ScopeServer, "shutdown", "failed to clear diagnostics: %v", err)
		}
	}
	clear(s.published)
}

// Wait blocks until every lint started so far has published or been
// discarded.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
