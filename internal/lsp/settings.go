package lsp

import (
	"encoding/json"
	"fmt"
	"reflect"

	"tidyls/internal/config"
	"tidyls/internal/trace"
)

// SettingsSection is the configuration section the server reads.
const SettingsSection = "clang-tidy"

type lspSettings struct {
	ClangTidy *config.Overrides `json:"clang-tidy"`
}

// parseOverrides extracts the clang-tidy section from raw. ok is false
// when the section is absent.
func parseOverrides(raw json.RawMessage) (overrides config.Overrides, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return config.Overrides{}, false, nil
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return config.Overrides{}, false, fmt.Errorf("decode %s settings: %w", SettingsSection, err)
	}
	if settings.ClangTidy == nil {
		return config.Overrides{}, false, nil
	}
	return *settings.ClangTidy, true, nil
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "didChangeConfiguration", "%v", err)
		return nil
	}
	if s.applySettings(params.Settings) {
		s.relintAll("configuration changed")
	}
	return nil
}

// applySettings replaces the editor overrides and reports whether the
// effective settings changed.
func (s *Server) applySettings(raw json.RawMessage) bool {
	overrides, ok, err := parseOverrides(raw)
	if err != nil {
		trace.Errorf(s.tracer, trace.ScopeServer, "settings", "%v", err)
		return false
	}
	if !ok {
		return false
	}
	s.mu.Lock()
	before := s.settingsLocked()
	s.overrides = overrides
	after := s.settingsLocked()
	s.mu.Unlock()

	changed := !reflect.DeepEqual(before, after)
	trace.Logf(s.tracer, trace.ScopeServer, "settings", "executable=%s checks=%v changed=%t", after.Executable, after.Checks, changed)
	return changed
}

func (s *Server) settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked()
}

func (s *Server) settingsLocked() config.Settings {
	return s.base.Apply(s.overrides)
}
