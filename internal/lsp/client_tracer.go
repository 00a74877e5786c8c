package lsp

import (
	"strings"

	"tidyls/internal/trace"
)

// clientTracer forwards trace events to the editor as window/logMessage
// notifications.
type clientTracer struct {
	server *Server
	level  trace.Level
}

func (t *clientTracer) Emit(ev *trace.Event) {
	if !t.level.Allows(ev) {
		return
	}
	params := logMessageParams{Type: messageLog}
	switch ev.Kind {
	case trace.KindError:
		params.Type = messageError
		params.Message = ev.Name + ": " + ev.Detail
	case trace.KindPoint:
		params.Message = ev.Name + ": " + ev.Detail
	default:
		params.Message = strings.TrimSpace(string(trace.FormatEvent(ev, trace.FormatText)))
	}
	// a closed client cannot be told that logging failed
	_ = t.server.sendNotification("window/logMessage", params)
}

func (t *clientTracer) Flush() error       { return nil }
func (t *clientTracer) Close() error       { return nil }
func (t *clientTracer) Level() trace.Level { return t.level }
func (t *clientTracer) Enabled() bool      { return t.level > trace.LevelOff }
