package ui

// Stage describes a step of a check run.
type Stage string

const (
	// StageAnalyze is the analyzer subprocess run.
	StageAnalyze Stage = "analyze"
	// StageCollect is per-document offset correction and filtering.
	StageCollect Stage = "collect"
	// StageFix is applying fix payloads to a document.
	StageFix Stage = "fix"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the whole run when File is empty).
type Event struct {
	File        string
	Stage       Stage
	Status      Status
	Diagnostics int // findings for File, set with StatusDone
}

// Sink receives progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}
