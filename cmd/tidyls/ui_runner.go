package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tidyls/internal/ui"
)

type outcome[T any] struct {
	result T
	err    error
}

// runWithUI runs work in the background while a progress view fed by its
// events is drawn on stderr.
func runWithUI[T any](title string, files []string, work func(ui.Sink) (T, error)) (T, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan outcome[T], 1)

	go func() {
		res, err := work(ui.ChannelSink{Ch: events})
		outcomeCh <- outcome[T]{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// a quit view stops reading; drain so the worker can finish
	go func() {
		for range events {
		}
	}()
	out := <-outcomeCh
	if uiErr != nil {
		return out.result, uiErr
	}
	return out.result, out.err
}
