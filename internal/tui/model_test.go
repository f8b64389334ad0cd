package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"docrag/internal/chat"
)

// blockingPort hangs inside Ask until its context is cancelled, standing in
// for a slow embed or generate call.
type blockingPort struct {
	started  chan struct{}
	canceled chan struct{}
}

func (p *blockingPort) Ask(ctx context.Context, _ string, _ func(string)) chat.Result {
	close(p.started)
	<-ctx.Done()
	close(p.canceled)
	return chat.Result{}
}

func runBatch(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command from Update")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("expected a batch command")
	}
	for _, c := range batch {
		c := c
		go func() { _ = c() }()
	}
}

func TestQuitCancelsInFlightQuery(t *testing.T) {
	port := &blockingPort{
		started:  make(chan struct{}),
		canceled: make(chan struct{}),
	}
	m := New(port)
	m.input.SetValue("what color is the sky?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model := next.(Model)
	if !model.busy {
		t.Fatal("model not busy after submitting a query")
	}
	runBatch(t, cmd)

	select {
	case <-port.started:
	case <-time.After(time.Second):
		t.Fatal("query never reached the chat session")
	}

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	select {
	case <-port.canceled:
	case <-time.After(time.Second):
		t.Fatal("quitting did not cancel the in-flight query")
	}
}

func TestQuitWordEndsSession(t *testing.T) {
	m := New(&blockingPort{started: make(chan struct{}), canceled: make(chan struct{})})
	for _, word := range []string{"quit", "exit", "q", "QUIT"} {
		m.input.SetValue(word)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatalf("%q produced no command", word)
		}
	}
}

func TestBlankInputIgnored(t *testing.T) {
	m := New(&blockingPort{started: make(chan struct{}), canceled: make(chan struct{})})
	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("blank input produced a command")
	}
	if next.(Model).busy {
		t.Fatal("blank input marked the model busy")
	}
}
