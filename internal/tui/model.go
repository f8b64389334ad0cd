package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docrag/internal/chat"
)

// ChatPort is the TUI-facing subset of the chat session.
type ChatPort interface {
	Ask(ctx context.Context, query string, onFragment func(string)) chat.Result
}

// Model is the Bubble Tea model for the chat application. One question is
// in flight at a time; streamed answer fragments land in the transcript as
// they arrive.
type Model struct {
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	transcript string
	partial    string
	status     string
	busy       bool
	ready      bool
	events     chan tea.Msg
	cancel     context.CancelFunc
}

type fragmentMsg struct{ text string }

type answerDoneMsg struct{ result chat.Result }

// New creates a new chat TUI model.
func New(service ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Ask a question about your documents (quit/exit/q to leave)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{service: service, input: ti, viewport: vp, status: "Ready. Type a question."}
	m.transcript = "RAG Chatbot - Ask questions about your documents!\n"
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer-stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + th // header, status, frames
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.refresh()
		return m, nil

	case fragmentMsg:
		m.partial += msg.text
		m.refresh()
		return m, waitForEvent(m.events)

	case answerDoneMsg:
		m.stopQuery()
		m.busy = false
		m.partial = ""
		m.transcript += "\nAssistant: " + msg.result.Answer + "\n"
		if n := len(msg.result.Sources); n > 0 {
			m.status = fmt.Sprintf("Answered from %d source(s).", n)
		} else {
			m.status = "No relevant context found."
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.stopQuery()
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.busy {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				// blank input: just re-prompt
				return m, nil
			}
			if isQuitWord(q) {
				m.stopQuery()
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Searching for relevant information..."
			m.transcript += "\nYou: " + q + "\n"
			m.events = make(chan tea.Msg, 64)
			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			m.refresh()
			return m, tea.Batch(startQuery(ctx, m.service, q, m.events), waitForEvent(m.events))
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docrag chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	content := m.transcript
	if m.partial != "" {
		content += "\nAssistant: " + m.partial
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// stopQuery cancels the in-flight query's context, if any, so quitting the
// program does not leave embed or generate calls running.
func (m *Model) stopQuery() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func startQuery(ctx context.Context, service ChatPort, query string, events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			result := service.Ask(ctx, query, func(frag string) {
				events <- fragmentMsg{text: frag}
			})
			events <- answerDoneMsg{result: result}
			close(events)
		}()
		return nil
	}
}

func waitForEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func isQuitWord(s string) bool {
	switch strings.ToLower(s) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
