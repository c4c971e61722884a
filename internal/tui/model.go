// Package tui is the interactive terminal front end for drafting documents.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"legaldraft/internal/service"
)

// DraftPort is the TUI-facing subset of the drafting service.
type DraftPort interface {
	Draft(ctx context.Context, in service.DraftInput) (*service.DraftResult, error)
}

type phase int

const (
	phaseQuery phase = iota
	phaseAnswer
	phaseDraft
)

type draftDoneMsg struct {
	res *service.DraftResult
	err error
}

// Model is the Bubble Tea model for the drafting loop: a request, then one
// question per missing value, then the rendered draft.
type Model struct {
	drafter  DraftPort
	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	header   string
	status   string
	ready    bool
	busy     bool

	phase      phase
	sessionID  string
	templateID int64
	missing    []string
	questions  []string
	current    int
	answers    map[string]any
	draft      string
}

// New creates a new TUI model. header is shown above the conversation.
func New(drafter DraftPort, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0
	m := Model{
		drafter:  drafter,
		input:    ti,
		viewport: viewport.New(0, 0),
		header:   header,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.phase = phaseQuery
	m.sessionID = ""
	m.templateID = 0
	m.missing = nil
	m.questions = nil
	m.current = 0
	m.answers = map[string]any{}
	m.draft = ""
	m.input.Placeholder = "Describe the document you need and press Enter"
	m.input.SetValue("")
	m.status = "Ready."
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		if r, err := newRenderer(m.viewport.Width - 4); err == nil {
			m.renderer = r
		}
		m.viewport.SetContent(m.renderBody())
		return m, nil

	case draftDoneMsg:
		m.busy = false
		m.apply(msg)
		m.viewport.SetContent(m.renderBody())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "esc":
			m.reset()
			m.viewport.SetContent(m.renderBody())
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			if cmd := m.submit(strings.TrimSpace(m.input.Value())); cmd != nil {
				m.busy = true
				m.status = "Working..."
				return m, cmd
			}
			m.viewport.SetContent(m.renderBody())
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit consumes the typed line and returns the draft call to run, if any.
func (m *Model) submit(line string) tea.Cmd {
	switch m.phase {
	case phaseQuery:
		if line == "" {
			return nil
		}
		m.input.SetValue("")
		return m.draftCmd(service.DraftInput{Query: line, Context: map[string]any{}})

	case phaseAnswer:
		if line == "" {
			m.status = "An answer is required."
			return nil
		}
		m.answers[m.missing[m.current]] = line
		m.input.SetValue("")
		m.current++
		if m.current < len(m.missing) {
			m.status = fmt.Sprintf("Question %d of %d", m.current+1, len(m.missing))
			return nil
		}
		return m.draftCmd(service.DraftInput{
			TemplateID: m.templateID,
			SessionID:  m.sessionID,
			Context:    m.answers,
		})
	}
	return nil
}

func (m *Model) draftCmd(in service.DraftInput) tea.Cmd {
	d := m.drafter
	return func() tea.Msg {
		res, err := d.Draft(context.Background(), in)
		return draftDoneMsg{res: res, err: err}
	}
}

func (m *Model) apply(msg draftDoneMsg) {
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		if m.phase == phaseAnswer {
			// let the user retry the last answer
			m.current = max(0, len(m.missing)-1)
		}
		return
	}
	res := msg.res
	m.templateID = res.TemplateID
	switch res.Status {
	case "complete":
		m.phase = phaseDraft
		m.draft = res.Draft
		m.input.Placeholder = "Press Esc to start a new document"
		m.status = res.Message
	default:
		m.phase = phaseAnswer
		m.sessionID = res.SessionID
		m.missing = res.Missing
		m.questions = res.Questions
		m.current = 0
		m.input.Placeholder = "Type your answer and press Enter"
		m.status = fmt.Sprintf("%s Question 1 of %d", res.Message, len(res.Missing))
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Legal Draft")
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	body := bodyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + sub + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderBody() string {
	switch m.phase {
	case phaseAnswer:
		if m.current >= len(m.questions) {
			return "Generating draft..."
		}
		var b strings.Builder
		for i := 0; i < m.current; i++ {
			fmt.Fprintf(&b, "%s\n  %s\n\n", dimStyle.Render(m.questions[i]), m.answers[m.missing[i]])
		}
		b.WriteString(questionStyle.Render(m.questions[m.current]))
		return b.String()
	case phaseDraft:
		if m.renderer != nil {
			if out, err := m.renderer.Render(m.draft); err == nil {
				return out
			}
		}
		return m.draft
	default:
		return "What would you like to draft? For example: \"residential lease agreement\"."
	}
}

func newRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, wordWrap)),
	)
}

var (
	bodyBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
