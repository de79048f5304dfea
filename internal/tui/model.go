package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
)

// ChatPort is the TUI-facing subset of the pipeline service.
type ChatPort interface {
	Answer(ctx context.Context, query string, history []domain.Message) (domain.Answer, error)
	SearchDocuments(ctx context.Context, query string) []domain.SearchResult
}

// Model is the Bubble Tea model for the chat application. Questions go
// through retrieval and the chat model; "/find <phrase>" runs a keyword
// search over the indexed pages instead.
type Model struct {
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	history    []domain.Message
	transcript []string
	status     string
	ready      bool
}

// New creates a new chat model instance.
func New(service ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /find <phrase>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.SetValue("")
			if phrase, ok := strings.CutPrefix(q, "/find "); ok {
				m.runSearch(strings.TrimSpace(phrase))
			} else {
				m.runQuestion(q)
			}
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runQuestion(q string) {
	m.transcript = append(m.transcript, userStyle.Render("You: ")+q)
	answer, err := m.service.Answer(context.Background(), q, m.history)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.transcript = append(m.transcript, assistantStyle.Render("Assistant: ")+answer.Text)
	if len(answer.Sources) > 0 {
		m.transcript = append(m.transcript,
			sourceStyle.Render("Sources: "+strings.Join(answer.Sources, ", ")))
	}
	m.history = append(m.history,
		domain.Message{Role: domain.RoleUser, Content: q},
		domain.Message{Role: domain.RoleAssistant, Content: answer.Text},
	)
	m.status = "Ready."
}

func (m *Model) runSearch(phrase string) {
	if phrase == "" {
		m.status = "Usage: /find <phrase>"
		return
	}
	m.transcript = append(m.transcript, userStyle.Render("Find: ")+phrase)
	results := m.service.SearchDocuments(context.Background(), phrase)
	if len(results) == 0 {
		m.transcript = append(m.transcript, "No matching pages.")
		m.status = "Ready."
		return
	}
	for _, r := range results {
		m.transcript = append(m.transcript, fmt.Sprintf("  %s p.%d (%.2f): %s",
			r.Filename, r.Page, r.Score, r.Snippet))
	}
	m.status = fmt.Sprintf("%d matching pages.", len(results))
}

// View renders the TUI layout and chat transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "Ask a question about your documents."
	}
	return strings.Join(m.transcript, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
