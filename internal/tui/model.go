// Package tui is the interactive terminal front end: a search view and a
// document list, each driven by an explicit idle/loading/error/success state.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/docsearch/internal/documents"
	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/models"
	"github.com/hyperjump/docsearch/internal/search"
	"github.com/hyperjump/docsearch/pkg/utils"
)

// Searcher is the TUI-facing subset of the search service.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
}

// Collection is the TUI-facing subset of the document service.
type Collection interface {
	List(ctx context.Context) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

type viewState int

const (
	stateIdle viewState = iota
	stateLoading
	stateError
	stateSuccess
)

func (s viewState) String() string {
	return [...]string{"idle", "loading", "error", "success"}[s]
}

type mode int

const (
	modeSearch mode = iota
	modeDocuments
)

type searchDoneMsg struct {
	seq     int
	results []models.SearchResult
	err     error
}

type docsLoadedMsg struct {
	docs []models.Document
	err  error
}

type deletedMsg struct {
	id  string
	err error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	searcher Searcher
	docs     Collection
	topK     int

	mode     mode
	input    textinput.Model
	viewport viewport.Model
	ready    bool

	searchState viewState
	searchErr   string
	results     []models.SearchResult
	cursor      int
	lastQuery   string
	seq         int

	docState  viewState
	docErr    string
	documents []models.Document
	docCursor int
	notice    string
}

// New creates a model. ctx bounds every request the model issues.
func New(ctx context.Context, searcher Searcher, docs Collection, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, searcher: searcher, docs: docs, topK: topK, input: ti, viewport: vp}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) runSearch(query string) tea.Cmd {
	seq, ctx, s, topK := m.seq, m.ctx, m.searcher, m.topK
	return func() tea.Msg {
		res, err := s.Search(ctx, query, topK)
		return searchDoneMsg{seq: seq, results: res, err: err}
	}
}

func (m Model) loadDocuments() tea.Cmd {
	ctx, c := m.ctx, m.docs
	return func() tea.Msg {
		docs, err := c.List(ctx)
		return docsLoadedMsg{docs: docs, err: err}
	}
}

func (m Model) deleteDocument(id string) tea.Cmd {
	ctx, c := m.ctx, m.docs
	return func() tea.Msg {
		return deletedMsg{id: id, err: c.Delete(ctx, id)}
	}
}

// Update handles key, window and request-completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+tabs, status, input box
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case searchDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.searchState = stateError
			m.searchErr = httpclient.Message(msg.err, search.MsgSearchFailed)
			m.results = nil
		} else {
			m.searchState = stateSuccess
			m.searchErr = ""
			m.results = msg.results
			m.cursor = 0
		}
		m.refresh()
		return m, nil

	case docsLoadedMsg:
		if msg.err != nil {
			m.docState = stateError
			m.docErr = httpclient.Message(msg.err, documents.MsgListFailed)
		} else {
			m.docState = stateSuccess
			m.docErr = ""
			m.documents = msg.docs
		}
		m.clampDocCursor()
		m.refresh()
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.docState = stateError
			m.docErr = httpclient.Message(msg.err, documents.MsgDeleteFailed)
			m.refresh()
			return m, nil
		}
		m.documents = without(m.documents, msg.id)
		m.clampDocCursor()
		m.notice = "Deleted " + msg.id
		m.refresh()
		return m, m.loadDocuments()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			return m.switchMode()
		}
		if m.mode == modeDocuments {
			return m.updateDocuments(msg)
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.searchState == stateLoading {
				return m, nil
			}
			m.seq++
			m.searchState = stateLoading
			m.lastQuery = q
			m.refresh()
			return m, m.runSearch(q)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
			}
			return m, nil
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
			}
			return m, nil
		}
	}

	if m.mode != modeSearch {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) switchMode() (tea.Model, tea.Cmd) {
	if m.mode == modeSearch {
		m.mode = modeDocuments
		m.input.Blur()
		var cmd tea.Cmd
		if m.docState == stateIdle {
			m.docState = stateLoading
			cmd = m.loadDocuments()
		}
		m.refresh()
		return m, cmd
	}
	m.mode = modeSearch
	m.refresh()
	return m, m.input.Focus()
}

func (m Model) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.docState == stateLoading {
		return m, nil
	}
	switch msg.String() {
	case "r":
		m.docState = stateLoading
		m.notice = ""
		m.refresh()
		return m, m.loadDocuments()
	case "d":
		if m.docCursor < 0 || m.docCursor >= len(m.documents) {
			return m, nil
		}
		id := m.documents[m.docCursor].ID
		m.docState = stateLoading
		m.refresh()
		return m, m.deleteDocument(id)
	case "down", "j":
		if len(m.documents) > 0 {
			m.docCursor = (m.docCursor + 1) % len(m.documents)
		}
	case "up", "k":
		if len(m.documents) > 0 {
			m.docCursor = (m.docCursor - 1 + len(m.documents)) % len(m.documents)
		}
	}
	m.refresh()
	return m, nil
}

// without drops id from a snapshot after the server confirmed its deletion.
func without(docs []models.Document, id string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

// clampDocCursor keeps the selection on an existing row.
func (m *Model) clampDocCursor() {
	if m.docCursor >= len(m.documents) {
		m.docCursor = len(m.documents) - 1
	}
	if m.docCursor < 0 {
		m.docCursor = 0
	}
}

func (m *Model) refresh() {
	if m.mode == modeDocuments {
		m.viewport.SetContent(m.renderDocuments())
	} else {
		m.viewport.SetContent(m.renderSearch())
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docsearch")
	tabs := m.renderTabs()
	body := bodyStyle.Render(m.viewport.View())
	var b strings.Builder
	b.WriteString(header + "\n" + tabs + "\n" + body + "\n")
	if m.mode == modeSearch {
		b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	}
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderTabs() string {
	names := []string{"Search", "Documents"}
	parts := make([]string, len(names))
	for i, n := range names {
		if mode(i) == m.mode {
			parts[i] = activeTabStyle.Render(n)
		} else {
			parts[i] = tabStyle.Render(n)
		}
	}
	return strings.Join(parts, " ") + hintStyle.Render("  tab: switch  esc: quit")
}

func (m Model) renderStatus() string {
	if m.mode == modeDocuments {
		switch m.docState {
		case stateLoading:
			return hintStyle.Render("Working...")
		case stateError:
			return errorStyle.Render("Error: " + m.docErr)
		}
		if m.notice != "" {
			return okStyle.Render(m.notice)
		}
		return hintStyle.Render(fmt.Sprintf("%d documents  r: refresh  d: delete", len(m.documents)))
	}
	switch m.searchState {
	case stateLoading:
		return hintStyle.Render(fmt.Sprintf("Searching for %q...", m.lastQuery))
	case stateError:
		return errorStyle.Render("Error: " + m.searchErr)
	case stateSuccess:
		return okStyle.Render(fmt.Sprintf("%d results for %q", len(m.results), m.lastQuery))
	}
	return hintStyle.Render("Type to search.")
}

func (m Model) renderSearch() string {
	switch m.searchState {
	case stateIdle:
		return "No results yet."
	case stateLoading:
		return "Searching..."
	case stateError:
		return errorStyle.Render(m.searchErr)
	}
	if len(m.results) == 0 {
		return "No results found."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%s", m.cursor+1, len(m.results), r.FormatScore())
	return titleStyle.Render(title) + "\n" + r.DisplayTitle() + "\n\n" + r.Content
}

func (m Model) renderDocuments() string {
	if m.docState == stateError && len(m.documents) == 0 {
		return errorStyle.Render(m.docErr)
	}
	if m.docState == stateLoading && m.documents == nil {
		return "Loading documents..."
	}
	if len(m.documents) == 0 {
		return "No documents found."
	}
	var b strings.Builder
	for i, d := range m.documents {
		line := fmt.Sprintf("%-12s %-40s %s", statusLabel(d.Status), utils.Truncate(titleOrID(d), 40), d.SourceType)
		if i == m.docCursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func titleOrID(d models.Document) string {
	if d.Title != "" {
		return d.Title
	}
	return d.ID
}

func statusLabel(s models.Status) string {
	style := hintStyle
	switch s {
	case models.StatusReady:
		style = okStyle
	case models.StatusFailed:
		style = errorStyle
	}
	return style.Render(string(s))
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	bodyStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Run starts the program on the terminal and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
