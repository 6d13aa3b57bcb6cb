package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"xdccd/agent"
	"xdccd/search"
)

// maxMessages bounds the IRC message log.
const maxMessages = 200

// Messages used with Bubble Tea ------------------------------------------------

type searchResultMsg struct {
	results []FileItem
	err     error
}

type eventMsg struct {
	event agent.Event
	ok    bool
}

type requestMsg struct {
	name string
	id   agent.DownloadID
	err  error
}

// Model represents the TUI state
type Model struct {
	mode       Mode
	backend    Backend
	aggregator *search.ProviderAggregator
	events     <-chan agent.Event

	searchInput textinput.Model
	filterInput textinput.Model
	spinner     spinner.Model
	progress    progress.Model

	searchResults   []FileItem
	filteredResults []FileItem
	// selected is keyed by the IRC url of a result.
	selected     map[string]bool
	cursor       int
	page         int
	itemsPerPage int

	downloads      map[agent.DownloadID]agent.DownloadInfo
	downloadCursor int
	messages       []string

	busy   bool
	status string
	err    string
}

// NewModel creates a model that searches through aggregator and follows the
// backend through events.
func NewModel(backend Backend, aggregator *search.ProviderAggregator, events <-chan agent.Event) Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "search keywords…"
	searchInput.CharLimit = 256
	searchInput.Width = 40
	searchInput.Focus()

	filterInput := textinput.New()
	filterInput.Placeholder = "filter terms…"

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		mode:         ModeSearch,
		backend:      backend,
		aggregator:   aggregator,
		events:       events,
		searchInput:  searchInput,
		filterInput:  filterInput,
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		selected:     make(map[string]bool),
		itemsPerPage: 15,
		downloads:    make(map[agent.DownloadID]agent.DownloadInfo),
		status:       "Enter keywords and press <enter> to search | tab: switch view",
	}
	for _, d := range backend.Downloads() {
		m.downloads[d.ID] = d
	}
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan agent.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		return eventMsg{event: e, ok: ok}
	}
}

func runSearchCmd(aggregator *search.ProviderAggregator, keywords []string) tea.Cmd {
	return func() tea.Msg {
		results, err := aggregator.Search(context.Background(), keywords)
		items := make([]FileItem, 0, len(results))
		for _, r := range results {
			items = append(items, newFileItem(r))
		}
		return searchResultMsg{results: items, err: err}
	}
}

func requestCmd(backend Backend, item FileItem) tea.Cmd {
	return func() tea.Msg {
		id, err := backend.Request(item.url.Network, item.name, item.url.UserName, item.url.Command())
		return requestMsg{name: item.name, id: id, err: err}
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case searchResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err.Error()
			m.status = "search failed"
			return m, nil
		}
		m.err = ""
		m.searchResults = msg.results
		m.selected = make(map[string]bool)
		m.filterInput.SetValue("")
		m.applyFilter()
		m.mode = ModeResults
		m.searchInput.Blur()
		if len(msg.results) == 0 {
			m.status = "No results found for: " + m.searchInput.Value()
		} else {
			m.status = fmt.Sprintf("Found %d results", len(msg.results))
		}
		return m, nil

	case requestMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("Requested %s (#%d)", msg.name, msg.id)
		return m, nil

	case eventMsg:
		if !msg.ok {
			return m, nil
		}
		m.applyEvent(msg.event)
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyEvent(e agent.Event) {
	switch e.Kind {
	case agent.EventDownload:
		d := *e.Download
		if d.Removed {
			delete(m.downloads, d.ID)
			if m.downloadCursor >= len(m.downloads) && m.downloadCursor > 0 {
				m.downloadCursor--
			}
			return
		}
		m.downloads[d.ID] = d
	case agent.EventMessage:
		line := fmt.Sprintf("[%s] %s %s", e.Network, e.Message.Prefix, e.Message.Message)
		m.messages = append(m.messages, line)
		if len(m.messages) > maxMessages {
			m.messages = m.messages[len(m.messages)-maxMessages:]
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.mode {
	case ModeSearch:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if len(m.searchResults) == 0 {
				return m, tea.Quit
			}
			m.setMode(ModeResults)
			return m, nil
		case "tab":
			m.setMode(m.nextMode())
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			keywords := strings.Fields(m.searchInput.Value())
			if len(keywords) == 0 {
				m.status = "please type something to search"
				return m, nil
			}
			m.busy = true
			m.status = "Searching for " + strings.Join(keywords, " ") + "..."
			return m, runSearchCmd(m.aggregator, keywords)
		}
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd

	case ModeFilter:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.filterInput.SetValue("")
			m.applyFilter()
			m.setMode(ModeResults)
			return m, nil
		case "enter":
			m.setMode(ModeResults)
			m.status = "Filter applied"
			return m, nil
		}
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	case "tab":
		m.setMode(m.nextMode())
	case "s":
		m.setMode(ModeSearch)
	case "f":
		if m.mode == ModeResults {
			m.setMode(ModeFilter)
		}
	case " ", "space":
		if m.mode == ModeResults {
			m.toggleSelection()
		}
	case "enter", "d":
		if m.mode == ModeResults {
			return m, m.requestSelected()
		}
	case "x":
		if m.mode == ModeDownloads {
			m.abortCurrent()
		}
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "h", "left":
		if m.mode == ModeResults && m.page > 0 {
			m.page--
			m.cursor = 0
		}
	case "l", "right":
		if m.mode == ModeResults && m.page < m.lastPage() {
			m.page++
			m.cursor = 0
		}
	}
	return m, nil
}

func (m Model) nextMode() Mode {
	switch m.mode {
	case ModeSearch:
		if len(m.searchResults) > 0 {
			return ModeResults
		}
		return ModeDownloads
	case ModeResults:
		return ModeDownloads
	case ModeDownloads:
		return ModeMessages
	}
	return ModeSearch
}

func (m *Model) setMode(mode Mode) {
	m.mode = mode
	m.searchInput.Blur()
	m.filterInput.Blur()
	switch mode {
	case ModeSearch:
		m.searchInput.Focus()
		m.status = "Enter search terms"
	case ModeFilter:
		m.filterInput.Focus()
		m.status = "Enter filter terms"
	case ModeDownloads:
		m.status = fmt.Sprintf("%d download(s)", len(m.downloads))
	case ModeMessages:
		m.status = fmt.Sprintf("%d message(s)", len(m.messages))
	}
}

func (m *Model) moveCursor(delta int) {
	switch m.mode {
	case ModeResults:
		start, end := m.pageBounds()
		m.cursor = clamp(m.cursor+delta, 0, end-start-1)
	case ModeDownloads:
		m.downloadCursor = clamp(m.downloadCursor+delta, 0, len(m.downloads)-1)
	}
}

func (m *Model) abortCurrent() {
	list := m.downloadList()
	if m.downloadCursor >= len(list) {
		return
	}
	d := list[m.downloadCursor]
	m.backend.Abort(d.ID)
	m.status = fmt.Sprintf("Aborted %s", d.FileName)
}

func (m Model) pageBounds() (int, int) {
	start := m.page * m.itemsPerPage
	end := start + m.itemsPerPage
	if end > len(m.filteredResults) {
		end = len(m.filteredResults)
	}
	if start > end {
		start = end
	}
	return start, end
}

func (m Model) lastPage() int {
	if len(m.filteredResults) == 0 {
		return 0
	}
	return (len(m.filteredResults) - 1) / m.itemsPerPage
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
