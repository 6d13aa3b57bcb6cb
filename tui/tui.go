package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"xdccd/agent"
	"xdccd/search"
	"xdccd/xdcc"
)

// Backend is the part of the download engine the terminal UI drives.
type Backend interface {
	Networks() []string
	Downloads() []agent.DownloadInfo
	Request(network, fileName, nick, command string) (agent.DownloadID, error)
	Abort(id agent.DownloadID)
	Subscribe() (<-chan agent.Event, func())
}

// Mode represents the current mode of the TUI
type Mode int

const (
	ModeSearch Mode = iota
	ModeResults
	ModeFilter
	ModeDownloads
	ModeMessages
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// FileItem represents a file in search results
type FileItem struct {
	name string
	size int64
	url  xdcc.IRCFile
}

func newFileItem(info search.XdccFileInfo) FileItem {
	return FileItem{name: info.Name, size: info.Size, url: info.URL}
}

func (i FileItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.name, FormatSize(i.size))
}

func (i FileItem) Description() string {
	return i.url.String()
}

func (i FileItem) FilterValue() string {
	return i.name
}

// Run shows the terminal UI until the user quits or ctx is done.
func Run(ctx context.Context, backend Backend, aggregator *search.ProviderAggregator) error {
	events, unsubscribe := backend.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(NewModel(backend, aggregator, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) downloadList() []agent.DownloadInfo {
	list := make([]agent.DownloadInfo, 0, len(m.downloads))
	for _, d := range m.downloads {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// View renders the UI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("xdccd") + "  " + statusStyle.Render(strings.Join(m.backend.Networks(), ", ")) + "\n\n")

	switch m.mode {
	case ModeSearch:
		s.WriteString("Search: " + m.searchInput.View() + "\n")
		if m.busy {
			s.WriteString("\n" + m.spinner.View() + " searching\n")
		}
	case ModeResults, ModeFilter:
		if m.mode == ModeFilter {
			s.WriteString("Filter: " + m.filterInput.View() + "\n\n")
		}
		m.viewResults(&s)
	case ModeDownloads:
		m.viewDownloads(&s)
	case ModeMessages:
		m.viewMessages(&s)
	}

	if m.status != "" {
		s.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	if m.err != "" {
		s.WriteString(errorStyle.Render("error: "+m.err) + "\n")
	}
	s.WriteString("\n" + helpStyle.Render(help[m.mode]) + "\n")
	return s.String()
}

var help = map[Mode]string{
	ModeSearch:    "enter: search | tab: switch view | esc: quit",
	ModeResults:   "space: select | enter: download | j/k: move | h/l: pages | f: filter | s: search | tab: switch view | esc: quit",
	ModeFilter:    "enter: apply filter | esc: cancel",
	ModeDownloads: "j/k: move | x: abort | tab: switch view | esc: quit",
	ModeMessages:  "tab: switch view | esc: quit",
}

func (m Model) viewResults(s *strings.Builder) {
	if len(m.filteredResults) == 0 {
		s.WriteString("No results to display\n")
		return
	}
	totalPages := (len(m.filteredResults)-1)/m.itemsPerPage + 1
	s.WriteString(headerStyle.Render(fmt.Sprintf("Page %d of %d (%d files)", m.page+1, totalPages, len(m.filteredResults))) + "\n")

	start, end := m.pageBounds()
	for i := start; i < end; i++ {
		item := m.filteredResults[i]
		cursor := "  "
		if i-start == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		box := "[ ]"
		if m.selected[item.url.String()] {
			box = selectedStyle.Render("[x]")
		}
		fmt.Fprintf(s, "%s%s %-50.50s %9s  %s\n", cursor, box, item.name, FormatSize(item.size), item.Description())
	}
}

func (m Model) viewDownloads(s *strings.Builder) {
	list := m.downloadList()
	if len(list) == 0 {
		s.WriteString("No active downloads\n")
		return
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%-4s %-40s %-12s %s", "ID", "Name", "Server", "Status")) + "\n")
	for i, d := range list {
		cursor := "  "
		if i == m.downloadCursor {
			cursor = cursorStyle.Render("> ")
		}
		fmt.Fprintf(s, "%s%-4d %-40.40s %-12.12s %s\n", cursor, d.ID, d.FileName, d.Network, m.describe(d.Status))
	}
}

func (m Model) describe(st agent.Status) string {
	switch st.State {
	case agent.StateProgress:
		if st.FileSize > 0 {
			percent := float64(st.Transferred) / float64(st.FileSize)
			return m.progress.ViewAs(percent) + " " + FormatSize(st.Transferred)
		}
		return FormatSize(st.Transferred)
	case agent.StateRequested, agent.StateConnecting:
		return m.spinner.View() + " " + string(st.State)
	case agent.StateDelayed:
		if st.RetryAt != nil {
			return fmt.Sprintf("Delayed until %s", st.RetryAt.Format("15:04:05"))
		}
	case agent.StateFailed:
		return errorStyle.Render("Failed: " + st.Reason)
	}
	return string(st.State)
}

func (m Model) viewMessages(s *strings.Builder) {
	if len(m.messages) == 0 {
		s.WriteString("No messages yet\n")
		return
	}
	for _, line := range m.messages {
		s.WriteString(line + "\n")
	}
}
