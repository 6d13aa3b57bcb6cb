package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) toggleSelection() {
	start, _ := m.pageBounds()
	idx := start + m.cursor
	if idx >= len(m.filteredResults) {
		return
	}
	item := m.filteredResults[idx]
	key := item.url.String()
	if m.selected[key] {
		delete(m.selected, key)
		m.status = "Unselected: " + item.name
	} else {
		m.selected[key] = true
		m.status = "Selected: " + item.name
	}
}

// selectedItems returns the selected results, or the one under the cursor
// when nothing is selected.
func (m Model) selectedItems() []FileItem {
	var items []FileItem
	for _, item := range m.searchResults {
		if m.selected[item.url.String()] {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}
	start, _ := m.pageBounds()
	if idx := start + m.cursor; idx < len(m.filteredResults) {
		items = append(items, m.filteredResults[idx])
	}
	return items
}

// requestSelected asks the backend for every selected file.
func (m *Model) requestSelected() tea.Cmd {
	items := m.selectedItems()
	if len(items) == 0 {
		m.status = "No files selected for download"
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(items))
	for _, item := range items {
		cmds = append(cmds, requestCmd(m.backend, item))
	}
	m.selected = make(map[string]bool)
	m.status = fmt.Sprintf("Requesting %d file(s)", len(items))
	return tea.Batch(cmds...)
}
