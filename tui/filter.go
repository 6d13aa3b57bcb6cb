package tui

import (
	"fmt"
	"strings"
)

// applyFilter filters the search results based on the filter input
func (m *Model) applyFilter() {
	filterText := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if filterText == "" {
		m.filteredResults = m.searchResults
		m.status = fmt.Sprintf("Showing all %d results", len(m.searchResults))
	} else {
		m.filteredResults = []FileItem{}
		for _, item := range m.searchResults {
			if strings.Contains(strings.ToLower(item.FilterValue()), filterText) {
				m.filteredResults = append(m.filteredResults, item)
			}
		}
		m.status = fmt.Sprintf("Found %d results containing '%s'", len(m.filteredResults), filterText)
	}

	m.page = 0
	m.cursor = 0
}
