package tui

import (
	"fmt"

	"xdccd/search"
)

// FormatSize formats file size in human-readable format
func FormatSize(size int64) string {
	if size < 0 {
		return "--"
	}

	switch {
	case size >= search.GigaByte:
		return fmt.Sprintf("%.2fGB", float64(size)/float64(search.GigaByte))
	case size >= search.MegaByte:
		return fmt.Sprintf("%.2fMB", float64(size)/float64(search.MegaByte))
	case size >= search.KiloByte:
		return fmt.Sprintf("%.2fKB", float64(size)/float64(search.KiloByte))
	}
	return fmt.Sprintf("%dB", size)
}
