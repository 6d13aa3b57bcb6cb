package search

import (
	"context"

	"xdccd/xdcc"
)

// XdccFileInfo is one pack found by a provider.
type XdccFileInfo struct {
	URL  xdcc.IRCFile
	Name string
	// Size is -1 when unknown.
	Size int64
	Slot int
}

type XdccSearchProvider interface {
	Search(ctx context.Context, keywords []string) ([]XdccFileInfo, error)
}
