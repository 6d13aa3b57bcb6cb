package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xdccd/search"
)

type collector struct {
	mu      sync.Mutex
	results []search.Result
}

func (c *collector) add(r search.Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

func (c *collector) snapshot() []search.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]search.Result(nil), c.results...)
}

// collect hands a search result to every search currently running.
func (a *Agent) collect(r search.Result) {
	a.searches.Range(func(_, v any) bool {
		v.(*collector).add(r)
		return true
	})
}

// Search sends query to the searchable channels of every network and
// returns the results announced within the search window.
func (a *Agent) Search(ctx context.Context, query string) ([]search.Result, error) {
	id := uuid.New()
	col := &collector{}
	a.searches.Store(id, col)
	defer a.searches.Delete(id)

	log.WithField("search", id).Infof("searching for %q", query)
	var errs []error
	for _, c := range a.conns {
		if err := c.Search(query); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(a.conns) {
		return nil, errors.Join(errs...)
	}

	timer := time.NewTimer(a.opts.SearchWindow)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return col.snapshot(), nil
}

// Provider exposes IRC channel search to a search.ProviderAggregator.
func (a *Agent) Provider() search.XdccSearchProvider {
	return ircProvider{a}
}

type ircProvider struct {
	agent *Agent
}

func (p ircProvider) Search(ctx context.Context, keywords []string) ([]search.XdccFileInfo, error) {
	results, err := p.agent.Search(ctx, strings.Join(keywords, " "))
	if err != nil {
		return nil, err
	}
	infos := make([]search.XdccFileInfo, 0, len(results))
	for _, r := range results {
		infos = append(infos, r.FileInfo())
	}
	return infos, nil
}
