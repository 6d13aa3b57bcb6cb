package search

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"xdccd/xdcc"
)

// ProviderAggregator combines multiple search providers
type ProviderAggregator struct {
	providerList []XdccSearchProvider
	// Timeout bounds a whole search; providers still running are abandoned.
	Timeout time.Duration
}

const (
	MaxResults     = 1024
	DefaultTimeout = 10 * time.Second
)

func NewProviderAggregator(providers ...XdccSearchProvider) *ProviderAggregator {
	return &ProviderAggregator{
		providerList: providers,
		Timeout:      DefaultTimeout,
	}
}

func (registry *ProviderAggregator) AddProvider(provider XdccSearchProvider) {
	registry.providerList = append(registry.providerList, provider)
}

// Search queries every provider concurrently and merges their results,
// largest files first. An error is returned only when every provider failed.
func (registry *ProviderAggregator) Search(ctx context.Context, keywords []string) ([]XdccFileInfo, error) {
	if len(registry.providerList) == 0 {
		return []XdccFileInfo{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, registry.Timeout)
	defer cancel()

	var (
		mtx        sync.Mutex
		allResults = make(map[xdcc.IRCFile]XdccFileInfo)
		errs       []error
	)
	wg := sync.WaitGroup{}
	wg.Add(len(registry.providerList))
	for _, p := range registry.providerList {
		go func(p XdccSearchProvider) {
			defer wg.Done()
			resList, err := p.Search(ctx, keywords)

			mtx.Lock()
			defer mtx.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			for _, res := range resList {
				allResults[res.URL] = res
			}
		}(p)
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()
	select {
	case <-doneChan:
	case <-ctx.Done():
		// return what we have so far
	}

	mtx.Lock()
	defer mtx.Unlock()
	if len(errs) == len(registry.providerList) {
		return nil, errors.Join(errs...)
	}
	results := make([]XdccFileInfo, 0, len(allResults))
	for _, res := range allResults {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Size != results[j].Size {
			return results[i].Size > results[j].Size
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

const (
	KiloByte = 1024
	MegaByte = KiloByte * 1024
	GigaByte = MegaByte * 1024
)

func parseFileSize(sizeStr string) (int64, error) {
	if len(sizeStr) == 0 {
		return -1, errors.New("empty string")
	}
	lastChar := sizeStr[len(sizeStr)-1]
	sizePart := sizeStr[:len(sizeStr)-1]

	size, err := strconv.ParseFloat(sizePart, 64)
	if err != nil {
		return -1, err
	}
	switch lastChar {
	case 'G', 'g':
		return int64(size * GigaByte), nil
	case 'M', 'm':
		return int64(size * MegaByte), nil
	case 'K', 'k':
		return int64(size * KiloByte), nil
	}
	return -1, errors.New("unable to parse: " + sizeStr)
}
