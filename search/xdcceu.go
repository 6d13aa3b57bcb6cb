package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"xdccd/xdcc"
)

const (
	xdccEuURL             = "https://www.xdcc.eu/search.php"
	xdccEuNumberOfEntries = 7
)

// XdccEuProvider scrapes the xdcc.eu search page. Each result row holds
// network, channel, bot, pack, gets, size and file name cells.
type XdccEuProvider struct {
	BaseURL string
	Client  *http.Client
}

func (p *XdccEuProvider) Search(ctx context.Context, keywords []string) ([]XdccFileInfo, error) {
	base := p.BaseURL
	if base == "" {
		base = xdccEuURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	searchKey := url.QueryEscape(strings.Join(keywords, " "))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?searchkey="+searchKey, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xdcc.eu: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xdcc.eu: unexpected status %s", res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("xdcc.eu: %w", err)
	}
	fileInfos := make([]XdccFileInfo, 0)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		fields := make([]string, 0, xdccEuNumberOfEntries)
		row.Children().Each(func(_ int, cell *goquery.Selection) {
			fields = append(fields, strings.TrimSpace(cell.Text()))
		})
		if info, err := parseXdccEuFields(fields); err == nil {
			fileInfos = append(fileInfos, info)
		}
	})
	return fileInfos, nil
}

func parseXdccEuFields(fields []string) (XdccFileInfo, error) {
	if len(fields) != xdccEuNumberOfEntries {
		return XdccFileInfo{}, errors.New("unexpected number of search entry fields")
	}
	slot, err := strconv.Atoi(strings.TrimPrefix(fields[3], "#"))
	if err != nil {
		return XdccFileInfo{}, fmt.Errorf("bad pack %q: %w", fields[3], err)
	}
	size, err := parseFileSize(fields[5])
	if err != nil {
		size = -1
	}
	return XdccFileInfo{
		URL: xdcc.IRCFile{
			Network:  fields[0],
			Channel:  fields[1],
			UserName: fields[2],
			Slot:     slot,
		},
		Name: fields[6],
		Size: size,
		Slot: slot,
	}, nil
}
