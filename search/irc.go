package search

import (
	"regexp"
	"strconv"
	"strings"

	"xdccd/xdcc"
)

// Result is a pack announced in reply to a "!s" channel search.
type Result struct {
	Network  string `json:"server"`
	FileName string `json:"fileName"`
	Nick     string `json:"nick"`
	Command  string `json:"command"`
}

var (
	noticePattern = regexp.MustCompile(`(?P<filename>[[:word:][:punct:]]+)\s+(?:.\s+)+(?i)/msg\s+(?P<nick>\S+)\s+(?P<command>xdcc\s+send\s+#?(?P<slot>\d+))`)
	colorPattern  = regexp.MustCompile(`\x03(?:\d{1,2}(?:,\d{1,2})?)?`)
	styleCodes    = strings.NewReplacer("\x02", "", "\x0f", "", "\x11", "", "\x16", "", "\x1d", "", "\x1e", "", "\x1f", "")
)

// StripFormatting removes mIRC colour and style control codes.
func StripFormatting(s string) string {
	return styleCodes.Replace(colorPattern.ReplaceAllString(s, ""))
}

// ParseNotice recognises a search result line sent by a bot on network.
func ParseNotice(network, notice string) (Result, bool) {
	m := noticePattern.FindStringSubmatch(StripFormatting(notice))
	if m == nil {
		return Result{}, false
	}
	return Result{
		Network:  network,
		FileName: m[noticePattern.SubexpIndex("filename")],
		Nick:     m[noticePattern.SubexpIndex("nick")],
		Command:  m[noticePattern.SubexpIndex("command")],
	}, true
}

// FileInfo converts the result for the provider aggregator. The size is not
// part of the announcement.
func (r Result) FileInfo() XdccFileInfo {
	slot := -1
	if i := strings.LastIndexAny(r.Command, " #"); i >= 0 {
		if n, err := strconv.Atoi(r.Command[i+1:]); err == nil {
			slot = n
		}
	}
	return XdccFileInfo{
		URL:  xdcc.IRCFile{Network: r.Network, UserName: r.Nick, Slot: slot},
		Name: r.FileName,
		Size: -1,
		Slot: slot,
	}
}
