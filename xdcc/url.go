package xdcc

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// IRCFile locates one pack offered by a bot: irc://network/channel/bot/slot.
type IRCFile struct {
	Network  string
	Channel  string
	UserName string
	Slot     int
}

var errBadURL = errors.New("invalid xdcc url")

func ParseURL(s string) (IRCFile, error) {
	u, err := url.Parse(s)
	if err != nil {
		return IRCFile{}, err
	}
	if u.Scheme != "irc" || u.Host == "" {
		return IRCFile{}, errBadURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 {
		return IRCFile{}, fmt.Errorf("%w: %s", errBadURL, s)
	}
	slot, err := strconv.Atoi(strings.TrimPrefix(parts[2], "#"))
	if err != nil {
		return IRCFile{}, fmt.Errorf("%w: bad slot %q", errBadURL, parts[2])
	}
	channel := parts[0]
	if !strings.HasPrefix(channel, "#") {
		channel = "#" + channel
	}
	return IRCFile{Network: u.Host, Channel: channel, UserName: parts[1], Slot: slot}, nil
}

func (f IRCFile) String() string {
	return fmt.Sprintf("irc://%s/%s/%s/%d", f.Network, strings.TrimPrefix(f.Channel, "#"), f.UserName, f.Slot)
}

// Command is the private message that asks the bot for the pack.
func (f IRCFile) Command() string {
	return fmt.Sprintf("xdcc send #%d", f.Slot)
}
