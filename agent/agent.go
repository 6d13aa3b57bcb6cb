// Package agent runs the download engine: it owns every IRC connection and
// the downloads requested on them, dispatches inbound lines, and starts
// transfers when bots offer files.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultRetryDelay is counted from the moment a network was connected.
	DefaultRetryDelay   = 70 * time.Second
	DefaultSearchWindow = time.Second
)

var ErrUnknownNetwork = errors.New("unknown network")

var log = logrus.WithField("component", "agent")

type Options struct {
	DownloadDir string
	// Port is the preferred listening port for passive transfers.
	Port     uint16
	PublicIP netip.Addr
	// RetryDelay and SearchWindow default to DefaultRetryDelay and
	// DefaultSearchWindow when zero.
	RetryDelay   time.Duration
	SearchWindow time.Duration
}

type Agent struct {
	opts  Options
	conns map[string]*Connection
	hub   *Hub

	nextID atomic.Uint64

	// searches maps a uuid.UUID to the *collector of a running search.
	searches sync.Map

	ctx  context.Context
	stop context.CancelFunc
}

func New(opts Options, conns ...*Connection) *Agent {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.SearchWindow == 0 {
		opts.SearchWindow = DefaultSearchWindow
	}
	ctx, stop := context.WithCancel(context.Background())
	a := &Agent{
		opts:  opts,
		conns: make(map[string]*Connection, len(conns)),
		hub:   NewHub(),
		ctx:   ctx,
		stop:  stop,
	}
	for _, c := range conns {
		c.hub = a.hub
		a.conns[c.ID] = c
	}
	return a
}

// Networks lists the connected network ids.
func (a *Agent) Networks() []string {
	ids := make([]string, 0, len(a.conns))
	for id := range a.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Agent) Subscribe() (<-chan Event, func()) {
	return a.hub.Subscribe(64)
}

// Downloads returns a snapshot of every download on every network.
func (a *Agent) Downloads() []DownloadInfo {
	list := make([]DownloadInfo, 0)
	for _, c := range a.conns {
		for _, d := range c.Downloads() {
			list = append(list, d.Info())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Request registers a download and sends command to nick on network.
func (a *Agent) Request(network, fileName, nick, command string) (DownloadID, error) {
	c, ok := a.conns[network]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	id := DownloadID(a.nextID.Add(1) - 1)
	d := newDownload(a.ctx, id, network, fileName, nick, command)
	c.add(d)

	entry := c.logger().WithFields(logrus.Fields{"download": id, "nick": nick, "file": fileName})
	entry.WithField("command", command).Info("requesting download")
	if err := c.session.Privmsg(nick, command); err != nil {
		c.set(d, failed(err.Error()))
		return id, fmt.Errorf("request %s from %s: %w", fileName, nick, err)
	}
	return id, nil
}

// Abort cancels and removes a download. Unknown ids are ignored.
func (a *Agent) Abort(id DownloadID) {
	for _, c := range a.conns {
		if d, ok := c.remove(id); ok {
			c.logger().WithFields(logrus.Fields{"download": id, "file": d.FileName}).Info("aborted download")
		}
	}
}
