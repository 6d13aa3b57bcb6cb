package agent

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	irc "github.com/fluffle/goirc/client"
	"github.com/sirupsen/logrus"

	"xdccd/config"
	"xdccd/xdcc"
)

// Session is the IRC network handle a Connection talks through.
type Session interface {
	Messages() <-chan *irc.Line
	Privmsg(target, text string) error
	Join(channel string) error
	Close() error
}

// Connection is one IRC network together with the downloads requested on it.
// Downloads of one network are never touched through another Connection.
type Connection struct {
	ID          string
	session     Session
	channels    []config.Channel
	connectedAt time.Time

	// downloads maps DownloadID to *Download.
	downloads sync.Map
	hub       *Hub
}

func NewConnection(id string, session Session, channels []config.Channel) *Connection {
	return &Connection{
		ID:          id,
		session:     session,
		channels:    channels,
		connectedAt: time.Now(),
	}
}

func (c *Connection) logger() *logrus.Entry {
	return log.WithField("network", c.ID)
}

func (c *Connection) publish(info DownloadInfo) {
	if c.hub != nil {
		c.hub.Publish(downloadEvent(info))
	}
}

func (c *Connection) add(d *Download) {
	c.downloads.Store(d.ID, d)
	c.publish(d.Info())
}

func (c *Connection) get(id DownloadID) (*Download, bool) {
	v, ok := c.downloads.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Download), true
}

// remove deletes the download and cancels anything still running for it.
func (c *Connection) remove(id DownloadID) (*Download, bool) {
	v, ok := c.downloads.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	d := v.(*Download)
	d.cancel()
	d.mu.Lock()
	d.removed = true
	c.publish(d.infoLocked())
	d.mu.Unlock()
	return d, true
}

func (c *Connection) each(fn func(d *Download)) {
	c.downloads.Range(func(_, v any) bool {
		fn(v.(*Download))
		return true
	})
}

// Downloads returns the downloads of this network ordered by id.
func (c *Connection) Downloads() []*Download {
	var list []*Download
	c.each(func(d *Download) { list = append(list, d) })
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// set replaces the status of d. It is a no-op once d was removed.
func (c *Connection) set(d *Download, s Status) bool {
	return c.update(d, s, nil)
}

// transition moves d to s only when its state is one of from.
func (c *Connection) transition(d *Download, s Status, from ...State) bool {
	if len(from) == 0 {
		return false
	}
	return c.update(d, s, from)
}

// update publishes under the download lock so no status event can follow
// the removal event.
func (c *Connection) update(d *Download, s Status, from []State) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed || (from != nil && !slices.Contains(from, d.status.State)) {
		return false
	}
	d.status = s
	c.publish(d.infoLocked())
	return true
}

// findOffered returns the download an offer for fileName belongs to. Offers
// carry no download id, so the file name is the only key; a download that
// can still start is preferred over one already running.
func (c *Connection) findOffered(fileName string) *Download {
	var match *Download
	for _, d := range c.Downloads() {
		if d.FileName != fileName {
			continue
		}
		switch d.Status().State {
		case StateRequested, StateDelayed, StateSenderAbsent:
			if !d.running.Load() {
				return d
			}
		}
		if match == nil {
			match = d
		}
	}
	return match
}

func (c *Connection) JoinChannels() error {
	var errs []error
	for _, channel := range c.channels {
		if err := c.session.Join(channel.Name); err != nil {
			errs = append(errs, fmt.Errorf("join %s: %w", channel.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Search asks every searchable channel for query.
func (c *Connection) Search(query string) error {
	for _, channel := range c.channels {
		if !channel.Search {
			continue
		}
		if err := c.session.Privmsg(channel.Name, "!s "+query); err != nil {
			return fmt.Errorf("search %s on %s: %w", channel.Name, c.ID, err)
		}
	}
	return nil
}

// senderGone marks every pending download from nick as SenderAbsent.
func (c *Connection) senderGone(nick string) {
	c.each(func(d *Download) {
		if !xdcc.EqualNick(d.Nick, nick) {
			return
		}
		if c.transition(d, senderAbsent(), StateRequested, StateConnecting, StateDelayed) {
			c.logger().WithFields(logrus.Fields{"download": d.ID, "nick": nick}).Info("sender absent")
		}
	})
}

// markDelayed moves every Requested download to Delayed and returns the
// retry deadline.
func (c *Connection) markDelayed(delay time.Duration) time.Time {
	until := c.connectedAt.Add(delay)
	c.each(func(d *Download) {
		c.transition(d, delayed(until), StateRequested)
	})
	return until
}

// resendDelayed sends the original request of every Delayed download again.
func (c *Connection) resendDelayed() error {
	var errs []error
	c.each(func(d *Download) {
		if !c.transition(d, requested(), StateDelayed) {
			return
		}
		c.logger().WithFields(logrus.Fields{"download": d.ID, "nick": d.Nick}).Info("re-requesting download")
		if err := c.session.Privmsg(d.Nick, d.RequestCommand); err != nil {
			errs = append(errs, fmt.Errorf("download %d: %w", d.ID, err))
		}
	})
	return errors.Join(errs...)
}
