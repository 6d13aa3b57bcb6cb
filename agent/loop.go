package agent

import (
	"context"
	"errors"
	"strings"

	irc "github.com/fluffle/goirc/client"
	"github.com/sirupsen/logrus"

	"xdccd/ircnet"
	"xdccd/search"
	"xdccd/xdcc"
)

type inbound struct {
	network string
	line    *irc.Line
}

// Run is the control loop. It consumes lines from every connection until ctx
// is done, then cancels all running transfers.
func (a *Agent) Run(ctx context.Context) error {
	defer a.stop()
	lines := a.merge(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-lines:
			a.dispatch(ctx, m)
		}
	}
}

// merge forwards each connection's lines into one channel. Lines of one
// network keep their order; there is no order across networks.
func (a *Agent) merge(ctx context.Context) <-chan inbound {
	out := make(chan inbound)
	for _, c := range a.conns {
		go func(c *Connection) {
			messages := c.session.Messages()
			for {
				select {
				case <-ctx.Done():
					return
				case line, ok := <-messages:
					if !ok {
						return
					}
					select {
					case out <- inbound{network: c.ID, line: line}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(c)
	}
	return out
}

func (a *Agent) dispatch(ctx context.Context, m inbound) {
	a.hub.Publish(messageEvent(m.network, m.line))
	c, ok := a.conns[m.network]
	if !ok {
		return
	}
	line := m.line

	switch line.Cmd {
	case irc.PRIVMSG, irc.CTCP:
		if !private(line) {
			return
		}
		text := payload(line)
		c.logger().WithField("nick", line.Nick).Debugf("private message %q", text)
		if offer, ok := xdcc.ParseOffer(text); ok {
			a.startTransfer(c, line.Nick, offer)
		}
	case irc.CONNECTED:
		c.logger().Info("registered, joining channels")
		if err := c.JoinChannels(); err != nil {
			c.logger().WithError(err).Warn("joining channels failed")
		}
	case irc.NOTICE:
		if len(line.Args) < 2 {
			return
		}
		if r, ok := search.ParseNotice(c.ID, line.Args[1]); ok {
			a.collect(r)
		}
	case ircnet.ERR_NOSUCHNICK:
		if len(line.Args) > 1 {
			c.senderGone(line.Args[1])
		}
	case ircnet.ERR_CANNOTSENDTOUSER:
		a.delay(ctx, c)
	default:
		c.logger().Debugf("%s %v", line.Cmd, line.Args)
	}
}

// private reports whether a PRIVMSG or CTCP was sent to us rather than to a
// channel. goirc moves the CTCP verb in front of the target.
func private(line *irc.Line) bool {
	i := 0
	if line.Cmd == irc.CTCP {
		i = 1
	}
	if len(line.Args) <= i {
		return false
	}
	return !strings.HasPrefix(line.Args[i], "#") && !strings.HasPrefix(line.Args[i], "&")
}

// payload rebuilds the message text. goirc splits CTCP lines into verb and
// arguments and strips the \x01 delimiters.
func payload(line *irc.Line) string {
	if line.Cmd != irc.CTCP {
		if len(line.Args) < 2 {
			return ""
		}
		return line.Args[1]
	}
	text := line.Args[0]
	if len(line.Args) > 2 {
		text += " " + line.Args[2]
	}
	return "\x01" + text + "\x01"
}

func (a *Agent) startTransfer(c *Connection, nick string, offer xdcc.Offer) {
	entry := c.logger().WithFields(logrus.Fields{"nick": nick, "file": offer.FileName})
	d := c.findOffered(offer.FileName)
	if d == nil {
		entry.Warn("offer does not match any requested download")
		return
	}
	// A SenderAbsent download may still have its first transfer running.
	if !d.running.CompareAndSwap(false, true) {
		entry.WithField("download", d.ID).Warn("download in progress already")
		return
	}
	if !c.transition(d, connecting(), StateRequested, StateDelayed, StateSenderAbsent) {
		d.running.Store(false)
		entry.WithField("download", d.ID).Warn("download in progress already")
		return
	}
	transfer := xdcc.NewTransfer(xdcc.Config{
		Offer:     offer,
		Nick:      nick,
		Messenger: c.session,
		PublicIP:  a.opts.PublicIP,
		Port:      a.opts.Port,
		OutPath:   a.opts.DownloadDir,
	})
	go a.supervise(c, d, transfer, offer.FileSize)
}

// supervise runs the transfer and mirrors its progress into the download
// status until it finishes.
func (a *Agent) supervise(c *Connection, d *Download, t *xdcc.Transfer, size int64) {
	defer d.running.Store(false)
	entry := c.logger().WithFields(logrus.Fields{"download": d.ID, "file": d.FileName})
	done := make(chan error, 1)
	go func() { done <- t.Run(d.ctx) }()

	_, changed := t.Progress().Load()
	for {
		select {
		case <-changed:
			var n int64
			n, changed = t.Progress().Load()
			c.set(d, progress(n, size))
		case err := <-done:
			switch {
			case err == nil:
				n, _ := t.Progress().Load()
				c.set(d, progress(n, size))
				entry.WithField("bytes", n).Info("download completed")
				c.remove(d.ID)
			case errors.Is(err, context.Canceled):
				entry.Info("download aborted")
			default:
				entry.WithError(err).Warn("download failed")
				c.set(d, failed(err.Error()))
			}
			return
		}
	}
}
