// Package ircnet wraps a goirc connection into a session that delivers every
// inbound line on a single channel, preserving arrival order.
package ircnet

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	irc "github.com/fluffle/goirc/client"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"xdccd/config"
)

const (
	ERR_NOSUCHNICK    = "401"
	ERR_NICKNAMEINUSE = "433"

	// ERR_CANNOTSENDTOUSER is sent by networks that do not yet allow the
	// client to message other users.
	ERR_CANNOTSENDTOUSER = "531"
)

var ErrNotConnected = errors.New("not connected")

var log = logrus.WithField("component", "ircnet")

// forwarded lists the commands delivered on Messages. goirc has no catch-all
// handler, so anything not named here is dropped.
var forwarded = []string{
	irc.CONNECTED, irc.DISCONNECTED,
	irc.PRIVMSG, irc.ACTION, irc.CTCP, irc.CTCPREPLY, irc.NOTICE,
	irc.JOIN, irc.PART, irc.QUIT, irc.KICK, irc.NICK, irc.TOPIC, irc.MODE,
	ERR_NOSUCHNICK, ERR_NICKNAMEINUSE, ERR_CANNOTSENDTOUSER,
	"372", "375", "376", "332", "353", "404", "473", "474", "477",
}

// Conn is one IRC network session.
type Conn struct {
	Name     string
	conn     *irc.Conn
	messages chan *irc.Line
	done     chan struct{}
	once     sync.Once
}

// Dial connects to the server described by srv. Registration completes
// asynchronously and is announced by a CONNECTED line on Messages.
func Dial(ctx context.Context, srv config.Server) (*Conn, error) {
	cfg := irc.NewConfig(srv.Nick)
	cfg.Server = srv.Server
	cfg.Pass = srv.Password
	if srv.Ident != "" {
		cfg.Me.Ident = srv.Ident
	}
	if srv.RealName != "" {
		cfg.Me.Name = srv.RealName
	}
	if srv.SSL {
		host, _, err := net.SplitHostPort(srv.Server)
		if err != nil {
			host = srv.Server
		}
		cfg.SSL = true
		cfg.SSLConfig = &tls.Config{ServerName: host, InsecureSkipVerify: srv.SSLSkipVerify}
	}
	cfg.PingFreq = 2 * time.Minute
	cfg.NewNick = func(n string) string { return n + "_" }

	c := &Conn{
		Name:     srv.Name,
		conn:     irc.Client(cfg),
		messages: make(chan *irc.Line, 256),
		done:     make(chan struct{}),
	}
	for _, cmd := range forwarded {
		c.conn.HandleFunc(cmd, c.forward)
	}

	errc := make(chan error, 1)
	go func() { errc <- c.conn.Connect() }()
	select {
	case err := <-errc:
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", srv.Server, err)
		}
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
	log.WithFields(logrus.Fields{"network": srv.Name, "server": srv.Server}).Info("connected")
	return c, nil
}

// DialAll connects to every server concurrently. If any connection fails the
// others are closed and the first error is returned.
func DialAll(ctx context.Context, servers []config.Server) ([]*Conn, error) {
	conns := make([]*Conn, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error {
			c, err := Dial(gctx, srv)
			if err != nil {
				return fmt.Errorf("%s: %w", srv.Name, err)
			}
			conns[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range conns {
			if c != nil {
				c.Close()
			}
		}
		return nil, err
	}
	return conns, nil
}

// goirc waits for all handlers of a line before dispatching the next one, so
// lines reach the channel in the order the server sent them.
func (c *Conn) forward(_ *irc.Conn, line *irc.Line) {
	select {
	case c.messages <- line:
	case <-c.done:
	}
}

func (c *Conn) Messages() <-chan *irc.Line {
	return c.messages
}

func (c *Conn) Privmsg(target, text string) error {
	if !c.conn.Connected() {
		return ErrNotConnected
	}
	c.conn.Privmsg(target, text)
	return nil
}

func (c *Conn) Join(channel string) error {
	if !c.conn.Connected() {
		return ErrNotConnected
	}
	c.conn.Join(channel)
	return nil
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		if c.conn.Connected() {
			c.conn.Quit()
		}
	})
	return nil
}
