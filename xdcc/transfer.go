package xdcc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ConnectTimeout = 30 * time.Second
	AcceptTimeout  = 30 * time.Second
	// ChunkSize bounds a single socket read.
	ChunkSize = 16 * 1024
)

var (
	ErrTimeout      = errors.New("timed out waiting for peer")
	ErrPeerMismatch = errors.New("ip mismatch on connected client")
	ErrNoPublicIP   = errors.New("passive transfer needs a public IPv4 address")
)

var log = logrus.WithField("component", "xdcc")

// Messenger delivers a private message to a nick on the offering network.
type Messenger interface {
	Privmsg(target, text string) error
}

type Config struct {
	Offer Offer
	// Nick is the bot that sent the offer.
	Nick      string
	Messenger Messenger
	// PublicIP is announced to the bot in passive mode.
	PublicIP netip.Addr
	// Port is the preferred passive listening port, 0 picks one.
	Port    uint16
	OutPath string
}

// Transfer receives one file announced by an Offer.
type Transfer struct {
	cfg      Config
	progress *Progress
}

func NewTransfer(cfg Config) *Transfer {
	return &Transfer{cfg: cfg, progress: NewProgress()}
}

func (t *Transfer) Progress() *Progress {
	return t.progress
}

// Path is where the file is written.
func (t *Transfer) Path() string {
	return filepath.Join(t.cfg.OutPath, filepath.Base(t.cfg.Offer.FileName))
}

// Run negotiates the connection and streams the file to disk. Cancelling ctx
// closes the socket; the returned error then wraps ctx.Err().
func (t *Transfer) Run(ctx context.Context) error {
	entry := log.WithFields(logrus.Fields{"file": t.cfg.Offer.FileName, "nick": t.cfg.Nick})
	entry.Info("starting transfer")

	var (
		conn net.Conn
		err  error
	)
	if t.cfg.Offer.Passive() {
		entry.Debug("initiating passive transfer")
		conn, err = t.accept(ctx)
	} else {
		entry.WithField("addr", t.cfg.Offer.Addr).Debug("connecting to sender")
		conn, err = t.dial(ctx)
	}
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	n, err := t.receive(conn)
	if ctx.Err() != nil {
		return fmt.Errorf("transfer of %s: %w", t.cfg.Offer.FileName, ctx.Err())
	}
	if err != nil {
		return err
	}
	entry.WithField("bytes", n).Info("file successfully transferred")
	return nil
}

func (t *Transfer) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp4", t.cfg.Offer.Addr.String())
	if err != nil {
		return nil, netError(ctx, fmt.Sprintf("connect to %s", t.cfg.Offer.Addr), err)
	}
	return conn, nil
}

func (t *Transfer) accept(ctx context.Context) (net.Conn, error) {
	if !t.cfg.PublicIP.Is4() {
		return nil, ErrNoPublicIP
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp4", fmt.Sprintf(":%d", t.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	port := ln.Addr().(*net.TCPAddr).Port
	reply := Offer{
		FileName: t.cfg.Offer.FileName,
		Addr:     netip.AddrPortFrom(t.cfg.PublicIP, uint16(port)),
		FileSize: t.cfg.Offer.FileSize,
		ID:       t.cfg.Offer.ID,
	}
	log.WithField("nick", t.cfg.Nick).Debugf("sending %q", reply.String())
	if err := t.cfg.Messenger.Privmsg(t.cfg.Nick, reply.String()); err != nil {
		return nil, fmt.Errorf("send passive offer: %w", err)
	}

	if err := ln.(*net.TCPListener).SetDeadline(time.Now().Add(AcceptTimeout)); err != nil {
		return nil, err
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, netError(ctx, "accept", err)
	}

	remote, err := netip.ParseAddrPort(conn.RemoteAddr().String())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remote address: %w", err)
	}
	if remote.Addr().Unmap() != t.cfg.Offer.Addr.Addr() {
		conn.Close()
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerMismatch, t.cfg.Offer.Addr.Addr(), remote.Addr())
	}
	return conn, nil
}

func (t *Transfer) receive(conn net.Conn) (int64, error) {
	if err := os.MkdirAll(t.cfg.OutPath, 0o755); err != nil {
		return 0, fmt.Errorf("create download folder: %w", err)
	}
	f, err := os.Create(t.Path())
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 4*ChunkSize)

	// No resume: we always hold zero bytes.
	var ack [8]byte
	if _, err := conn.Write(ack[:]); err != nil {
		return 0, fmt.Errorf("send ack: %w", err)
	}

	buf := make([]byte, ChunkSize)
	var transferred int64
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return transferred, fmt.Errorf("write file: %w", werr)
			}
			transferred += int64(n)
			t.progress.Set(transferred)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return transferred, fmt.Errorf("read from peer: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return transferred, fmt.Errorf("flush file: %w", err)
	}
	if err := f.Close(); err != nil {
		return transferred, fmt.Errorf("close file: %w", err)
	}
	return transferred, nil
}

func netError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
