package xdcc

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// ctcpDelim brackets out-of-band CTCP payloads inside PRIVMSG text.
const ctcpDelim = "\x01"

var offerPattern = regexp.MustCompile(`(?i)\x01(?:DCC )?SEND (?P<filename>\S+) (?P<address>\d+) (?P<port>\d+)(?: (?P<filesize>\d+))?(?: (?P<id>\d+))?.*\x01`)

// Offer is a DCC SEND announcement received from a bot.
type Offer struct {
	FileName string
	Addr     netip.AddrPort
	// FileSize is -1 when the sender did not declare it.
	FileSize int64
	// ID is the passive DCC token, -1 when absent.
	ID int64
}

// ParseOffer extracts a DCC SEND offer from a chat message.
func ParseOffer(message string) (Offer, bool) {
	m := offerPattern.FindStringSubmatch(message)
	if m == nil {
		return Offer{}, false
	}
	field := func(name string) string {
		return m[offerPattern.SubexpIndex(name)]
	}

	ip, err := strconv.ParseUint(field("address"), 10, 32)
	if err != nil {
		return Offer{}, false
	}
	port, err := strconv.ParseUint(field("port"), 10, 16)
	if err != nil {
		return Offer{}, false
	}

	var octets [4]byte
	binary.BigEndian.PutUint32(octets[:], uint32(ip))
	return Offer{
		FileName: field("filename"),
		Addr:     netip.AddrPortFrom(netip.AddrFrom4(octets), uint16(port)),
		FileSize: optional(field("filesize")),
		ID:       optional(field("id")),
	}, true
}

func optional(s string) int64 {
	if s == "" {
		return -1
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Passive reports whether the sender expects us to listen.
func (o Offer) Passive() bool {
	return o.Addr.Port() == 0
}

// String renders the offer in wire form. The ID is only written after a size,
// otherwise it would be read back as the size.
func (o Offer) String() string {
	ip := o.Addr.Addr().As4()
	var b strings.Builder
	fmt.Fprintf(&b, "%sDCC SEND %s %d %d", ctcpDelim, o.FileName, binary.BigEndian.Uint32(ip[:]), o.Addr.Port())
	if o.FileSize >= 0 {
		fmt.Fprintf(&b, " %d", o.FileSize)
		if o.ID >= 0 {
			fmt.Fprintf(&b, " %d", o.ID)
		}
	}
	b.WriteString(ctcpDelim)
	return b.String()
}
