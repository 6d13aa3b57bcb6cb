package agent

import (
	"strings"
	"sync"

	irc "github.com/fluffle/goirc/client"
)

type EventKind string

const (
	EventMessage  EventKind = "irc-message"
	EventDownload EventKind = "download"
)

// Event is published for every inbound IRC line and every download change.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Network  string        `json:"server"`
	Message  *MessageInfo  `json:"message,omitempty"`
	Download *DownloadInfo `json:"download,omitempty"`
}

type MessageInfo struct {
	Prefix  string `json:"prefix"`
	Message string `json:"message"`
}

func messageEvent(network string, line *irc.Line) Event {
	msg := line.Cmd
	if len(line.Args) > 0 {
		msg += " " + strings.Join(line.Args, " ")
	}
	return Event{
		Kind:    EventMessage,
		Network: network,
		Message: &MessageInfo{Prefix: line.Src, Message: msg},
	}
}

func downloadEvent(info DownloadInfo) Event {
	return Event{Kind: EventDownload, Network: info.Network, Download: &info}
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// that falls behind misses events.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe returns an event channel and a function that unsubscribes and
// closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
