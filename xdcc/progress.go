package xdcc

import "sync"

// Progress holds the cumulative byte count of one transfer. The transfer is
// the only writer; any number of readers may wait for changes.
type Progress struct {
	mu      sync.Mutex
	n       int64
	changed chan struct{}
}

func NewProgress() *Progress {
	return &Progress{changed: make(chan struct{})}
}

// Set publishes a new byte count and wakes every waiting reader.
func (p *Progress) Set(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n = n
	close(p.changed)
	p.changed = make(chan struct{})
}

// Load returns the current count and a channel closed on the next Set.
func (p *Progress) Load() (int64, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n, p.changed
}
