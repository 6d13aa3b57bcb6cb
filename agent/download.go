package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DownloadID is allocated once per requested transfer and never reused.
type DownloadID uint64

type State string

const (
	StateRequested    State = "Requested"
	StateConnecting   State = "Connecting"
	StateProgress     State = "Progress"
	StateFailed       State = "Failed"
	StateDelayed      State = "Delayed"
	StateSenderAbsent State = "SenderAbsent"
)

// Status is the current state of a download plus the data that goes with it.
type Status struct {
	State State `json:"state"`
	// Transferred and FileSize are set in StateProgress; FileSize is -1 when
	// the bot did not declare it.
	Transferred int64      `json:"transferred,omitempty"`
	FileSize    int64      `json:"fileSize,omitempty"`
	RetryAt     *time.Time `json:"retryAt,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func requested() Status { return Status{State: StateRequested} }

func connecting() Status { return Status{State: StateConnecting} }

func senderAbsent() Status { return Status{State: StateSenderAbsent} }

func delayed(until time.Time) Status { return Status{State: StateDelayed, RetryAt: &until} }

func progress(transferred, size int64) Status {
	return Status{State: StateProgress, Transferred: transferred, FileSize: size}
}

func failed(reason string) Status { return Status{State: StateFailed, Reason: reason} }

// Download is one requested file. Its status is guarded by its own lock so
// unrelated downloads never contend.
type Download struct {
	ID             DownloadID
	Network        string
	FileName       string
	Nick           string
	RequestCommand string

	// ctx is cancelled when the download is aborted or the agent stops.
	ctx    context.Context
	cancel context.CancelFunc

	// running is set while a transfer goroutine owns the download, whatever
	// its state says.
	running atomic.Bool

	mu     sync.Mutex
	status Status
	// removed is set once the download left its connection.
	removed bool
}

func newDownload(parent context.Context, id DownloadID, network, fileName, nick, command string) *Download {
	ctx, cancel := context.WithCancel(parent)
	return &Download{
		ID:             id,
		Network:        network,
		FileName:       fileName,
		Nick:           nick,
		RequestCommand: command,
		ctx:            ctx,
		cancel:         cancel,
		status:         requested(),
	}
}

func (d *Download) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}


// DownloadInfo is the externally visible snapshot of a Download.
type DownloadInfo struct {
	ID       DownloadID `json:"id"`
	Network  string     `json:"server"`
	FileName string     `json:"fileName"`
	Nick     string     `json:"nick"`
	Status   Status     `json:"status"`
	// Removed is set on the final event of a completed or aborted download.
	Removed bool `json:"removed,omitempty"`
}

func (d *Download) Info() DownloadInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.infoLocked()
}

func (d *Download) infoLocked() DownloadInfo {
	return DownloadInfo{
		ID:       d.ID,
		Network:  d.Network,
		FileName: d.FileName,
		Nick:     d.Nick,
		Status:   d.status,
		Removed:  d.removed,
	}
}
