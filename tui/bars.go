package tui

import (
	"context"
	"io"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"xdccd/agent"
)

// RunBars renders one progress bar per running transfer to w until ctx is
// done. It is the non-interactive alternative to Run.
func RunBars(ctx context.Context, backend Backend, w io.Writer) error {
	events, unsubscribe := backend.Subscribe()
	defer unsubscribe()

	p := mpb.NewWithContext(ctx, mpb.WithOutput(w), mpb.WithWidth(64))
	bars := make(map[agent.DownloadID]*mpb.Bar)

	for _, d := range backend.Downloads() {
		updateBar(p, bars, d)
	}
	for {
		select {
		case <-ctx.Done():
			for id, bar := range bars {
				bar.Abort(false)
				delete(bars, id)
			}
			p.Wait()
			return nil
		case e, ok := <-events:
			if !ok {
				for _, bar := range bars {
					bar.Abort(false)
				}
				p.Wait()
				return nil
			}
			if e.Kind == agent.EventDownload {
				updateBar(p, bars, *e.Download)
			}
		}
	}
}

func updateBar(p *mpb.Progress, bars map[agent.DownloadID]*mpb.Bar, d agent.DownloadInfo) {
	bar, ok := bars[d.ID]
	st := d.Status

	switch {
	case d.Removed:
		if !ok {
			return
		}
		if st.State == agent.StateProgress && st.FileSize > 0 && st.Transferred >= st.FileSize {
			bar.SetTotal(st.FileSize, true)
		} else {
			bar.Abort(false)
		}
		delete(bars, d.ID)
	case st.State == agent.StateProgress:
		if !ok {
			bar = p.AddBar(st.FileSize,
				mpb.PrependDecorators(decor.Name(d.FileName, decor.WC{W: len(d.FileName) + 1, C: decor.DidentRight})),
				mpb.AppendDecorators(decor.CountersKibiByte("% .2f / % .2f")),
			)
			bars[d.ID] = bar
		}
		if st.FileSize <= 0 {
			// Unknown size: keep the total just ahead of the counter.
			bar.SetTotal(st.Transferred+1, false)
		}
		bar.SetCurrent(st.Transferred)
	case st.State == agent.StateFailed && ok:
		bar.Abort(false)
		delete(bars, d.ID)
	}
}
