package agent

import (
	"context"
	"time"
)

// delay handles a "not yet allowed to message" reply: pending requests on c
// are parked and sent again once the network's waiting period is over.
// Overlapping throttles each schedule their own retry.
func (a *Agent) delay(ctx context.Context, c *Connection) {
	retryAt := c.markDelayed(a.opts.RetryDelay)
	c.logger().WithField("retryAt", retryAt).Info("messaging throttled, delaying requests")
	go func() {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		c.logger().Info("retrying downloads")
		if err := c.resendDelayed(); err != nil {
			c.logger().WithError(err).Warn("retrying downloads failed")
		}
	}()
}
