package modules

import (
	"context"
	"time"

	"github.com/google/logger"
)

// Sweep resolves every round whose reveal window has closed but which no
// call has resolved yet. Resolution is permissionless, so the sweep runs as
// whatever sender the client carries.
func Sweep(c *Client) int {
	pending, err := c.UnresolvedLotteries()
	if err != nil {
		logger.Warningf("Finalizer could not list rounds: %v", err)
		return 0
	}
	done := 0
	for _, no := range pending {
		outcome, err := c.FinalizeLottery(no)
		if err != nil {
			logger.Warningf("Finalizer failed on round %d: %v", no, err)
			continue
		}
		logger.Infof("Finalizer resolved round %d as %s", no, outcome)
		done++
	}
	return done
}

// RunFinalizer sweeps every interval until ctx is done.
func RunFinalizer(ctx context.Context, c *Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Sweep(c)
		}
	}
}
