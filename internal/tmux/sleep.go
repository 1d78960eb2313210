package tmux

import (
	"context"
	"time"
)

// sleepOrDone sleeps for d or returns early if ctx is cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
