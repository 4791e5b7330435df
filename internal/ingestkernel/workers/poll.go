package workers

import (
	"context"
	"time"
)

// sleepOrDone blocks for d or until ctx is cancelled, whichever comes
// first, so a Stop() request does not have to wait out a full poll
// interval before the run loop notices.
func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
