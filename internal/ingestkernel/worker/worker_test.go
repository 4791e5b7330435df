package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnsureRunning_StartsAndRestarts(t *testing.T) {
	var iterations int64
	w := New("test", 30*time.Millisecond, func(ctx context.Context, h *Handle) {
		for {
			if h.ShouldStop() {
				return
			}
			atomic.AddInt64(&iterations, 1)
			// No MarkActive: the loop does no real work, so the worker
			// idles out 30ms after EnsureRunning.
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Millisecond):
			}
		}
	})

	w.EnsureRunning()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&iterations) > 0 }, time.Second, time.Millisecond)
	require.True(t, w.IsRunning())

	// Idle out.
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, 2*time.Millisecond)

	// Resurrect: invariant 10, worker liveness.
	before := atomic.LoadInt64(&iterations)
	w.EnsureRunning()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&iterations) > before }, time.Second, time.Millisecond)
}

func TestStop_JoinsWithinTimeout(t *testing.T) {
	started := make(chan struct{})
	w := New("test", 0, func(ctx context.Context, h *Handle) {
		close(started)
		<-ctx.Done()
	}, WithJoinTimeout(2*time.Second))

	w.EnsureRunning()
	<-started
	w.Stop()
	require.False(t, w.IsRunning())
}

func TestShouldTerminateDueToIdle_NeverWhenTimeoutZero(t *testing.T) {
	w := New("test", 0, func(ctx context.Context, h *Handle) {})
	require.False(t, w.ShouldTerminateDueToIdle())
}
