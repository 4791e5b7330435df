// Package worker implements the self-terminating worker lifecycle primitive:
// a single goroutine that shuts itself down after an idle timeout and can be
// resurrected on demand by a queue's wake hook.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunFunc is the loop body supplied by a concrete worker (download,
// transcription, embedder, storage). It must call MarkActive whenever it
// makes progress and return when ctx is done or when it observes
// ShouldTerminateDueToIdle via the passed Handle.
type RunFunc func(ctx context.Context, h *Handle)

// Handle is passed into RunFunc so the loop body can cooperate with the
// worker's idle-shutdown/activity bookkeeping without reaching back into
// unexported fields.
type Handle struct {
	w *SelfTerminatingWorker
}

// MarkActive refreshes the worker's last-activity timestamp.
func (h *Handle) MarkActive() { h.w.MarkActive() }

// ShouldStop reports whether Stop() has been requested or the idle timeout
// has elapsed. Run loops should treat true as "break out of the loop".
func (h *Handle) ShouldStop() bool {
	h.w.mu.Lock()
	stopRequested := h.w.shouldStop
	h.w.mu.Unlock()
	return stopRequested || h.w.ShouldTerminateDueToIdle()
}

// SelfTerminatingWorker wraps a single goroutine with idle-timeout shutdown
// and external restart via EnsureRunning, mirroring
// SelfTerminatingThreadManager in the reference implementation.
type SelfTerminatingWorker struct {
	name           string
	activityTimeout time.Duration // <=0 means "never idle out"
	joinTimeout    time.Duration

	run RunFunc
	log zerolog.Logger

	mu           sync.Mutex
	running      bool
	shouldStop   bool
	lastActivity time.Time
	done         chan struct{}
	cancel       context.CancelFunc
}

// Option configures a SelfTerminatingWorker at construction time.
type Option func(*SelfTerminatingWorker)

// WithJoinTimeout overrides the default 300s join timeout used by Stop.
func WithJoinTimeout(d time.Duration) Option {
	return func(w *SelfTerminatingWorker) { w.joinTimeout = d }
}

// WithLogger attaches a logger; defaults to the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *SelfTerminatingWorker) { w.log = logger }
}

// New constructs a worker. activityTimeout <= 0 disables idle shutdown
// entirely (the worker only stops when Stop is called).
func New(name string, activityTimeout time.Duration, run RunFunc, opts ...Option) *SelfTerminatingWorker {
	w := &SelfTerminatingWorker{
		name:            name,
		activityTimeout: activityTimeout,
		joinTimeout:     300 * time.Second,
		run:             run,
		log:             log.With().Str("worker", name).Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the worker's name, used in logs and for thread naming parity
// with the reference implementation.
func (w *SelfTerminatingWorker) Name() string { return w.name }

// EnsureRunning is idempotent: it starts the goroutine if absent or
// finished, and on every call refreshes "last activity" so an active
// producer keeps an idle consumer alive.
func (w *SelfTerminatingWorker) EnsureRunning() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		w.log.Info().Msg("worker not running, starting it")
		w.shouldStop = false
		w.lastActivity = time.Now()
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		w.done = make(chan struct{})
		w.running = true
		done := w.done
		go func() {
			defer close(done)
			w.run(ctx, &Handle{w: w})
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}()
		return
	}
	w.lastActivity = time.Now()
}

// Stop requests cooperative shutdown and waits up to the configured join
// timeout (minimum 10s) for the goroutine to exit.
func (w *SelfTerminatingWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.log.Info().Msg("stopping worker")
	w.shouldStop = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	timeout := w.joinTimeout
	if timeout < 10*time.Second {
		timeout = 10 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		w.log.Warn().Msg("worker did not stop gracefully")
	}
}

// IsRunning reports whether the worker's goroutine is currently alive.
func (w *SelfTerminatingWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// ShouldTerminateDueToIdle reports whether the worker has been idle longer
// than its configured activity timeout.
func (w *SelfTerminatingWorker) ShouldTerminateDueToIdle() bool {
	if w.activityTimeout <= 0 {
		return false
	}
	w.mu.Lock()
	idle := time.Since(w.lastActivity)
	w.mu.Unlock()
	expired := idle > w.activityTimeout
	if expired {
		w.log.Info().Float64("idle_seconds", idle.Seconds()).Msg("worker has been idle")
	}
	return expired
}

// MarkActive refreshes the last-activity timestamp.
func (w *SelfTerminatingWorker) MarkActive() {
	w.mu.Lock()
	w.lastActivity = time.Now()
	w.mu.Unlock()
}
