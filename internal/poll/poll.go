// Package poll provides a cancelable repeating timer for job polling.
//
// A handle runs its tick function immediately, then once per interval. Ticks
// never overlap: the next one is scheduled only after the previous returns.
// Stop is idempotent and safe to call from any goroutine.
package poll

import (
	"context"
	"sync"
	"time"
)

// Tick is invoked on each poll. Returning false stops the loop.
type Tick func(ctx context.Context) bool

// Handle controls one running poll loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches a poll loop. The first tick fires immediately.
func Start(ctx context.Context, interval time.Duration, tick Tick) *Handle {
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.run(loopCtx, interval, tick)
	return h
}

// Stop cancels the loop and waits for the in-flight tick, if any, to return.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has fully exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) run(ctx context.Context, interval time.Duration, tick Tick) {
	defer close(h.done)
	defer h.once.Do(h.cancel)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !tick(ctx) {
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
