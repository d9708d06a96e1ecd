package util

import (
	"sync"
	"time"
)

// Watchdog calls onStall once when Kick has not been called for the
// configured timeout. The next Kick re-arms it and calls onRecover if a stall
// had been reported. It's thread-safe; callbacks run on their own goroutine.
//
// Example usage:
//
//	wd := NewWatchdog(2*time.Second, func() {
//	    logger.Warn("no audio received")
//	}, nil)
//	defer wd.Stop()
//
//	source.Open(ctx, func(samples []float32) {
//	    wd.Kick()
//	    analyser.Write(samples)
//	})
type Watchdog struct {
	timeout   time.Duration
	onStall   func()
	onRecover func()

	mu      sync.Mutex
	timer   *time.Timer
	stalled bool
	stopped bool
}

// NewWatchdog creates an armed watchdog. onRecover may be nil.
func NewWatchdog(timeout time.Duration, onStall, onRecover func()) *Watchdog {
	w := &Watchdog{
		timeout:   timeout,
		onStall:   onStall,
		onRecover: onRecover,
	}
	w.timer = time.AfterFunc(timeout, w.fire)
	return w
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	if w.stopped || w.stalled {
		w.mu.Unlock()
		return
	}
	w.stalled = true
	w.mu.Unlock()

	if w.onStall != nil {
		w.onStall()
	}
}

// Kick records activity and re-arms the timer. No-op after Stop.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	recovered := w.stalled
	w.stalled = false
	w.timer.Reset(w.timeout)
	w.mu.Unlock()

	if recovered && w.onRecover != nil {
		w.onRecover()
	}
}

// Stalled reports whether a stall is currently in effect.
func (w *Watchdog) Stalled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stalled
}

// Stop disarms the watchdog. It's safe to call Stop multiple times.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.stopped {
		w.timer.Stop()
		w.stopped = true
	}
}
