package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/pkg/audio"
	"github.com/Raikerian/go-waveform/pkg/util"
)

// State is the activation state of the capture path.
type State int

const (
	// StateIdle: the start control has not been used.
	StateIdle State = iota
	// StateCapturing: the start control was used. The request is in flight
	// or the stream is live.
	StateCapturing
	// StateFailed: the capture request failed. Terminal.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Activator performs the one-shot transition from Idle to Capturing. The
// first Activate call requests the input stream and connects it to the
// analyser; every later call is a no-op. A failed request is logged and left
// failed.
type Activator struct {
	logger       *zap.Logger
	source       Source
	analyser     *audio.Analyser
	metrics      *observe.Metrics
	stallTimeout time.Duration

	mu     sync.Mutex
	state  State
	err    error
	closed bool

	// watchdog is nil until the stream is open.
	watchdog atomic.Pointer[util.Watchdog]

	ready chan *audio.Analyser
	done  chan struct{}
}

// NewActivator returns an idle activator. A zero stallTimeout disables the
// stall watchdog.
func NewActivator(source Source, analyser *audio.Analyser, metrics *observe.Metrics, stallTimeout time.Duration, logger *zap.Logger) *Activator {
	return &Activator{
		logger:       logger,
		source:       source,
		analyser:     analyser,
		metrics:      metrics,
		stallTimeout: stallTimeout,
		ready:        make(chan *audio.Analyser, 1),
		done:         make(chan struct{}),
	}
}

// Activate starts the capture request in the background and reports whether
// this call performed the transition.
func (a *Activator) Activate(ctx context.Context) bool {
	a.mu.Lock()
	if a.closed || a.state != StateIdle {
		a.mu.Unlock()
		return false
	}
	a.state = StateCapturing
	a.mu.Unlock()

	a.logger.Info("Requesting microphone access")
	a.metrics.RecordActivation(ctx)
	go a.request(ctx)
	return true
}

// Ready delivers the analyser once, when the stream is live.
func (a *Activator) Ready() <-chan *audio.Analyser { return a.ready }

// Done is closed once the capture request has settled either way.
func (a *Activator) Done() <-chan struct{} { return a.done }

// State returns the current state.
func (a *Activator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the request failure, if any.
func (a *Activator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Activator) request(ctx context.Context) {
	defer close(a.done)

	// Backends may deliver samples before Open returns.
	sink := func(samples []float32) {
		a.analyser.Write(samples)
		if wd := a.watchdog.Load(); wd != nil {
			wd.Kick()
		}
		a.metrics.RecordSamples(context.Background(), len(samples))
	}

	if err := a.source.Open(ctx, sink); err != nil {
		a.fail(ctx, err)
		return
	}

	if a.stallTimeout > 0 {
		a.watchdog.Store(util.NewWatchdog(a.stallTimeout,
			func() { a.logger.Warn("No audio received from capture device", zap.Duration("timeout", a.stallTimeout)) },
			func() { a.logger.Info("Audio capture resumed") },
		))
	}

	a.logger.Info("Microphone capture live", zap.Int("fft_size", a.analyser.FFTSize()))
	a.ready <- a.analyser
}

func (a *Activator) fail(ctx context.Context, err error) {
	a.mu.Lock()
	a.state = StateFailed
	a.err = err
	a.mu.Unlock()

	reason := failureReason(err)
	a.metrics.RecordCaptureFailure(context.WithoutCancel(ctx), reason)
	a.logger.Error("Microphone access failed; visualization will not start",
		zap.String("reason", reason),
		zap.Error(err))
}

// Close stops the stream if one was opened. It waits for an in-flight
// request to settle, bounded by ctx.
func (a *Activator) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	started := a.state != StateIdle
	a.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-a.done:
	case <-ctx.Done():
		return fmt.Errorf("capture request still in flight: %w", ctx.Err())
	}

	a.mu.Lock()
	failed := a.state == StateFailed
	a.mu.Unlock()

	if wd := a.watchdog.Load(); wd != nil {
		wd.Stop()
	}
	if failed {
		return nil
	}
	return a.source.Close()
}
