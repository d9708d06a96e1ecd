package visualizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/gpu"
	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/pkg/audio"
)

// idleWait bounds how long the loop sleeps in the event queue while capture
// is not live, so a settled capture request is noticed promptly.
const idleWait = 50 * time.Millisecond

// Host is the window event pump.
type Host interface {
	PollEvents()
	WaitEvents(timeout time.Duration)
	ShouldClose() bool
	// SetActivateHandler installs the start control callback; nil detaches it.
	SetActivateHandler(fn func())
}

// Activator starts capture once and delivers the analyser when it is live.
type Activator interface {
	Activate(ctx context.Context) bool
	Ready() <-chan *audio.Analyser
}

// Visualizer runs the frame loop.
type Visualizer struct {
	logger    *zap.Logger
	host      Host
	surface   gpu.Surface
	state     *State
	activator Activator
	metrics   *observe.Metrics
	autostart bool

	// failing is set while consecutive frames fail, so a persistent fault
	// is logged once rather than every frame.
	failing bool
}

// New creates a visualizer. With autostart the start control fires as soon
// as Run begins.
func New(host Host, surface gpu.Surface, state *State, activator Activator, metrics *observe.Metrics, autostart bool, logger *zap.Logger) *Visualizer {
	return &Visualizer{
		logger:    logger,
		host:      host,
		surface:   surface,
		state:     state,
		activator: activator,
		metrics:   metrics,
		autostart: autostart,
	}
}

// State returns the application state the loop renders from.
func (v *Visualizer) State() *State { return v.state }

// Run drives the loop on the calling goroutine, which must own the graphics
// context. It returns when ctx is cancelled or the window is closed. Frames
// are only rendered once capture is live; until then, and forever after a
// failed capture request, the loop just services window events. A frame that
// fails is logged and dropped; the next iteration renders again.
func (v *Visualizer) Run(ctx context.Context) {
	v.armStartControl(ctx)
	if v.autostart {
		v.logger.Info("Autostart enabled, activating capture")
		v.host.SetActivateHandler(nil)
		v.activator.Activate(ctx)
	} else {
		v.logger.Info("Click the window or press Space to start")
	}

	frames := 0
	for {
		if ctx.Err() != nil {
			v.logger.Info("Frame loop cancelled", zap.Int("frames", frames))
			return
		}
		if v.host.ShouldClose() {
			v.logger.Info("Window closed", zap.Int("frames", frames))
			return
		}

		v.host.PollEvents()

		if !v.state.Live() {
			select {
			case analyser := <-v.activator.Ready():
				v.state.Connect(analyser)
				v.logger.Info("Capture live, rendering")
			default:
				v.host.WaitEvents(idleWait)
				continue
			}
		}

		if v.frame(ctx) {
			frames++
		}
	}
}

// armStartControl installs a one-shot handler: it detaches itself before
// starting capture.
func (v *Visualizer) armStartControl(ctx context.Context) {
	v.host.SetActivateHandler(func() {
		v.host.SetActivateHandler(nil)
		v.activator.Activate(ctx)
	})
}

// frame renders and presents one frame and reports whether it was rendered.
func (v *Visualizer) frame(ctx context.Context) bool {
	start := time.Now()

	view, err := v.surface.CurrentTextureView()
	if err != nil {
		v.frameFailed(ctx, "acquire", fmt.Errorf("failed to acquire surface texture: %w", err))
		// Nothing to present, so nothing paces the loop.
		v.host.WaitEvents(idleWait)
		return false
	}
	if err := v.state.RenderFrame(view); err != nil {
		v.frameFailed(ctx, "render", err)
		v.surface.Present()
		return false
	}
	v.metrics.RecordFrame(ctx, time.Since(start))

	// With vsync the swap blocks until the next refresh; this paces the loop.
	v.surface.Present()

	if v.failing {
		v.failing = false
		v.logger.Info("Frame rendering recovered")
	}
	return true
}

func (v *Visualizer) frameFailed(ctx context.Context, stage string, err error) {
	v.metrics.RecordFrameError(ctx, stage)
	if v.failing {
		return
	}
	v.failing = true
	v.logger.Error("Frame failed, dropping it", zap.String("stage", stage), zap.Error(err))
}
