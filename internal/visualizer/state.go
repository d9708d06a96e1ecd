// Package visualizer owns the application state and the frame loop that turns
// live time-domain samples into one line-strip draw per display refresh.
package visualizer

import (
	"errors"
	"fmt"

	"github.com/Raikerian/go-waveform/internal/gpu"
	"github.com/Raikerian/go-waveform/internal/waveform"
)

// ErrNotLive is returned by RenderFrame before an analyser is connected.
var ErrNotLive = errors.New("visualizer: capture is not live")

// TimeDomainReader is the analyser view the frame loop needs.
type TimeDomainReader interface {
	GetFloatTimeDomainData(dst []float32) int
}

// State is everything a frame needs: the device handles created at startup,
// the analyser once capture is live, and the host-side waveform buffer the
// vertex buffer mirrors.
type State struct {
	device       gpu.Device
	pipeline     gpu.RenderPipeline
	vertexBuffer gpu.Buffer
	clear        gpu.Color

	analyser TimeDomainReader
	waveform []float32
}

// NewState returns a state with a zeroed waveform buffer and no analyser.
func NewState(device gpu.Device, pipeline gpu.RenderPipeline, vertexBuffer gpu.Buffer, clear gpu.Color) *State {
	return &State{
		device:       device,
		pipeline:     pipeline,
		vertexBuffer: vertexBuffer,
		clear:        clear,
		waveform:     make([]float32, waveform.VertexCount),
	}
}

// Connect attaches the analyser. Frames can be rendered from then on.
func (s *State) Connect(analyser TimeDomainReader) { s.analyser = analyser }

// Live reports whether an analyser is connected.
func (s *State) Live() bool { return s.analyser != nil }

// Waveform returns the host-side buffer. It is overwritten by every frame.
func (s *State) Waveform() []float32 { return s.waveform }

// RenderFrame reads the latest samples into the waveform buffer, uploads it
// and submits one pass that clears target and draws the strip.
func (s *State) RenderFrame(target gpu.TextureView) error {
	if s.analyser == nil {
		return ErrNotLive
	}

	s.analyser.GetFloatTimeDomainData(s.waveform)

	if err := s.device.Queue().WriteBuffer(s.vertexBuffer, 0, s.waveform); err != nil {
		return fmt.Errorf("failed to upload waveform: %w", err)
	}

	enc := gpu.NewCommandEncoder("waveform frame")
	pass := enc.BeginRenderPass(gpu.RenderPassDescriptor{
		Label: "waveform pass",
		ColorAttachments: []gpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gpu.LoadOpClear,
			StoreOp:    gpu.StoreOpStore,
			ClearValue: s.clear,
		}},
	})
	pass.SetPipeline(s.pipeline)
	pass.SetVertexBuffer(0, s.vertexBuffer)
	pass.Draw(waveform.VertexCount)
	pass.End()

	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := s.device.Queue().Submit(cb); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	return nil
}
