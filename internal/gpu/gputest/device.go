// Package gputest provides a recording gpu.Device and gpu.Surface for tests.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Raikerian/go-waveform/internal/gpu"
)

// Buffer is an in-memory gpu.Buffer. Data mirrors the bytes written through
// the queue as float32 values.
type Buffer struct {
	label     string
	size      int
	usage     gpu.BufferUsage
	Data      []float32
	Destroyed bool
}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() int              { return b.size }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }
func (b *Buffer) Destroy()               { b.Destroyed = true }

// Pipeline is a gpu.RenderPipeline that remembers its descriptor and the
// generated stage sources.
type Pipeline struct {
	desc           gpu.RenderPipelineDescriptor
	VertexSource   string
	FragmentSource string
}

func (p *Pipeline) Label() string                            { return p.desc.Label }
func (p *Pipeline) Descriptor() gpu.RenderPipelineDescriptor { return p.desc }

// Device records every resource creation, write and submission.
type Device struct {
	mu sync.Mutex

	Buffers   []*Buffer
	Pipelines []*Pipeline
	Writes    int
	Submitted []*gpu.CommandBuffer

	// PipelineErr, when set, is returned by CreateRenderPipeline wrapped in
	// gpu.ErrShaderCompilation.
	PipelineErr error
}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if desc.Size <= 0 || desc.Size%4 != 0 {
		return nil, fmt.Errorf("%w: buffer %q size %d", gpu.ErrValidation, desc.Label, desc.Size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	b := &Buffer{label: desc.Label, size: desc.Size, usage: desc.Usage, Data: make([]float32, desc.Size/4)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	vs, err := gpu.VertexStageSource(desc.Vertex)
	if err != nil {
		return nil, err
	}
	fs, err := gpu.FragmentStageSource(desc.Fragment)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.PipelineErr != nil {
		return nil, fmt.Errorf("%w: %w", gpu.ErrShaderCompilation, d.PipelineErr)
	}
	p := &Pipeline{desc: desc, VertexSource: vs, FragmentSource: fs}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) Queue() gpu.Queue { return d }

func (d *Device) WriteBuffer(buf gpu.Buffer, offset int, data []float32) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return errors.New("gputest: buffer was not created by this device")
	}
	if !b.usage.Has(gpu.BufferUsageCopyDst) {
		return fmt.Errorf("%w: buffer %q lacks copy-dst usage", gpu.ErrValidation, b.label)
	}
	if offset < 0 || offset%4 != 0 || offset+len(data)*4 > b.size {
		return fmt.Errorf("%w: write of %d bytes at %d overflows %q", gpu.ErrValidation, len(data)*4, offset, b.label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(b.Data[offset/4:], data)
	d.Writes++
	return nil
}

func (d *Device) Submit(cmds ...*gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cb := range cmds {
		if cb == nil {
			return fmt.Errorf("%w: nil command buffer", gpu.ErrValidation)
		}
	}
	d.Submitted = append(d.Submitted, cmds...)
	return nil
}

// RenderPasses counts the render passes submitted so far.
func (d *Device) RenderPasses() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, cb := range d.Submitted {
		for _, c := range cb.Commands {
			if c.Kind == gpu.CommandBeginRenderPass {
				n++
			}
		}
	}
	return n
}

// Draws returns every submitted draw command in order.
func (d *Device) Draws() []gpu.Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	var draws []gpu.Command
	for _, cb := range d.Submitted {
		draws = append(draws, cb.Draws()...)
	}
	return draws
}

// View is a fixed-size gpu.TextureView.
type View struct {
	TextureFormat gpu.TextureFormat
	Width, Height int
}

func (v View) Format() gpu.TextureFormat { return v.TextureFormat }
func (v View) Size() (int, int)          { return v.Width, v.Height }

// Surface is a gpu.Surface that counts presentations.
type Surface struct {
	mu sync.Mutex

	Format    gpu.TextureFormat
	Config    *gpu.SurfaceConfiguration
	Presented int
	Width     int
	Height    int
}

// NewSurface returns an 800x600 surface with the given preferred format.
func NewSurface(format gpu.TextureFormat) *Surface {
	return &Surface{Format: format, Width: 800, Height: 600}
}

func (s *Surface) Configure(cfg gpu.SurfaceConfiguration) error {
	if cfg.Format != s.Format {
		return fmt.Errorf("%w: surface format %s, requested %s", gpu.ErrValidation, s.Format, cfg.Format)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Config = &cfg
	return nil
}

func (s *Surface) PreferredFormat() gpu.TextureFormat { return s.Format }

func (s *Surface) CurrentTextureView() (gpu.TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Config == nil {
		return nil, fmt.Errorf("%w: surface not configured", gpu.ErrValidation)
	}
	return View{TextureFormat: s.Format, Width: s.Width, Height: s.Height}, nil
}

func (s *Surface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Presented++
}

// Presentations returns how many frames have been presented.
func (s *Surface) Presentations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Presented
}
