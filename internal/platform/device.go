package platform

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/gpu"
)

type glBuffer struct {
	id        uint32
	label     string
	size      int
	usage     gpu.BufferUsage
	destroyed bool
}

func (b *glBuffer) Label() string          { return b.label }
func (b *glBuffer) Size() int              { return b.size }
func (b *glBuffer) Usage() gpu.BufferUsage { return b.usage }

func (b *glBuffer) Destroy() {
	if b.destroyed {
		return
	}
	gl.DeleteBuffers(1, &b.id)
	b.destroyed = true
}

type glPipeline struct {
	desc    gpu.RenderPipelineDescriptor
	program uint32
	vao     uint32
	mode    uint32
}

func (p *glPipeline) Label() string                            { return p.desc.Label }
func (p *glPipeline) Descriptor() gpu.RenderPipelineDescriptor { return p.desc }

// glDevice implements gpu.Device and gpu.Queue on the current GL context.
// Command buffers are replayed as immediate-mode GL calls on Submit.
type glDevice struct {
	logger    *zap.Logger
	buffers   []*glBuffer
	pipelines []*glPipeline
}

func newGLDevice(logger *zap.Logger) *glDevice {
	return &glDevice{logger: logger}
}

func (d *glDevice) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if desc.Size <= 0 || desc.Size%4 != 0 {
		return nil, fmt.Errorf("%w: buffer %q size %d", gpu.ErrValidation, desc.Label, desc.Size)
	}

	b := &glBuffer{label: desc.Label, size: desc.Size, usage: desc.Usage}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, desc.Size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *glDevice) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	mode, ok := topologyMode(desc.Topology)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline %q topology %s", gpu.ErrValidation, desc.Label, desc.Topology)
	}
	vsSource, err := gpu.VertexStageSource(desc.Vertex)
	if err != nil {
		return nil, err
	}
	fsSource, err := gpu.FragmentStageSource(desc.Fragment)
	if err != nil {
		return nil, err
	}

	program, err := linkProgram(vsSource, fsSource)
	if err != nil {
		return nil, fmt.Errorf("%w: pipeline %q: %w", gpu.ErrShaderCompilation, desc.Label, err)
	}

	p := &glPipeline{desc: desc, program: program, mode: mode}
	gl.GenVertexArrays(1, &p.vao)
	d.pipelines = append(d.pipelines, p)

	d.logger.Debug("render pipeline created",
		zap.String("label", desc.Label),
		zap.Stringer("topology", desc.Topology),
		zap.Uint32("program", program))
	return p, nil
}

func (d *glDevice) Queue() gpu.Queue { return d }

func (d *glDevice) WriteBuffer(buf gpu.Buffer, offset int, data []float32) error {
	b, ok := buf.(*glBuffer)
	if !ok || b.destroyed {
		return fmt.Errorf("%w: buffer is not a live GL buffer", gpu.ErrValidation)
	}
	if !b.usage.Has(gpu.BufferUsageCopyDst) {
		return fmt.Errorf("%w: buffer %q lacks copy-dst usage", gpu.ErrValidation, b.label)
	}
	if offset < 0 || offset%4 != 0 || offset+len(data)*4 > b.size {
		return fmt.Errorf("%w: write of %d bytes at %d overflows %q", gpu.ErrValidation, len(data)*4, offset, b.label)
	}
	if len(data) == 0 {
		return nil
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferSubData(gl.ARRAY_BUFFER, offset, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (d *glDevice) Submit(cmds ...*gpu.CommandBuffer) error {
	for _, cb := range cmds {
		if cb == nil {
			return fmt.Errorf("%w: nil command buffer", gpu.ErrValidation)
		}
		for _, c := range cb.Commands {
			if err := d.execute(c); err != nil {
				return fmt.Errorf("command buffer %q: %w", cb.Label, err)
			}
		}
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x after submit", code)
	}
	return nil
}

func (d *glDevice) execute(c gpu.Command) error {
	switch c.Kind {
	case gpu.CommandBeginRenderPass:
		att := c.Pass.ColorAttachments[0]
		if att.LoadOp == gpu.LoadOpClear {
			v := att.ClearValue
			gl.ClearColor(float32(v.R), float32(v.G), float32(v.B), float32(v.A))
			gl.Clear(gl.COLOR_BUFFER_BIT)
		}
	case gpu.CommandSetPipeline:
		p, ok := c.Pipeline.(*glPipeline)
		if !ok {
			return fmt.Errorf("%w: pipeline was not created by this device", gpu.ErrValidation)
		}
		gl.UseProgram(p.program)
		gl.BindVertexArray(p.vao)
	case gpu.CommandSetVertexBuffer:
		// Bindings are resolved against the pipeline layout at draw time.
	case gpu.CommandDraw:
		return d.draw(c)
	case gpu.CommandEndRenderPass:
		gl.BindVertexArray(0)
		gl.UseProgram(0)
	}
	return nil
}

func (d *glDevice) draw(c gpu.Command) error {
	p, ok := c.Pipeline.(*glPipeline)
	if !ok {
		return fmt.Errorf("%w: pipeline was not created by this device", gpu.ErrValidation)
	}
	for slot, layout := range p.desc.Vertex.Buffers {
		b, ok := c.VertexBuffers[slot].(*glBuffer)
		if !ok || b.destroyed {
			return fmt.Errorf("%w: slot %d is not a live GL buffer", gpu.ErrValidation, slot)
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
		for _, attr := range layout.Attributes {
			loc := uint32(attr.ShaderLocation)
			gl.EnableVertexAttribArray(loc)
			gl.VertexAttribPointer(loc, int32(attr.Format.Components()), gl.FLOAT, false,
				int32(layout.ArrayStride), gl.PtrOffset(attr.Offset))
		}
	}
	gl.DrawArrays(p.mode, int32(c.FirstVertex), int32(c.VertexCount))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (d *glDevice) release() {
	for _, b := range d.buffers {
		b.Destroy()
	}
	for _, p := range d.pipelines {
		gl.DeleteVertexArrays(1, &p.vao)
		gl.DeleteProgram(p.program)
	}
	d.buffers, d.pipelines = nil, nil
}

func topologyMode(t gpu.PrimitiveTopology) (uint32, bool) {
	switch t {
	case gpu.TopologyPointList:
		return gl.POINTS, true
	case gpu.TopologyLineList:
		return gl.LINES, true
	case gpu.TopologyLineStrip:
		return gl.LINE_STRIP, true
	case gpu.TopologyTriangleList:
		return gl.TRIANGLES, true
	default:
		return 0, false
	}
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex stage: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment stage: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return program, nil
}

func compileShader(source string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}
