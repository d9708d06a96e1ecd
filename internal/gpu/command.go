package gpu

import "fmt"

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CommandBeginRenderPass CommandKind = iota
	CommandSetPipeline
	CommandSetVertexBuffer
	CommandDraw
	CommandEndRenderPass
)

func (k CommandKind) String() string {
	switch k {
	case CommandBeginRenderPass:
		return "begin-render-pass"
	case CommandSetPipeline:
		return "set-pipeline"
	case CommandSetVertexBuffer:
		return "set-vertex-buffer"
	case CommandDraw:
		return "draw"
	case CommandEndRenderPass:
		return "end-render-pass"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// Command is one recorded operation. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	Pass     RenderPassDescriptor // CommandBeginRenderPass
	Pipeline RenderPipeline       // CommandSetPipeline, CommandDraw
	Slot     int                  // CommandSetVertexBuffer
	Buffer   Buffer               // CommandSetVertexBuffer

	// CommandDraw. VertexBuffers holds the buffers bound at draw time,
	// indexed by slot.
	VertexCount   int
	FirstVertex   int
	VertexBuffers []Buffer
}

// CommandBuffer is a finished, immutable command list ready for submission.
type CommandBuffer struct {
	Label    string
	Commands []Command
}

// Draws returns the draw commands in recording order.
func (cb *CommandBuffer) Draws() []Command {
	var draws []Command
	for _, c := range cb.Commands {
		if c.Kind == CommandDraw {
			draws = append(draws, c)
		}
	}
	return draws
}

// CommandEncoder records commands on the CPU. Recording errors are sticky:
// the first one is returned by Finish and later commands are ignored.
type CommandEncoder struct {
	label    string
	commands []Command
	pass     *RenderPassEncoder
	finished bool
	err      error
}

// NewCommandEncoder returns an empty encoder.
func NewCommandEncoder(label string) *CommandEncoder {
	return &CommandEncoder{label: label}
}

func (e *CommandEncoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: encoder %q: %s", ErrValidation, e.label, fmt.Sprintf(format, args...))
	}
}

func (e *CommandEncoder) record(c Command) {
	if e.err == nil {
		e.commands = append(e.commands, c)
	}
}

// BeginRenderPass starts a pass. Only one pass may be open at a time.
func (e *CommandEncoder) BeginRenderPass(desc RenderPassDescriptor) *RenderPassEncoder {
	p := &RenderPassEncoder{enc: e, buffers: make(map[int]Buffer)}
	switch {
	case e.finished:
		e.fail("begin render pass after finish")
	case e.pass != nil:
		e.fail("begin render pass while pass is open")
	case len(desc.ColorAttachments) == 0:
		e.fail("render pass %q has no color attachments", desc.Label)
	}
	for i, att := range desc.ColorAttachments {
		if att.View == nil {
			e.fail("render pass %q color attachment %d has no view", desc.Label, i)
		}
	}
	e.pass = p
	e.record(Command{Kind: CommandBeginRenderPass, Pass: desc})
	return p
}

// Finish closes the encoder. It fails if a pass is still open or any
// recorded command was invalid.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	if e.finished {
		e.fail("finish called twice")
	}
	if e.pass != nil {
		e.fail("finish with an open render pass")
	}
	e.finished = true
	if e.err != nil {
		return nil, e.err
	}
	return &CommandBuffer{Label: e.label, Commands: e.commands}, nil
}

// RenderPassEncoder records commands inside one render pass.
type RenderPassEncoder struct {
	enc      *CommandEncoder
	pipeline RenderPipeline
	buffers  map[int]Buffer
	ended    bool
}

func (p *RenderPassEncoder) active() bool {
	if p.ended {
		p.enc.fail("command recorded on an ended render pass")
		return false
	}
	return true
}

// SetPipeline binds the pipeline used by subsequent draws.
func (p *RenderPassEncoder) SetPipeline(pipeline RenderPipeline) {
	if !p.active() {
		return
	}
	if pipeline == nil {
		p.enc.fail("set nil pipeline")
		return
	}
	p.pipeline = pipeline
	p.enc.record(Command{Kind: CommandSetPipeline, Pipeline: pipeline})
}

// SetVertexBuffer binds buf to a vertex buffer slot.
func (p *RenderPassEncoder) SetVertexBuffer(slot int, buf Buffer) {
	if !p.active() {
		return
	}
	if buf == nil {
		p.enc.fail("set nil vertex buffer at slot %d", slot)
		return
	}
	if !buf.Usage().Has(BufferUsageVertex) {
		p.enc.fail("buffer %q bound at slot %d lacks vertex usage", buf.Label(), slot)
		return
	}
	p.buffers[slot] = buf
	p.enc.record(Command{Kind: CommandSetVertexBuffer, Slot: slot, Buffer: buf})
}

// Draw issues vertexCount vertices starting at vertex 0.
func (p *RenderPassEncoder) Draw(vertexCount int) {
	if !p.active() {
		return
	}
	if p.pipeline == nil {
		p.enc.fail("draw without a pipeline")
		return
	}
	if vertexCount < 0 {
		p.enc.fail("draw with negative vertex count %d", vertexCount)
		return
	}

	layouts := p.pipeline.Descriptor().Vertex.Buffers
	bound := make([]Buffer, len(layouts))
	for slot, layout := range layouts {
		buf, ok := p.buffers[slot]
		if !ok {
			p.enc.fail("draw with no vertex buffer at slot %d", slot)
			return
		}
		if need := vertexCount * layout.ArrayStride; need > buf.Size() {
			p.enc.fail("draw of %d vertices reads %d bytes from %q of size %d", vertexCount, need, buf.Label(), buf.Size())
			return
		}
		bound[slot] = buf
	}

	p.enc.record(Command{
		Kind:          CommandDraw,
		Pipeline:      p.pipeline,
		VertexCount:   vertexCount,
		VertexBuffers: bound,
	})
}

// End closes the pass.
func (p *RenderPassEncoder) End() {
	if !p.active() {
		return
	}
	p.ended = true
	if p.enc.pass == p {
		p.enc.pass = nil
	}
	p.enc.record(Command{Kind: CommandEndRenderPass})
}
