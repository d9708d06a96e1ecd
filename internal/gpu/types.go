package gpu

import "fmt"

// TextureFormat is the pixel format of a render target.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatBGRA8Unorm
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	default:
		return "undefined"
	}
}

// BufferUsage is a bit set describing how a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageCopyDst
)

// Has reports whether all bits in flag are set.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// VertexFormat describes one vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x4
)

// Components returns the number of float components in the attribute.
func (f VertexFormat) Components() int {
	switch f {
	case VertexFormatFloat32x2:
		return 2
	case VertexFormatFloat32x4:
		return 4
	default:
		return 1
	}
}

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() int {
	return f.Components() * 4
}

// GLSLType returns the shading-language type the attribute binds to.
func (f VertexFormat) GLSLType() string {
	switch f {
	case VertexFormatFloat32x2:
		return "vec2"
	case VertexFormatFloat32x4:
		return "vec4"
	default:
		return "float"
	}
}

// PrimitiveTopology selects how vertices are assembled into primitives.
type PrimitiveTopology int

const (
	TopologyPointList PrimitiveTopology = iota
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
)

func (t PrimitiveTopology) String() string {
	switch t {
	case TopologyPointList:
		return "point-list"
	case TopologyLineList:
		return "line-list"
	case TopologyLineStrip:
		return "line-strip"
	case TopologyTriangleList:
		return "triangle-list"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// Segments returns the vertex index pairs connected by a line topology for a
// draw of n vertices. A line strip joins k to k+1 and never closes back to 0.
// Non-line topologies return nil.
func (t PrimitiveTopology) Segments(n int) [][2]int {
	switch t {
	case TopologyLineStrip:
		if n < 2 {
			return nil
		}
		segs := make([][2]int, 0, n-1)
		for k := 0; k+1 < n; k++ {
			segs = append(segs, [2]int{k, k + 1})
		}
		return segs
	case TopologyLineList:
		segs := make([][2]int, 0, n/2)
		for k := 0; k+1 < n; k += 2 {
			segs = append(segs, [2]int{k, k + 1})
		}
		return segs
	default:
		return nil
	}
}

// Color is a linear RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// LoadOp is what happens to an attachment at the start of a pass.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// StoreOp is what happens to an attachment at the end of a pass.
type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  int // bytes
	Usage BufferUsage
}

// ShaderModuleDescriptor holds shader code with named entry points. Entry
// points are plain functions: the vertex entry takes the vertex attributes
// in shader-location order followed by the vertex index and returns the clip
// position; the fragment entry takes nothing and returns the colour.
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// VertexAttribute binds part of a vertex buffer to a shader location.
type VertexAttribute struct {
	ShaderLocation int
	Offset         int
	Format         VertexFormat
}

// VertexBufferLayout describes one vertex buffer slot.
type VertexBufferLayout struct {
	ArrayStride int
	Attributes  []VertexAttribute
}

// VertexState is the vertex stage of a pipeline.
type VertexState struct {
	Module     ShaderModuleDescriptor
	EntryPoint string
	Buffers    []VertexBufferLayout
}

// ColorTargetState is one colour output of the fragment stage.
type ColorTargetState struct {
	Format TextureFormat
}

// FragmentState is the fragment stage of a pipeline.
type FragmentState struct {
	Module     ShaderModuleDescriptor
	EntryPoint string
	Targets    []ColorTargetState
}

// RenderPipelineDescriptor describes an immutable render pipeline.
type RenderPipelineDescriptor struct {
	Label    string
	Vertex   VertexState
	Fragment FragmentState
	Topology PrimitiveTopology
}

// Validate checks the descriptor for structural problems that do not need a
// device to detect.
func (d RenderPipelineDescriptor) Validate() error {
	if d.Vertex.EntryPoint == "" {
		return fmt.Errorf("%w: pipeline %q has no vertex entry point", ErrValidation, d.Label)
	}
	if d.Fragment.EntryPoint == "" {
		return fmt.Errorf("%w: pipeline %q has no fragment entry point", ErrValidation, d.Label)
	}
	if len(d.Fragment.Targets) == 0 {
		return fmt.Errorf("%w: pipeline %q has no color targets", ErrValidation, d.Label)
	}
	locations := make(map[int]bool)
	for slot, layout := range d.Vertex.Buffers {
		if layout.ArrayStride <= 0 {
			return fmt.Errorf("%w: pipeline %q buffer %d has stride %d", ErrValidation, d.Label, slot, layout.ArrayStride)
		}
		for _, attr := range layout.Attributes {
			if attr.Offset < 0 || attr.Offset+attr.Format.Size() > layout.ArrayStride {
				return fmt.Errorf("%w: pipeline %q buffer %d attribute at location %d exceeds stride", ErrValidation, d.Label, slot, attr.ShaderLocation)
			}
			if locations[attr.ShaderLocation] {
				return fmt.Errorf("%w: pipeline %q binds shader location %d twice", ErrValidation, d.Label, attr.ShaderLocation)
			}
			locations[attr.ShaderLocation] = true
		}
	}
	return nil
}

// RenderPassColorAttachment is one colour target of a render pass.
type RenderPassColorAttachment struct {
	View       TextureView
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearValue Color
}

// RenderPassDescriptor describes the targets of a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []RenderPassColorAttachment
}

// SurfaceConfiguration ties a surface to a device and pixel format.
type SurfaceConfiguration struct {
	Device Device
	Format TextureFormat
	VSync  bool
}
