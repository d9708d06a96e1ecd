// Package waveform builds the render pipeline that draws a block of samples
// as a line strip across the full width of the surface.
package waveform

import (
	"fmt"

	"github.com/Raikerian/go-waveform/internal/gpu"
)

const (
	// VertexCount is the number of samples drawn per frame.
	VertexCount = 2048
	// VertexStride is the byte size of one vertex: a single float32 amplitude.
	VertexStride = 4
	// BufferSize is the byte size of the vertex buffer.
	BufferSize = VertexCount * VertexStride

	vertexEntryPoint   = "vs"
	fragmentEntryPoint = "fs"
)

// The vertex index is spread over clip space x in [-1, 1) and the sample
// value is used as y unchanged.
const vertexShader = `
vec4 vs(float y, int i) {
	float a = float(i) / 2048.0;
	float x = (a * 2.0) - 1.0;
	return vec4(x, y, 0.0, 1.0);
}
`

const fragmentShaderFormat = `
vec4 fs() {
	return vec4(%.6f, %.6f, %.6f, %.6f);
}
`

// VertexX returns the clip-space x coordinate the vertex stage assigns to
// vertex i.
func VertexX(i int) float32 {
	a := float32(i) / VertexCount
	return a*2 - 1
}

// ShaderModule returns the shader source with both entry points. The
// fragment stage emits the given constant colour.
func ShaderModule(color gpu.Color) gpu.ShaderModuleDescriptor {
	return gpu.ShaderModuleDescriptor{
		Label: "waveform shader",
		Code:  vertexShader + fmt.Sprintf(fragmentShaderFormat, color.R, color.G, color.B, color.A),
	}
}

// PipelineDescriptor describes the waveform pipeline for a target format.
func PipelineDescriptor(format gpu.TextureFormat, color gpu.Color) gpu.RenderPipelineDescriptor {
	module := ShaderModule(color)
	return gpu.RenderPipelineDescriptor{
		Label: "waveform pipeline",
		Vertex: gpu.VertexState{
			Module:     module,
			EntryPoint: vertexEntryPoint,
			Buffers: []gpu.VertexBufferLayout{{
				ArrayStride: VertexStride,
				Attributes: []gpu.VertexAttribute{{
					ShaderLocation: 0,
					Offset:         0,
					Format:         gpu.VertexFormatFloat32,
				}},
			}},
		},
		Fragment: gpu.FragmentState{
			Module:     module,
			EntryPoint: fragmentEntryPoint,
			Targets:    []gpu.ColorTargetState{{Format: format}},
		},
		Topology: gpu.TopologyLineStrip,
	}
}

// NewPipeline compiles the waveform pipeline on device. It is created once at
// startup; a compile or link failure is returned wrapped.
func NewPipeline(device gpu.Device, format gpu.TextureFormat, color gpu.Color) (gpu.RenderPipeline, error) {
	p, err := device.CreateRenderPipeline(PipelineDescriptor(format, color))
	if err != nil {
		return nil, fmt.Errorf("failed to create waveform pipeline: %w", err)
	}
	return p, nil
}

// NewVertexBuffer allocates the buffer the frame loop writes samples into.
func NewVertexBuffer(device gpu.Device) (gpu.Buffer, error) {
	b, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: "waveform vertices",
		Size:  BufferSize,
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer: %w", err)
	}
	return b, nil
}
