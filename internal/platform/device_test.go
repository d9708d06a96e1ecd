package platform

import (
	"testing"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/stretchr/testify/assert"

	"github.com/Raikerian/go-waveform/internal/gpu"
)

func TestTopologyMode(t *testing.T) {
	tests := map[string]struct {
		topology gpu.PrimitiveTopology
		mode     uint32
		ok       bool
	}{
		"points":     {topology: gpu.TopologyPointList, mode: gl.POINTS, ok: true},
		"lines":      {topology: gpu.TopologyLineList, mode: gl.LINES, ok: true},
		"line_strip": {topology: gpu.TopologyLineStrip, mode: gl.LINE_STRIP, ok: true},
		"triangles":  {topology: gpu.TopologyTriangleList, mode: gl.TRIANGLES, ok: true},
		"unknown":    {topology: gpu.PrimitiveTopology(99), ok: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			mode, ok := topologyMode(tt.topology)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.mode, mode)
		})
	}
}

func TestFramebufferView(t *testing.T) {
	v := framebufferView{width: 1600, height: 1200}

	w, h := v.Size()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
	assert.Equal(t, gpu.TextureFormatRGBA8Unorm, v.Format())
}

func TestWriteBufferRejectsForeignBuffers(t *testing.T) {
	d := newGLDevice(nil)

	err := d.WriteBuffer(nil, 0, []float32{0})
	assert.ErrorIs(t, err, gpu.ErrValidation)

	dead := &glBuffer{label: "vb", size: 16, usage: gpu.BufferUsageCopyDst | gpu.BufferUsageVertex, destroyed: true}
	err = d.WriteBuffer(dead, 0, []float32{0})
	assert.ErrorIs(t, err, gpu.ErrValidation)

	readOnly := &glBuffer{label: "vb", size: 16, usage: gpu.BufferUsageVertex}
	err = d.WriteBuffer(readOnly, 0, []float32{0})
	assert.ErrorIs(t, err, gpu.ErrValidation)

	writable := &glBuffer{label: "vb", size: 16, usage: gpu.BufferUsageCopyDst | gpu.BufferUsageVertex}
	err = d.WriteBuffer(writable, 8, []float32{0, 0, 0})
	assert.ErrorIs(t, err, gpu.ErrValidation)
}
