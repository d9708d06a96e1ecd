// Package gpu defines a small, backend-neutral rendering API: devices,
// buffers, immutable pipelines and recorded command buffers replayed by a
// queue. The desktop OpenGL backend lives in the platform package; tests use
// the recording device from gputest.
package gpu

import "errors"

var (
	// ErrGPUUnsupported means the host has no usable graphics stack at all.
	ErrGPUUnsupported = errors.New("gpu: graphics not supported on this host")

	// ErrNoAdapter means a graphics stack exists but no adapter or context
	// with the required capabilities could be acquired.
	ErrNoAdapter = errors.New("gpu: no appropriate adapter found")

	// ErrValidation is wrapped by all descriptor and encoding errors.
	ErrValidation = errors.New("gpu: validation error")

	// ErrShaderCompilation is wrapped by shader compile and link failures.
	ErrShaderCompilation = errors.New("gpu: shader compilation failed")
)

// Buffer is a device-side allocation.
type Buffer interface {
	Label() string
	Size() int
	Usage() BufferUsage
	Destroy()
}

// RenderPipeline is an immutable pipeline object.
type RenderPipeline interface {
	Label() string
	Descriptor() RenderPipelineDescriptor
}

// TextureView is a render target for one frame.
type TextureView interface {
	Format() TextureFormat
	Size() (width, height int)
}

// Queue orders buffer writes and command submission. Writes are visible to
// commands submitted after them.
type Queue interface {
	// WriteBuffer copies data into buf starting at byte offset.
	WriteBuffer(buf Buffer, offset int, data []float32) error
	// Submit executes the command buffers in order. It does not wait for the
	// GPU to finish.
	Submit(cmds ...*CommandBuffer) error
}

// Device creates resources and owns the queue.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)
	Queue() Queue
}

// Surface is the presentable drawing area of a window.
type Surface interface {
	Configure(cfg SurfaceConfiguration) error
	PreferredFormat() TextureFormat
	CurrentTextureView() (TextureView, error)
	Present()
}
