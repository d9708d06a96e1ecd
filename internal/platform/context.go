// Package platform is the desktop backend of the gpu package: a GLFW window
// with an OpenGL 3.3 core context. Everything here must be called from the
// main OS thread.
package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/internal/gpu"
)

// Context owns the window, its GL context and the device bound to it. It
// implements gpu.Surface and the event pump the frame loop drives.
type Context struct {
	logger *zap.Logger
	window *glfw.Window
	device *glDevice

	mu         sync.Mutex
	activate   func()
	configured bool
	fbWidth    int
	fbHeight   int
}

// NewContext initialises GLFW, opens the window and loads the GL entry
// points. Failures wrap gpu.ErrGPUUnsupported when the windowing system or GL
// loader is unusable and gpu.ErrNoAdapter when no 3.3 core context can be
// created.
func NewContext(cfg config.WindowConfig, logger *zap.Logger) (*Context, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw init: %w", gpu.ErrGPUUnsupported, err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: create OpenGL 3.3 core window: %w", gpu.ErrNoAdapter, err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: load OpenGL: %w", gpu.ErrGPUUnsupported, err)
	}

	c := &Context{
		logger: logger,
		window: window,
		device: newGLDevice(logger),
	}
	c.fbWidth, c.fbHeight = window.GetFramebufferSize()

	window.SetFramebufferSizeCallback(c.onFramebufferSize)
	window.SetMouseButtonCallback(c.onMouseButton)
	window.SetKeyCallback(c.onKey)

	logger.Info("OpenGL context created",
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.Int("framebuffer_width", c.fbWidth),
		zap.Int("framebuffer_height", c.fbHeight))

	return c, nil
}

// Device returns the GL device bound to this context.
func (c *Context) Device() gpu.Device { return c.device }

// PreferredFormat reports the default framebuffer format.
func (c *Context) PreferredFormat() gpu.TextureFormat { return gpu.TextureFormatRGBA8Unorm }

// Configure binds the surface to the device and applies the swap interval.
func (c *Context) Configure(cfg gpu.SurfaceConfiguration) error {
	if cfg.Device != gpu.Device(c.device) {
		return fmt.Errorf("%w: surface configured with a foreign device", gpu.ErrValidation)
	}
	if cfg.Format != c.PreferredFormat() {
		return fmt.Errorf("%w: surface format %s, requested %s", gpu.ErrValidation, c.PreferredFormat(), cfg.Format)
	}
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = true
	gl.Viewport(0, 0, int32(c.fbWidth), int32(c.fbHeight))
	return nil
}

// CurrentTextureView returns the default framebuffer.
func (c *Context) CurrentTextureView() (gpu.TextureView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return nil, fmt.Errorf("%w: surface not configured", gpu.ErrValidation)
	}
	return framebufferView{width: c.fbWidth, height: c.fbHeight}, nil
}

// Present swaps buffers. With vsync enabled this blocks until the next
// display refresh, which paces the frame loop.
func (c *Context) Present() { c.window.SwapBuffers() }

// PollEvents processes pending window events without blocking.
func (c *Context) PollEvents() { glfw.PollEvents() }

// WaitEvents blocks until an event arrives or the timeout elapses.
func (c *Context) WaitEvents(timeout time.Duration) { glfw.WaitEventsTimeout(timeout.Seconds()) }

// ShouldClose reports whether the user asked to close the window.
func (c *Context) ShouldClose() bool { return c.window.ShouldClose() }

// SetActivateHandler installs the start control callback, fired on a mouse
// press or on Space/Enter. A nil handler detaches it.
func (c *Context) SetActivateHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activate = fn
}

// Close releases GL objects, the window and GLFW. It must run on the main
// thread, after which the context is unusable. Later calls are no-ops.
func (c *Context) Close() {
	if c.window == nil {
		return
	}
	c.device.release()
	c.window.Destroy()
	c.window = nil
	glfw.Terminate()
}

func (c *Context) fireActivate() {
	c.mu.Lock()
	fn := c.activate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Context) onMouseButton(_ *glfw.Window, _ glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Press {
		c.fireActivate()
	}
}

func (c *Context) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeySpace, glfw.KeyEnter, glfw.KeyKPEnter:
		c.fireActivate()
	case glfw.KeyEscape:
		c.window.SetShouldClose(true)
	}
}

func (c *Context) onFramebufferSize(_ *glfw.Window, width, height int) {
	c.mu.Lock()
	c.fbWidth, c.fbHeight = width, height
	c.mu.Unlock()
	gl.Viewport(0, 0, int32(width), int32(height))
	c.logger.Debug("framebuffer resized", zap.Int("width", width), zap.Int("height", height))
}

type framebufferView struct {
	width, height int
}

func (framebufferView) Format() gpu.TextureFormat { return gpu.TextureFormatRGBA8Unorm }
func (v framebufferView) Size() (int, int)        { return v.width, v.height }
