package platform

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/internal/gpu"
)

// Module provides the window context, its device and its surface.
var Module = fx.Module("platform",
	fx.Provide(NewGraphics),
)

// NewGraphicsParams holds dependencies for NewGraphics.
type NewGraphicsParams struct {
	fx.In
	Cfg    *config.Config
	Logger *zap.Logger
}

// NewGraphicsResult exposes the context under the interfaces its consumers use.
type NewGraphicsResult struct {
	fx.Out
	Context *Context
	Device  gpu.Device
	Surface gpu.Surface
}

// NewGraphics creates the context and configures its surface with the
// preferred format. fx runs lifecycle hooks off the main thread, so the
// caller that owns the main thread releases the context with Context.Close.
func NewGraphics(params NewGraphicsParams) (NewGraphicsResult, error) {
	logger := params.Logger.Named("platform")

	gfx, err := NewContext(params.Cfg.Window, logger)
	if err != nil {
		logger.Error("Failed to create graphics context", zap.Error(err))
		return NewGraphicsResult{}, err
	}

	surfaceCfg := gpu.SurfaceConfiguration{
		Device: gfx.Device(),
		Format: gfx.PreferredFormat(),
		VSync:  params.Cfg.Window.VSync,
	}
	if err := gfx.Configure(surfaceCfg); err != nil {
		gfx.Close()
		return NewGraphicsResult{}, fmt.Errorf("failed to configure surface: %w", err)
	}

	return NewGraphicsResult{Context: gfx, Device: gfx.Device(), Surface: gfx}, nil
}
