package visualizer

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/internal/gpu"
	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/internal/waveform"
)

// Module provides the visualizer.
var Module = fx.Module("visualizer",
	fx.Provide(NewFromConfig),
)

// NewFromConfigParams holds dependencies for NewFromConfig.
type NewFromConfigParams struct {
	fx.In
	Cfg       *config.Config
	Logger    *zap.Logger
	Host      Host
	Surface   gpu.Surface
	Device    gpu.Device
	Activator Activator
	Metrics   *observe.Metrics
}

// NewFromConfig builds the pipeline and vertex buffer on the device and
// returns a visualizer ready to Run. Pipeline creation failures are fatal.
func NewFromConfig(params NewFromConfigParams) (*Visualizer, error) {
	logger := params.Logger.Named("visualizer")
	render := params.Cfg.Render

	format := params.Surface.PreferredFormat()
	pipeline, err := waveform.NewPipeline(params.Device, format, toColor(render.LineColor))
	if err != nil {
		logger.Error("Failed to build waveform pipeline", zap.Error(err))
		return nil, err
	}
	vertexBuffer, err := waveform.NewVertexBuffer(params.Device)
	if err != nil {
		return nil, err
	}

	logger.Debug("Waveform pipeline ready", zap.Stringer("format", format))

	state := NewState(params.Device, pipeline, vertexBuffer, toColor(render.ClearColor))
	return New(params.Host, params.Surface, state, params.Activator, params.Metrics, params.Cfg.Capture.Autostart, logger), nil
}

func toColor(c config.RGBA) gpu.Color {
	return gpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
