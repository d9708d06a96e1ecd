package capture

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/pkg/audio"
)

// Module provides the analyser, the configured source and the activator.
var Module = fx.Module("capture",
	fx.Provide(
		NewAnalyser,
		NewConfiguredSource,
		NewConfiguredActivator,
	),
)

// NewAnalyser builds the analyser from the analyser config section.
func NewAnalyser(cfg *config.Config) (*audio.Analyser, error) {
	a, err := audio.NewAnalyser(cfg.AnalyserOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create analyser: %w", err)
	}
	return a, nil
}

// NewConfiguredSource builds the backend named in the capture config.
func NewConfiguredSource(cfg *config.Config, logger *zap.Logger) (Source, error) {
	return NewSource(cfg.Capture, logger.Named("capture").With(zap.String("backend", cfg.Capture.Backend)))
}

// NewConfiguredActivatorParams holds dependencies for NewConfiguredActivator.
type NewConfiguredActivatorParams struct {
	fx.In
	Cfg      *config.Config
	LC       fx.Lifecycle
	Logger   *zap.Logger
	Source   Source
	Analyser *audio.Analyser
	Metrics  *observe.Metrics
}

// NewConfiguredActivator creates the activator and stops capture when the
// application stops.
func NewConfiguredActivator(params NewConfiguredActivatorParams) *Activator {
	logger := params.Logger.Named("capture")
	a := NewActivator(params.Source, params.Analyser, params.Metrics, params.Cfg.Capture.StallTimeout, logger)

	params.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping audio capture", zap.Stringer("state", a.State()))
			if err := a.Close(ctx); err != nil {
				logger.Error("Failed to stop audio capture", zap.Error(err))
				return err
			}
			return nil
		},
	})

	return a
}
