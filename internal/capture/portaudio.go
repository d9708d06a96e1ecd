package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/pkg/audio"
)

// portAudioSource captures the default input device through PortAudio's
// callback API.
type portAudioSource struct {
	cfg    config.CaptureConfig
	logger *zap.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
}

func newPortAudioSource(cfg config.CaptureConfig, logger *zap.Logger) *portAudioSource {
	return &portAudioSource{cfg: cfg, logger: logger}
}

func (s *portAudioSource) Open(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return fmt.Errorf("portaudio stream already open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return classifyError(fmt.Errorf("portaudio init: %w", err))
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return classifyError(fmt.Errorf("default input device: %w", err))
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = audio.DefaultChannels
	params.SampleRate = s.cfg.SampleRate
	params.FramesPerBuffer = s.cfg.FramesPerBuffer

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		sink(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return classifyError(fmt.Errorf("open stream on %q: %w", dev.Name, err))
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return classifyError(fmt.Errorf("start stream on %q: %w", dev.Name, err))
	}

	s.stream = stream
	s.logger.Info("PortAudio capture started",
		zap.String("device", dev.Name),
		zap.Float64("sample_rate", params.SampleRate),
		zap.Int("frames_per_buffer", params.FramesPerBuffer))
	return nil
}

func (s *portAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}

	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("error stopping stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("error closing stream: %w", err)
	}
	s.stream = nil
	return portaudio.Terminate()
}
