package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/pkg/audio"
)

// sdlSource captures the default SDL2 recording device. SDL queues captured
// audio internally; a goroutine dequeues it once per buffer period.
type sdlSource struct {
	cfg    config.CaptureConfig
	logger *zap.Logger

	mu     sync.Mutex
	device sdl.AudioDeviceID
	cancel context.CancelFunc
	done   chan struct{}
}

func newSDLSource(cfg config.CaptureConfig, logger *zap.Logger) *sdlSource {
	return &sdlSource{cfg: cfg, logger: logger}
}

func (s *sdlSource) Open(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("sdl capture device already open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return classifyError(fmt.Errorf("sdl audio init: %w", err))
	}

	want := sdl.AudioSpec{
		Freq:     int32(s.cfg.SampleRate),
		Format:   sdl.AUDIO_F32LSB,
		Channels: audio.DefaultChannels,
		Samples:  uint16(s.cfg.FramesPerBuffer),
	}
	var have sdl.AudioSpec
	// An empty name selects the default recording device. Devices that
	// only record 16-bit PCM are accepted as is.
	dev, err := sdl.OpenAudioDevice("", true, &want, &have, sdl.AUDIO_ALLOW_FORMAT_CHANGE)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return classifyError(fmt.Errorf("open recording device: %w", err))
	}
	decode, err := sampleDecoder(have.Format)
	if err != nil {
		sdl.CloseAudioDevice(dev)
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return err
	}
	sdl.PauseAudioDevice(dev, false)

	pollCtx, cancel := context.WithCancel(context.Background())
	s.device = dev
	s.cancel = cancel
	s.done = make(chan struct{})

	period := time.Duration(float64(time.Second) * float64(have.Samples) / float64(have.Freq))
	go s.poll(pollCtx, period, decode, sink)

	s.logger.Info("SDL capture started",
		zap.Int32("sample_rate", have.Freq),
		zap.Uint16("samples", have.Samples),
		zap.Uint16("format", uint16(have.Format)),
		zap.Duration("poll_period", period))
	return nil
}

func (s *sdlSource) poll(ctx context.Context, period time.Duration, decode func([]byte) []float32, sink Sink) {
	defer close(s.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, s.cfg.FramesPerBuffer*4*4)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			n := min(int(sdl.GetQueuedAudioSize(s.device)), len(buf))
			n -= n % 4
			if n == 0 {
				break
			}
			// The binding reports SDL's dequeued byte count as an error, so
			// the read is sized from the queue instead.
			_ = sdl.DequeueAudio(s.device, buf[:n])
			sink(decode(buf[:n]))
		}
	}
}

// sampleDecoder returns the conversion from the device's byte stream to
// float32 samples.
func sampleDecoder(format sdl.AudioFormat) (func([]byte) []float32, error) {
	switch format {
	case sdl.AUDIO_F32LSB:
		return audio.LEToFloat32, nil
	case sdl.AUDIO_S16LSB:
		return func(b []byte) []float32 { return audio.Int16ToFloat32(audio.LEToInt16(b)) }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sdl sample format %#x", ErrDeviceUnavailable, uint16(format))
	}
}

func (s *sdlSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	s.cancel()
	<-s.done

	sdl.CloseAudioDevice(s.device)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	s.done = nil
	return nil
}
