// Package capture acquires a live mono sample stream from an input device and
// feeds it to the analyser once the user activates the start control.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/config"
)

var (
	// ErrPermissionDenied is returned when the user or the OS refused
	// microphone access.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")
	// ErrDeviceUnavailable is returned when no usable input device exists or
	// it could not be opened.
	ErrDeviceUnavailable = errors.New("capture: input device unavailable")
)

// Sink receives captured blocks of mono float32 samples. The slice is only
// valid for the duration of the call.
type Sink func(samples []float32)

// Source is an audio input. Open starts delivery to sink and returns once
// the stream is running; Close stops it.
type Source interface {
	Open(ctx context.Context, sink Sink) error
	Close() error
}

// NewSource returns the backend named by cfg.Backend.
func NewSource(cfg config.CaptureConfig, logger *zap.Logger) (Source, error) {
	switch cfg.Backend {
	case config.BackendPortAudio:
		return newPortAudioSource(cfg, logger), nil
	case config.BackendSDL:
		return newSDLSource(cfg, logger), nil
	case config.BackendSine:
		return newGeneratorSource(cfg, newSineGenerator(cfg.SampleRate, cfg.ToneFrequency)), nil
	case config.BackendSweep:
		return newGeneratorSource(cfg, newSweepGenerator(cfg.SampleRate, 20, cfg.SampleRate/2*0.9, 5)), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}

// classifyError wraps a backend error in ErrPermissionDenied or
// ErrDeviceUnavailable. Backends only report permission problems through
// their error text.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"permission", "denied", "not authorized", "not permitted"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
}

// failureReason is the metric label for a classified capture error.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrDeviceUnavailable):
		return "device_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
