package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-waveform/internal/config"
)

func TestClassifyError(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected error
		reason   string
	}{
		"macos_not_authorized": {
			err:      errors.New("Audio input not authorized"),
			expected: ErrPermissionDenied,
			reason:   "permission_denied",
		},
		"permission_text": {
			err:      errors.New("open recording device: Permission denied"),
			expected: ErrPermissionDenied,
			reason:   "permission_denied",
		},
		"no_device": {
			err:      errors.New("no default input device"),
			expected: ErrDeviceUnavailable,
			reason:   "device_unavailable",
		},
		"already_classified": {
			err:      fmt.Errorf("wrapped: %w", ErrPermissionDenied),
			expected: ErrPermissionDenied,
			reason:   "permission_denied",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := classifyError(tt.err)
			assert.ErrorIs(t, got, tt.expected)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.reason, failureReason(got))
		})
	}

	assert.NoError(t, classifyError(nil))
	assert.Equal(t, "canceled", failureReason(context.Canceled))
}

func TestNewSource(t *testing.T) {
	tests := map[string]struct {
		backend  string
		expected any
	}{
		"portaudio": {backend: config.BackendPortAudio, expected: &portAudioSource{}},
		"sdl":       {backend: config.BackendSDL, expected: &sdlSource{}},
		"sine":      {backend: config.BackendSine, expected: &generatorSource{}},
		"sweep":     {backend: config.BackendSweep, expected: &generatorSource{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default().Capture
			cfg.Backend = tt.backend

			src, err := NewSource(cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.IsType(t, tt.expected, src)
		})
	}

	cfg := config.Default().Capture
	cfg.Backend = "jack"
	_, err := NewSource(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
