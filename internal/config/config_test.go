package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-waveform/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.RGBA{0, 0, 0.4, 1}, cfg.Render.ClearColor)
	assert.Equal(t, 2048, cfg.Analyser.FFTSize)
	assert.Equal(t, config.BackendPortAudio, cfg.Capture.Backend)
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
window:
  title: Scope
  vsync: false
render:
  line_color: [0, 1, 0, 1]
analyser:
  fft_size: 4096
capture:
  backend: sine
  autostart: true
  stall_timeout: 500ms
metrics:
  listen_addr: 127.0.0.1:9464
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Scope", cfg.Window.Title)
	assert.False(t, cfg.Window.VSync)
	assert.Equal(t, 800, cfg.Window.Width, "unset keys keep their defaults")
	assert.Equal(t, config.RGBA{0, 1, 0, 1}, cfg.Render.LineColor)
	assert.Equal(t, 4096, cfg.Analyser.FFTSize)
	assert.Equal(t, config.BackendSine, cfg.Capture.Backend)
	assert.True(t, cfg.Capture.Autostart)
	assert.Equal(t, 500*time.Millisecond, cfg.Capture.StallTimeout)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.ListenAddr)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := map[string]struct {
		body     string
		contains []string
	}{
		"unknown_key": {
			body:     "window:\n  colour: red\n",
			contains: []string{"colour"},
		},
		"malformed": {
			body:     "window: [",
			contains: []string{"failed to parse"},
		},
		"short_color": {
			body:     "render:\n  clear_color: [0, 0, 1]\n",
			contains: []string{"failed to parse"},
		},
		"fft_not_power_of_two": {
			body:     "analyser:\n  fft_size: 3000\n",
			contains: []string{"fft"},
		},
		"fft_below_waveform_length": {
			body:     "analyser:\n  fft_size: 1024\n",
			contains: []string{"at least 2048"},
		},
		"all_failures_reported": {
			body: "log_level: loud\ncapture:\n  backend: jack\n  sample_rate: -1\nrender:\n  line_color: [2, 0, 0, 1]\n",
			contains: []string{
				"log_level",
				"capture.backend",
				"capture.sample_rate",
				"render.line_color[0]",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestConfig_AnalyserOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Analyser.SmoothingTimeConstant = 0.5

	opts := cfg.AnalyserOptions()
	assert.Equal(t, 0.5, opts.SmoothingTimeConstant)
	assert.Equal(t, cfg.Analyser.FFTSize, opts.FFTSize)
	assert.NoError(t, opts.Validate())
}
