package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Raikerian/go-waveform/pkg/audio"
)

// Capture backends.
const (
	BackendPortAudio = "portaudio"
	BackendSDL       = "sdl"
	BackendSine      = "sine"
	BackendSweep     = "sweep"
)

// WindowConfig stores the window and surface settings.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

// RGBA is a colour with components in [0, 1].
type RGBA [4]float64

// RenderConfig stores the colours used by the frame loop.
type RenderConfig struct {
	ClearColor RGBA `yaml:"clear_color"`
	LineColor  RGBA `yaml:"line_color"`
}

// AnalyserConfig stores the analyser parameters.
type AnalyserConfig struct {
	MinDecibels           float64 `yaml:"min_decibels"`
	MaxDecibels           float64 `yaml:"max_decibels"`
	SmoothingTimeConstant float64 `yaml:"smoothing_time_constant"`
	FFTSize               int     `yaml:"fft_size"`
}

// CaptureConfig stores the audio capture settings.
type CaptureConfig struct {
	Backend         string        `yaml:"backend"`
	SampleRate      float64       `yaml:"sample_rate"`
	FramesPerBuffer int           `yaml:"frames_per_buffer"`
	Autostart       bool          `yaml:"autostart"`
	StallTimeout    time.Duration `yaml:"stall_timeout"`
	ToneFrequency   float64       `yaml:"tone_frequency"`
}

// MetricsConfig stores the optional Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config stores the application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	Window   WindowConfig   `yaml:"window"`
	Render   RenderConfig   `yaml:"render"`
	Analyser AnalyserConfig `yaml:"analyser"`
	Capture  CaptureConfig  `yaml:"capture"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "Waveform",
			VSync:  true,
		},
		Render: RenderConfig{
			ClearColor: RGBA{0, 0, 0.4, 1},
			LineColor:  RGBA{1, 0, 0, 1},
		},
		Analyser: AnalyserConfig{
			MinDecibels:           audio.DefaultMinDecibels,
			MaxDecibels:           audio.DefaultMaxDecibels,
			SmoothingTimeConstant: audio.DefaultSmoothingTimeConstant,
			FFTSize:               audio.DefaultFFTSize,
		},
		Capture: CaptureConfig{
			Backend:         BackendPortAudio,
			SampleRate:      audio.DefaultSampleRate,
			FramesPerBuffer: audio.DefaultFramesPerBuffer,
			StallTimeout:    2 * time.Second,
			ToneFrequency:   440,
		},
	}
}

// LoadConfig loads the configuration from the given file path on top of the
// defaults. A missing file yields the defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}

	errs = append(errs, c.Render.ClearColor.validate("render.clear_color"), c.Render.LineColor.validate("render.line_color"))

	// The frame loop reads 2048 samples per frame, so smaller windows would
	// leave part of the strip stale.
	if c.Analyser.FFTSize < audio.DefaultFFTSize {
		errs = append(errs, fmt.Errorf("analyser.fft_size %d must be at least %d", c.Analyser.FFTSize, audio.DefaultFFTSize))
	}
	if err := c.AnalyserOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analyser: %w", err))
	}

	switch c.Capture.Backend {
	case BackendPortAudio, BackendSDL, BackendSine, BackendSweep:
	default:
		errs = append(errs, fmt.Errorf("capture.backend %q is not supported", c.Capture.Backend))
	}
	if c.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %v must be positive", c.Capture.SampleRate))
	}
	if c.Capture.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer %d must be positive", c.Capture.FramesPerBuffer))
	}
	if c.Capture.StallTimeout < 0 {
		errs = append(errs, fmt.Errorf("capture.stall_timeout %s must not be negative", c.Capture.StallTimeout))
	}
	if c.Capture.ToneFrequency <= 0 || c.Capture.ToneFrequency >= c.Capture.SampleRate/2 {
		errs = append(errs, fmt.Errorf("capture.tone_frequency %v must be in (0, sample_rate/2)", c.Capture.ToneFrequency))
	}

	return errors.Join(errs...)
}

// AnalyserOptions converts the analyser section.
func (c *Config) AnalyserOptions() audio.AnalyserOptions {
	return audio.AnalyserOptions{
		MinDecibels:           c.Analyser.MinDecibels,
		MaxDecibels:           c.Analyser.MaxDecibels,
		SmoothingTimeConstant: c.Analyser.SmoothingTimeConstant,
		FFTSize:               c.Analyser.FFTSize,
	}
}

func (c RGBA) validate(key string) error {
	for i, v := range c {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s[%d] = %v must be in [0, 1]", key, i, v)
		}
	}
	return nil
}
