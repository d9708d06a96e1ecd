package audio

// Format constants shared by the capture backends and the analyser.
const (
	// Capture input.
	DefaultSampleRate      = 48_000 // Hz
	DefaultChannels        = 1      // mono
	DefaultFramesPerBuffer = 512    // samples per callback (~10.7 ms)

	// Analyser defaults, matching the browser AnalyserNode the visualizer
	// was modelled on.
	DefaultFFTSize               = 2048
	DefaultMinDecibels           = -90.0
	DefaultMaxDecibels           = -10.0
	DefaultSmoothingTimeConstant = 0.85

	// Valid FFT size range (inclusive, powers of two only).
	MinFFTSize = 32
	MaxFFTSize = 32768

	float32Bytes = 4
)
