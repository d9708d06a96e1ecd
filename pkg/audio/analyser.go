package audio

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// ErrInvalidOption is returned when an analyser parameter is out of range.
var ErrInvalidOption = errors.New("audio: invalid analyser option")

// AnalyserOptions configures an Analyser.
type AnalyserOptions struct {
	MinDecibels           float64
	MaxDecibels           float64
	SmoothingTimeConstant float64
	FFTSize               int
}

// DefaultAnalyserOptions returns the options used by the visualizer.
func DefaultAnalyserOptions() AnalyserOptions {
	return AnalyserOptions{
		MinDecibels:           DefaultMinDecibels,
		MaxDecibels:           DefaultMaxDecibels,
		SmoothingTimeConstant: DefaultSmoothingTimeConstant,
		FFTSize:               DefaultFFTSize,
	}
}

// Validate reports whether the options describe a usable analyser.
func (o AnalyserOptions) Validate() error {
	if !isPowerOfTwo(o.FFTSize) || o.FFTSize < MinFFTSize || o.FFTSize > MaxFFTSize {
		return fmt.Errorf("%w: fft size %d must be a power of two in [%d, %d]", ErrInvalidOption, o.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if o.MinDecibels >= o.MaxDecibels {
		return fmt.Errorf("%w: min decibels %.1f must be below max decibels %.1f", ErrInvalidOption, o.MinDecibels, o.MaxDecibels)
	}
	if o.SmoothingTimeConstant < 0 || o.SmoothingTimeConstant > 1 {
		return fmt.Errorf("%w: smoothing time constant %.2f is out of range [0, 1]", ErrInvalidOption, o.SmoothingTimeConstant)
	}
	return nil
}

// spectrumPlan holds the per-size FFT state. fourier.FFT is not safe for
// concurrent use; the analyser mutex serialises access to it.
type spectrumPlan struct {
	window []float64
	fft    *fourier.FFT
}

const planCacheSize = 4

// Analyser derives time-domain and frequency-domain data from a live sample
// stream. Capture backends push blocks with Write from their own threads;
// readers query the most recent FFTSize samples.
//
// The decibel range and smoothing constant only affect frequency reads.
type Analyser struct {
	mu sync.Mutex

	opts AnalyserOptions

	// ring always holds MaxFFTSize samples so the FFT size can change without
	// losing history. pos is the next write index.
	ring    []float32
	pos     int
	written int64

	smoothed []float64
	plans    *lru.Cache[int, *spectrumPlan]
}

// NewAnalyser creates an analyser with the given options.
func NewAnalyser(opts AnalyserOptions) (*Analyser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	plans, err := lru.New[int, *spectrumPlan](planCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum plan cache: %w", err)
	}
	return &Analyser{
		opts:     opts,
		ring:     make([]float32, MaxFFTSize),
		smoothed: make([]float64, opts.FFTSize/2),
		plans:    plans,
	}, nil
}

// Options returns the current analyser parameters.
func (a *Analyser) Options() AnalyserOptions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts
}

// FFTSize returns the number of samples returned by a time-domain read.
func (a *Analyser) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts.FFTSize
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.FFTSize() / 2
}

// SamplesWritten returns how many samples have been pushed since creation.
func (a *Analyser) SamplesWritten() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.written
}

// SetFFTSize changes the analysis window. Smoothing history is reset.
func (a *Analyser) SetFFTSize(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.opts
	next.FFTSize = n
	if err := next.Validate(); err != nil {
		return err
	}
	a.opts = next
	a.smoothed = make([]float64, n/2)
	return nil
}

// SetDecibelRange changes the range used to scale byte frequency data.
func (a *Analyser) SetDecibelRange(minDB, maxDB float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.opts
	next.MinDecibels, next.MaxDecibels = minDB, maxDB
	if err := next.Validate(); err != nil {
		return err
	}
	a.opts = next
	return nil
}

// SetSmoothingTimeConstant changes how much of the previous spectrum is
// blended into each frequency read.
func (a *Analyser) SetSmoothingTimeConstant(v float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.opts
	next.SmoothingTimeConstant = v
	if err := next.Validate(); err != nil {
		return err
	}
	a.opts = next
	return nil
}

// Write appends a block of mono samples, clamped to [-1, 1]. The slice is
// copied, so callers may reuse it. Safe for concurrent use.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.pos] = clampSample(s)
		a.pos = (a.pos + 1) % len(a.ring)
	}
	a.written += int64(len(samples))
}

// GetFloatTimeDomainData overwrites dst with the most recent FFTSize samples,
// oldest first. If dst is shorter than FFTSize only the first len(dst)
// samples of that window are copied; if it is longer the tail of dst is left
// untouched. Returns the number of samples written.
func (a *Analyser) GetFloatTimeDomainData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := min(len(dst), a.opts.FFTSize)
	start := a.windowStartLocked()
	for i := 0; i < n; i++ {
		dst[i] = a.ring[(start+i)%len(a.ring)]
	}
	return n
}

// GetFloatFrequencyData overwrites dst with the smoothed spectrum in dB.
// Returns the number of bins written.
func (a *Analyser) GetFloatFrequencyData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateSpectrumLocked()
	n := min(len(dst), len(a.smoothed))
	for i := 0; i < n; i++ {
		dst[i] = float32(linearToDecibels(a.smoothed[i]))
	}
	return n
}

// GetByteFrequencyData overwrites dst with the smoothed spectrum scaled so
// that MinDecibels maps to 0 and MaxDecibels to 255.
func (a *Analyser) GetByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateSpectrumLocked()
	span := a.opts.MaxDecibels - a.opts.MinDecibels
	n := min(len(dst), len(a.smoothed))
	for i := 0; i < n; i++ {
		db := linearToDecibels(a.smoothed[i])
		scaled := 255 * (db - a.opts.MinDecibels) / span
		switch {
		case math.IsInf(scaled, -1) || scaled < 0:
			dst[i] = 0
		case scaled > 255:
			dst[i] = 255
		default:
			dst[i] = byte(scaled)
		}
	}
	return n
}

func (a *Analyser) windowStartLocked() int {
	return (a.pos - a.opts.FFTSize + len(a.ring)) % len(a.ring)
}

// updateSpectrumLocked runs one windowed FFT over the current time-domain
// window and folds it into the smoothed magnitudes.
func (a *Analyser) updateSpectrumLocked() {
	n := a.opts.FFTSize
	plan := a.planLocked(n)

	input := make([]float64, n)
	start := a.windowStartLocked()
	for i := range input {
		input[i] = float64(a.ring[(start+i)%len(a.ring)]) * plan.window[i]
	}

	coeffs := plan.fft.Coefficients(nil, input)
	tau := a.opts.SmoothingTimeConstant
	for k := range a.smoothed {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		v := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v
	}
}

func (a *Analyser) planLocked(n int) *spectrumPlan {
	if p, ok := a.plans.Get(n); ok {
		return p
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	p := &spectrumPlan{
		window: window.Blackman(w),
		fft:    fourier.NewFFT(n),
	}
	a.plans.Add(n, p)
	return p
}
