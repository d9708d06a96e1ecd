package audio_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-waveform/pkg/audio"
)

func newTestAnalyser(t *testing.T, mutate func(*audio.AnalyserOptions)) *audio.Analyser {
	t.Helper()
	opts := audio.DefaultAnalyserOptions()
	if mutate != nil {
		mutate(&opts)
	}
	a, err := audio.NewAnalyser(opts)
	require.NoError(t, err)
	return a
}

func TestNewAnalyser_Validation(t *testing.T) {
	tests := map[string]struct {
		mutate      func(*audio.AnalyserOptions)
		expectError bool
	}{
		"defaults": {
			mutate: func(*audio.AnalyserOptions) {},
		},
		"fft_not_power_of_two": {
			mutate:      func(o *audio.AnalyserOptions) { o.FFTSize = 2000 },
			expectError: true,
		},
		"fft_too_small": {
			mutate:      func(o *audio.AnalyserOptions) { o.FFTSize = 16 },
			expectError: true,
		},
		"fft_too_large": {
			mutate:      func(o *audio.AnalyserOptions) { o.FFTSize = 65536 },
			expectError: true,
		},
		"decibel_range_inverted": {
			mutate:      func(o *audio.AnalyserOptions) { o.MinDecibels, o.MaxDecibels = -10, -90 },
			expectError: true,
		},
		"decibel_range_empty": {
			mutate:      func(o *audio.AnalyserOptions) { o.MinDecibels, o.MaxDecibels = -30, -30 },
			expectError: true,
		},
		"smoothing_negative": {
			mutate:      func(o *audio.AnalyserOptions) { o.SmoothingTimeConstant = -0.1 },
			expectError: true,
		},
		"smoothing_above_one": {
			mutate:      func(o *audio.AnalyserOptions) { o.SmoothingTimeConstant = 1.5 },
			expectError: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			opts := audio.DefaultAnalyserOptions()
			tt.mutate(&opts)

			a, err := audio.NewAnalyser(opts)
			if tt.expectError {
				assert.ErrorIs(t, err, audio.ErrInvalidOption)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, opts, a.Options())
		})
	}
}

func TestAnalyser_DefaultsMatchVisualizer(t *testing.T) {
	a := newTestAnalyser(t, nil)

	opts := a.Options()
	assert.Equal(t, -90.0, opts.MinDecibels)
	assert.Equal(t, -10.0, opts.MaxDecibels)
	assert.Equal(t, 0.85, opts.SmoothingTimeConstant)
	assert.Equal(t, 2048, opts.FFTSize)
	assert.Equal(t, 1024, a.FrequencyBinCount())
}

func TestAnalyser_TimeDomainBeforeAnyInput(t *testing.T) {
	a := newTestAnalyser(t, nil)

	dst := make([]float32, 2048)
	for i := range dst {
		dst[i] = 0.5
	}
	n := a.GetFloatTimeDomainData(dst)

	assert.Equal(t, 2048, n)
	for i, v := range dst {
		require.Zero(t, v, "sample %d should be silent", i)
	}
}

func TestAnalyser_TimeDomainReturnsMostRecentWindow(t *testing.T) {
	a := newTestAnalyser(t, nil)

	// Write more than a full window, across several blocks and the ring end.
	total := audio.MaxFFTSize + 3000
	block := make([]float32, 512)
	next := 0
	for next < total {
		n := min(len(block), total-next)
		for i := 0; i < n; i++ {
			block[i] = float32((next+i)%1000) / 1000
		}
		a.Write(block[:n])
		next += n
	}

	dst := make([]float32, 2048)
	require.Equal(t, 2048, a.GetFloatTimeDomainData(dst))

	first := total - 2048
	for i, v := range dst {
		want := float32((first+i)%1000) / 1000
		require.InDelta(t, want, v, 1e-6, "sample %d", i)
	}
	assert.Equal(t, int64(total), a.SamplesWritten())
}

func TestAnalyser_TimeDomainPartialHistory(t *testing.T) {
	a := newTestAnalyser(t, nil)

	a.Write([]float32{0.25, -0.25, 0.75})

	dst := make([]float32, 2048)
	a.GetFloatTimeDomainData(dst)

	assert.Zero(t, dst[0])
	assert.Zero(t, dst[2044])
	assert.Equal(t, []float32{0.25, -0.25, 0.75}, dst[2045:])
}

func TestAnalyser_TimeDomainShortAndLongDestinations(t *testing.T) {
	a := newTestAnalyser(t, func(o *audio.AnalyserOptions) { o.FFTSize = 32 })

	samples := make([]float32, 32)
	for i := range samples {
		samples[i] = float32(i) / 32
	}
	a.Write(samples)

	short := make([]float32, 8)
	assert.Equal(t, 8, a.GetFloatTimeDomainData(short))
	assert.Equal(t, samples[:8], short)

	long := make([]float32, 40)
	for i := range long {
		long[i] = 9
	}
	assert.Equal(t, 32, a.GetFloatTimeDomainData(long))
	assert.Equal(t, samples, long[:32])
	assert.Equal(t, float32(9), long[39], "tail beyond the fft size is left untouched")
}

func TestAnalyser_WriteClampsToUnitRange(t *testing.T) {
	a := newTestAnalyser(t, func(o *audio.AnalyserOptions) { o.FFTSize = 32 })

	a.Write([]float32{2, -3, float32(math.NaN()), 0.5, float32(math.Inf(1))})

	dst := make([]float32, 32)
	a.GetFloatTimeDomainData(dst)

	assert.Equal(t, []float32{1, -1, 0, 0.5, 1}, dst[27:])
	for _, v := range dst {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestAnalyser_FrequencyDataPeaksAtToneBin(t *testing.T) {
	a := newTestAnalyser(t, func(o *audio.AnalyserOptions) { o.SmoothingTimeConstant = 0 })

	const bin = 64
	tone := make([]float32, 2048)
	for i := range tone {
		tone[i] = float32(0.8 * math.Sin(2*math.Pi*bin*float64(i)/2048))
	}
	a.Write(tone)

	spectrum := make([]float32, a.FrequencyBinCount())
	require.Equal(t, 1024, a.GetFloatFrequencyData(spectrum))

	peak := 0
	for k, v := range spectrum {
		if v > spectrum[peak] {
			peak = k
		}
	}
	assert.Equal(t, bin, peak)

	scaled := make([]byte, a.FrequencyBinCount())
	a.GetByteFrequencyData(scaled)
	for k, v := range scaled {
		require.LessOrEqual(t, v, scaled[bin], "bin %d louder than the tone bin", k)
	}
	// 0.8 amplitude through a Blackman window lands around -15.5 dBFS.
	assert.InDelta(t, 237, int(scaled[bin]), 3)
}

func TestAnalyser_FrequencyDataForSilence(t *testing.T) {
	a := newTestAnalyser(t, nil)

	spectrum := make([]float32, a.FrequencyBinCount())
	a.GetFloatFrequencyData(spectrum)
	for _, v := range spectrum {
		require.True(t, math.IsInf(float64(v), -1))
	}

	scaled := make([]byte, a.FrequencyBinCount())
	a.GetByteFrequencyData(scaled)
	for _, v := range scaled {
		require.Zero(t, v)
	}
}

func TestAnalyser_SmoothingBlendsPreviousSpectrum(t *testing.T) {
	a := newTestAnalyser(t, func(o *audio.AnalyserOptions) { o.SmoothingTimeConstant = 0.5 })

	tone := make([]float32, 2048)
	for i := range tone {
		tone[i] = float32(math.Sin(2 * math.Pi * 32 * float64(i) / 2048))
	}
	a.Write(tone)

	first := make([]float32, a.FrequencyBinCount())
	a.GetFloatFrequencyData(first)

	// Silence: with tau=0.5 the magnitude halves, i.e. drops by ~6 dB.
	a.Write(make([]float32, 2048))
	second := make([]float32, a.FrequencyBinCount())
	a.GetFloatFrequencyData(second)

	assert.InDelta(t, float64(first[32])-20*math.Log10(2), float64(second[32]), 0.01)
}

func TestAnalyser_Setters(t *testing.T) {
	a := newTestAnalyser(t, nil)

	require.NoError(t, a.SetFFTSize(4096))
	assert.Equal(t, 4096, a.FFTSize())
	assert.Equal(t, 2048, a.FrequencyBinCount())
	assert.ErrorIs(t, a.SetFFTSize(3000), audio.ErrInvalidOption)
	assert.Equal(t, 4096, a.FFTSize(), "invalid size leaves the analyser unchanged")

	require.NoError(t, a.SetDecibelRange(-100, -30))
	assert.ErrorIs(t, a.SetDecibelRange(0, -30), audio.ErrInvalidOption)
	assert.Equal(t, -100.0, a.Options().MinDecibels)

	require.NoError(t, a.SetSmoothingTimeConstant(0.2))
	assert.ErrorIs(t, a.SetSmoothingTimeConstant(2), audio.ErrInvalidOption)
	assert.Equal(t, 0.2, a.Options().SmoothingTimeConstant)
}

func TestAnalyser_ConcurrentWriteAndRead(t *testing.T) {
	a := newTestAnalyser(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		block := make([]float32, 256)
		for i := 0; i < 200; i++ {
			for j := range block {
				block[j] = float32(j%3-1) * 0.5
			}
			a.Write(block)
		}
	}()

	dst := make([]float32, 2048)
	for i := 0; i < 50; i++ {
		a.GetFloatTimeDomainData(dst)
	}
	<-done

	for _, v := range dst {
		assert.LessOrEqual(t, math.Abs(float64(v)), 1.0)
	}
}
