package audio

import "math"

// clampSample limits v to the time-domain range [-1, 1]. NaN becomes silence.
func clampSample(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// linearToDecibels converts a linear magnitude to dBFS. Zero maps to -Inf,
// which is what the browser analyser reports for silent bins.
func linearToDecibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
