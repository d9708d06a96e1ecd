package audio

import (
	"bytes"
	"encoding/binary"
)

// LEToFloat32 converts raw little-endian bytes back to float32 samples.
// A trailing partial sample is ignored.
func LEToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/float32Bytes)
	_ = binary.Read(bytes.NewReader(b[:len(out)*float32Bytes]), binary.LittleEndian, &out)
	return out
}

// LEToInt16 converts raw little-endian bytes to signed 16-bit PCM.
// A trailing odd byte is ignored.
func LEToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	_ = binary.Read(bytes.NewReader(b[:len(out)*2]), binary.LittleEndian, &out)
	return out
}

// Int16ToFloat32 scales signed 16-bit PCM into [-1, 1).
func Int16ToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, v := range pcm {
		out[i] = float32(v) / 32768
	}
	return out
}
