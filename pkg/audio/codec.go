package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedAudioData is returned by [DecodePCM16] when the byte buffer
// cannot be interpreted as whole little-endian int16 sample frames.
var ErrMalformedAudioData = errors.New("malformed audio data")

// EncodePCM16 converts float samples in [-1.0, 1.0] to little-endian 16-bit
// PCM. Each sample is mapped via round(s * 32768) and silently clamped to the
// int16 range on overflow. The conversion is deterministic and has no error
// cases.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(math.Round(float64(s) * 32768))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM16 converts little-endian 16-bit PCM bytes into a [Frame] with
// float samples in [-1.0, 1.0), dividing by 32768. It fails with
// [ErrMalformedAudioData] if the byte length is not a multiple of
// 2*channels, i.e. the buffer does not contain whole sample frames.
func DecodePCM16(data []byte, sampleRate, channels int) (Frame, error) {
	if channels <= 0 {
		return Frame{}, fmt.Errorf("audio: decode: %w: channel count %d", ErrMalformedAudioData, channels)
	}
	if len(data)%(2*channels) != 0 {
		return Frame{}, fmt.Errorf("audio: decode: %w: %d bytes is not a multiple of %d", ErrMalformedAudioData, len(data), 2*channels)
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(v) / 32768.0
	}
	return Frame{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
