// Package audio provides the building blocks of the lectern audio pipeline:
// the PCM16 codec, the voice activity detector, the gap-free playback
// scheduler, and the capture source abstraction.
//
// Frames are the atomic unit of audio transport — captured from the
// microphone, inspected by VAD, encoded for the realtime transport, and
// scheduled for playback. This package lives under pkg/ because capture
// source implementations for new platforms are expected to implement
// [Source].
package audio

import "time"

const (
	// CaptureSampleRate is the microphone capture rate sent to the model.
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the rate of synthesized audio received from the model.
	PlaybackSampleRate = 24000
)

// Frame is a buffer of linear PCM samples in the range [-1.0, 1.0].
// Frames are immutable once captured; pipeline stages must not modify
// the Samples slice.
type Frame struct {
	// Samples holds mono or interleaved multi-channel samples.
	Samples []float32

	// SampleRate in Hz (16000 inbound from the mic, 24000 outbound from the model).
	SampleRate int

	// Channels is the channel count. Always 1 in the lectern pipeline.
	Channels int
}

// Duration returns the playback duration of the frame.
// A frame with a non-positive sample rate or channel count has zero duration.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	perChannel := len(f.Samples) / f.Channels
	return time.Duration(perChannel) * time.Second / time.Duration(f.SampleRate)
}
