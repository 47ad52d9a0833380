package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// readerFrameDuration is the frame size emitted by [ReaderSource].
const readerFrameDuration = 20 * time.Millisecond

// ReaderSource adapts a byte stream of little-endian PCM16 mono audio at
// [CaptureSampleRate] into a capture [Source]. It lets the server capture
// from a pipe (arecord, sox, a recorded fixture) without binding to a
// platform audio API.
//
// Close stops the pump goroutine but cannot unblock a Read already in
// flight on the underlying reader; close the reader itself (e.g. the pipe's
// file) to guarantee prompt release.
type ReaderSource struct {
	r io.Reader

	mu      sync.Mutex
	started bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReaderSource creates a source reading raw PCM16 from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		r:    r,
		stop: make(chan struct{}),
	}
}

// Start implements [Source]. It may be called at most once.
func (s *ReaderSource) Start(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, errors.New("audio: reader source already started")
	}
	s.started = true

	frames := make(chan Frame, 16)
	go s.pump(ctx, frames)
	return frames, nil
}

func (s *ReaderSource) pump(ctx context.Context, frames chan<- Frame) {
	defer close(frames)

	samplesPerFrame := CaptureSampleRate * int(readerFrameDuration) / int(time.Second)
	buf := make([]byte, 2*samplesPerFrame)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		if _, err := io.ReadFull(s.r, buf); err != nil {
			return
		}
		frame, err := DecodePCM16(buf, CaptureSampleRate, 1)
		if err != nil {
			// Unreachable: buf is always an even number of bytes.
			panic(fmt.Sprintf("audio: reader source produced malformed frame: %v", err))
		}

		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

// Close implements [Source]. Safe to call more than once.
func (s *ReaderSource) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
