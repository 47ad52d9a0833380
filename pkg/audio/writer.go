package audio

import (
	"io"
	"log/slog"
	"sync"
)

// WriterSink adapts an io.Writer into a playback [Sink]: each frame's
// samples are written as raw little-endian PCM16 at the frame's own rate.
// It is the playback mirror of [ReaderSource] — pipe the output to aplay,
// sox or a file.
//
// The scheduler invokes sinks from timer goroutines, so writes are
// serialized. After the first write error the sink drops all further frames;
// a broken pipe must not stall or crash the audio path.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewWriterSink creates a sink writing raw PCM16 to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Play writes one frame. Pass this method as the scheduler's [Sink].
func (s *WriterSink) Play(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if _, err := s.w.Write(EncodePCM16(f.Samples)); err != nil {
		s.err = err
		slog.Warn("playback sink write failed, dropping further audio", "err", err)
	}
}

// Err returns the write error that silenced the sink, or nil.
func (s *WriterSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
