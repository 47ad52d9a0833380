// Package mock provides an in-memory implementation of [audio.Source] for use
// in unit tests.
//
// The mock records call counts, exposes exported fields the test can set to
// control return values, and lets the test push frames into the capture
// channel on demand. Safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern/pkg/audio"
)

// Source is a mock implementation of [audio.Source].
// Set the exported fields before use; inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// StartError is returned by [Source.Start]. When non-nil, no capture
	// channel is created.
	StartError error

	// CloseError is returned by [Source.Close].
	CloseError error

	// Buffer is the capacity of the capture channel created by Start.
	// Defaults to 16.
	Buffer int

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	frames chan audio.Frame
	closed bool
}

// Start implements [audio.Source]. It returns StartError if set, otherwise a
// fresh capture channel that closes when ctx is cancelled or Close is called.
func (s *Source) Start(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++

	if s.StartError != nil {
		return nil, s.StartError
	}

	buf := s.Buffer
	if buf <= 0 {
		buf = 16
	}
	s.frames = make(chan audio.Frame, buf)
	s.closed = false

	frames := s.frames
	go func() {
		<-ctx.Done()
		s.closeFrames()
	}()
	return frames, nil
}

// Push delivers a frame on the capture channel. It is a no-op after Close.
func (s *Source) Push(frame audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames == nil || s.closed {
		return
	}
	select {
	case s.frames <- frame:
	default:
	}
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	s.mu.Unlock()
	s.closeFrames()
	return s.CloseError
}

func (s *Source) closeFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames != nil && !s.closed {
		s.closed = true
		close(s.frames)
	}
}
