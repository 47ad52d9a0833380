package audio

import "context"

// Source provides captured microphone frames.
//
// A Source is exclusively owned by one voice session at a time. Start acquires
// the capture device and returns the frame channel; the channel is closed when
// the context is cancelled, Close is called, or the device fails.
//
// Implementations wrap platform capture APIs. They must be safe for
// concurrent use and Close must be idempotent.
type Source interface {
	// Start begins capture and returns the channel delivering mono frames at
	// [CaptureSampleRate]. It returns an error if the capture device cannot be
	// acquired (permission denied, device busy).
	Start(ctx context.Context) (<-chan Frame, error)

	// Close stops capture and releases the device. Safe to call more than once.
	Close() error
}
