package audio

import "time"

// Clock abstracts the monotonic clock the playback scheduler runs against.
// time.Time values returned by Now carry Go's monotonic reading, which gives
// the sub-millisecond resolution the gap-free scheduling invariant needs.
// Tests substitute a fake clock to make scheduling deterministic.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run after d on its own goroutine and returns
	// a handle that can cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable single-shot timer handle returned by [Clock.AfterFunc].
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// function from running.
	Stop() bool
}

// SystemClock is the real [Clock] backed by the time package.
type SystemClock struct{}

// Now implements [Clock].
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc implements [Clock].
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
