package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives a frame at its scheduled playback start time. It is invoked
// on an internal timer goroutine and must not block.
type Sink func(Frame)

// SchedulerOption configures a [Scheduler] during construction.
type SchedulerOption func(*Scheduler)

// WithClock substitutes the clock the scheduler runs against.
// The default is [SystemClock].
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithSpeakingCallbacks registers the burst notifications. start fires when a
// continuous run of playback begins; stop fires exactly once when the queue
// truly drains (or is cleared mid-burst). Either may be nil.
//
// The scheduler is the only component that decides when these fire —
// consumers must never infer speaking state from raw network events, since
// chunks can arrive faster or slower than real-time playback.
func WithSpeakingCallbacks(start, stop func()) SchedulerOption {
	return func(s *Scheduler) {
		s.onSpeakingStart = start
		s.onSpeakingStop = stop
	}
}

// Scheduler plays decoded frames back-to-back with no audible gaps or
// overlaps, and supports instantaneous full cancellation on interruption.
//
// Each enqueued frame starts at max(nextStart, now); nextStart then advances
// by the frame's duration, so frame i+1 never starts before frame i ends.
// All methods are safe for concurrent use.
type Scheduler struct {
	clock Clock
	sink  Sink

	onSpeakingStart func()
	onSpeakingStop  func()

	mu        sync.Mutex
	nextStart time.Time
	items     map[uuid.UUID]*scheduledItem
	speaking  bool
}

// scheduledItem tracks the pending timers for one enqueued frame. The item is
// owned exclusively by the scheduler from creation until it finishes playing
// or is cancelled.
type scheduledItem struct {
	start Timer
	end   Timer
}

// NewScheduler creates a Scheduler that delivers frames to sink at their
// scheduled start times.
func NewScheduler(sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		clock: SystemClock{},
		sink:  sink,
		items: make(map[uuid.UUID]*scheduledItem),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules frame for gap-free playback after everything already
// queued. Frames with zero duration are dropped with a warning.
func (s *Scheduler) Enqueue(frame Frame) {
	dur := frame.Duration()
	if dur <= 0 {
		slog.Warn("playback scheduler: dropping zero-duration frame",
			"samples", len(frame.Samples),
			"sampleRate", frame.SampleRate,
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	start := now
	if s.nextStart.After(now) {
		start = s.nextStart
	}
	s.nextStart = start.Add(dur)

	id := uuid.New()
	item := &scheduledItem{}
	s.items[id] = item
	item.start = s.clock.AfterFunc(start.Sub(now), func() {
		s.startItem(id, frame, dur)
	})
}

// startItem fires at an item's scheduled start: it emits the speaking-start
// notification on burst begin, arms the end timer, and delivers the frame.
func (s *Scheduler) startItem(id uuid.UUID, frame Frame, dur time.Duration) {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		// Cleared between timer fire and lock acquisition.
		s.mu.Unlock()
		return
	}
	startBurst := !s.speaking
	s.speaking = true
	item.end = s.clock.AfterFunc(dur, func() {
		s.finishItem(id)
	})
	s.mu.Unlock()

	if startBurst && s.onSpeakingStart != nil {
		s.onSpeakingStart()
	}
	if s.sink != nil {
		s.sink(frame)
	}
}

// finishItem removes a naturally completed item. When the set of scheduled
// and playing items becomes empty the burst has truly drained, and the
// speaking-stop notification fires exactly once. Back-to-back frames of the
// same utterance never trigger it: the successor is already registered in the
// item set while its predecessor is still playing.
func (s *Scheduler) finishItem(id uuid.UUID) {
	s.mu.Lock()
	delete(s.items, id)
	drained := len(s.items) == 0 && s.speaking
	if drained {
		s.speaking = false
	}
	s.mu.Unlock()

	if drained && s.onSpeakingStop != nil {
		s.onSpeakingStop()
	}
}

// Clear forcibly stops every scheduled and playing item, empties the set, and
// resets the schedule origin. If a burst was in progress the speaking-stop
// notification fires. Calling Clear when nothing is queued is a no-op and
// emits nothing.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	for id, item := range s.items {
		if item.start != nil {
			item.start.Stop()
		}
		if item.end != nil {
			item.end.Stop()
		}
		delete(s.items, id)
	}
	s.nextStart = time.Time{}
	wasSpeaking := s.speaking
	s.speaking = false
	s.mu.Unlock()

	if wasSpeaking && s.onSpeakingStop != nil {
		s.onSpeakingStop()
	}
}

// Pending returns the number of scheduled and playing items. Used for the
// playback queue depth gauge.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
