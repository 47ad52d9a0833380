// Package voice implements the realtime audio session: the bidirectional
// channel between the user's microphone and the remote conversational model.
//
// A [Session] owns microphone capture and the live network connection. It
// encodes captured frames and forwards them while connected, runs local voice
// activity detection for barge-in, schedules inbound model speech for gap-free
// playback, and presents one consistent callback surface to its owner. Events
// are delivered in network arrival order.
//
// This package is internal because it encapsulates application-private voice
// pipeline logic and is not intended for import by external code.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lectern-ai/lectern/internal/observe"
	"github.com/lectern-ai/lectern/pkg/audio"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// Sentinel errors for session lifecycle failures.
var (
	// ErrMicrophoneUnavailable means audio capture could not be acquired:
	// permission denied or the device is busy. Fatal to session start.
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")

	// ErrConnectionFailed means the remote handshake failed. Fatal to session
	// start; the caller may retry manually.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrToolCallTimeout means the owner did not satisfy a tool-call response
	// within the bounded window. The session synthesizes a failure response so
	// the remote turn does not stall forever.
	ErrToolCallTimeout = errors.New("tool call response timed out")
)

// State is the session lifecycle state. Transitions are driven only by the
// session's own connect/close lifecycle, never mutated externally.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

const (
	// defaultToolCallTimeout bounds how long the owner has to answer a tool
	// call before the session synthesizes a failure response.
	defaultToolCallTimeout = 15 * time.Second
)

// Callbacks is the owner-facing event surface. All callbacks are fire-and-
// forget: they are invoked from session goroutines and must not block. Any
// field may be nil.
type Callbacks struct {
	// OnText receives partial transcript text tagged with its speaker.
	OnText func(text string, role live.Role)

	// OnTurnComplete fires when the remote model finishes its current utterance.
	OnTurnComplete func()

	// OnInterrupted fires after the model detected the user talking over it.
	// Playback is already cleared when this fires, so the owner never observes
	// stale audio.
	OnInterrupted func()

	// OnSpeakingStart and OnSpeakingStop mark playback bursts. Only the
	// playback scheduler decides these; they are never inferred from raw
	// network events.
	OnSpeakingStart func()
	OnSpeakingStop  func()

	// OnUserActivity fires on locally detected user speech onset (debounced).
	OnUserActivity func()

	// OnToolCall delivers a model tool request. The handler must eventually
	// invoke respond with a result payload; if it misses the bounded window
	// the session answers with a synthesized failure instead.
	OnToolCall func(call live.ToolCall, respond func(result map[string]any))
}

// Option is a functional option for configuring a [Session].
type Option func(*Session)

// WithToolCallTimeout overrides the tool-call response window. Useful in tests
// to keep suite execution fast.
func WithToolCallTimeout(d time.Duration) Option {
	return func(s *Session) { s.toolCallTimeout = d }
}

// WithDetectorOptions passes options through to the voice activity detector.
func WithDetectorOptions(opts ...audio.DetectorOption) Option {
	return func(s *Session) { s.detectorOpts = opts }
}

// WithPlaybackSink registers the output device callback receiving frames at
// their scheduled start times.
func WithPlaybackSink(sink audio.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithMetrics wires metric instruments into the session.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session owns the microphone, the playback scheduler and one live connection
// to the remote model. At most one Session may be active per tutoring surface;
// the lecture state machine enforces this by refusing to start a second
// lecture while one is running.
//
// Session is safe for concurrent use.
type Session struct {
	provider live.Provider
	source   audio.Source
	cfg      live.SessionConfig
	cb       Callbacks

	toolCallTimeout time.Duration
	detectorOpts    []audio.DetectorOption
	sink            audio.Sink
	metrics         *observe.Metrics

	scheduler *audio.Scheduler
	detector  *audio.Detector

	mu     sync.Mutex
	state  State
	muted  bool
	handle live.SessionHandle
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a Session that will capture from source and converse through
// provider. The session does not acquire any resources until [Session.Connect].
func New(provider live.Provider, source audio.Source, cfg live.SessionConfig, cb Callbacks, opts ...Option) *Session {
	s := &Session{
		provider:        provider,
		source:          source,
		cfg:             cfg,
		cb:              cb,
		toolCallTimeout: defaultToolCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = audio.NewScheduler(s.sink,
		audio.WithSpeakingCallbacks(cb.OnSpeakingStart, cb.OnSpeakingStop),
	)
	s.detector = audio.NewDetector(func() {
		if s.cb.OnUserActivity != nil {
			s.cb.OnUserActivity()
		}
	}, s.detectorOpts...)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect acquires the microphone and opens the live connection. It fails with
// [ErrMicrophoneUnavailable] if capture cannot start and [ErrConnectionFailed]
// if the remote handshake fails; on either failure every partially-acquired
// resource is released before returning. No partial sessions are ever exposed.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("voice: connect in state %s", st)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())

	frames, err := s.source.Start(runCtx)
	if err != nil {
		cancel()
		s.setState(StateDisconnected)
		return fmt.Errorf("voice: start capture: %w: %w", ErrMicrophoneUnavailable, err)
	}

	handle, err := s.provider.Connect(ctx, s.cfg)
	if err != nil {
		cancel()
		_ = s.source.Close()
		s.setState(StateDisconnected)
		return fmt.Errorf("voice: %w: %w", ErrConnectionFailed, err)
	}

	group, groupCtx := errgroup.WithContext(runCtx)

	s.mu.Lock()
	s.handle = handle
	s.cancel = cancel
	s.group = group
	s.state = StateConnected
	s.mu.Unlock()

	group.Go(func() error {
		s.captureLoop(groupCtx, frames)
		return nil
	})
	group.Go(func() error {
		s.receiveLoop(groupCtx, handle.Events())
		return nil
	})

	if s.metrics != nil {
		s.metrics.SessionOpened(ctx)
	}
	slog.Info("voice session connected", "voice", s.cfg.Voice)
	return nil
}

// captureLoop consumes microphone frames: each one feeds the activity
// detector, then — while connected and unmuted — is encoded and sent. Frames
// captured in any other state are dropped, not buffered, to avoid growing
// latency.
func (s *Session) captureLoop(ctx context.Context, frames <-chan audio.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			s.detector.Process(frame)

			s.mu.Lock()
			send := s.state == StateConnected && !s.muted
			handle := s.handle
			s.mu.Unlock()
			if !send || handle == nil {
				continue
			}

			if err := handle.SendAudio(audio.EncodePCM16(frame.Samples)); err != nil {
				slog.Warn("voice: dropping mic frame", "err", err)
			}
		}
	}
}

// receiveLoop dispatches inbound session events in arrival order.
func (s *Session) receiveLoop(ctx context.Context, events <-chan live.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev live.Event) {
	switch ev.Type {
	case live.EventText:
		if s.cb.OnText != nil {
			s.cb.OnText(ev.Text, ev.TextRole)
		}

	case live.EventAudio:
		frame, err := audio.DecodePCM16(ev.Audio, audio.PlaybackSampleRate, 1)
		if err != nil {
			// A single corrupt frame is dropped; the session continues.
			slog.Warn("voice: dropping inbound audio chunk", "err", err, "bytes", len(ev.Audio))
			return
		}
		s.scheduler.Enqueue(frame)
		if s.metrics != nil {
			s.metrics.PlaybackDepth(ctx, s.scheduler.Pending())
		}

	case live.EventTurnComplete:
		if s.cb.OnTurnComplete != nil {
			s.cb.OnTurnComplete()
		}

	case live.EventInterrupted:
		// Clear playback before forwarding so the owner never observes stale
		// audio after the interrupt.
		s.scheduler.Clear()
		if s.metrics != nil {
			s.metrics.BargeIn(ctx)
		}
		if s.cb.OnInterrupted != nil {
			s.cb.OnInterrupted()
		}

	case live.EventToolCall:
		if ev.Tool != nil {
			call := *ev.Tool
			go s.dispatchToolCall(ctx, call)
		}
	}
}

// dispatchToolCall hands a tool request to the owner with a bounded response
// window. If the owner misses the window (or no handler is registered) the
// session synthesizes a failure response so the remote turn cannot stall
// indefinitely. Exactly one response is ever sent per call.
func (s *Session) dispatchToolCall(ctx context.Context, call live.ToolCall) {
	started := time.Now()
	var once sync.Once

	send := func(result map[string]any, timedOut bool) {
		once.Do(func() {
			s.mu.Lock()
			handle := s.handle
			s.mu.Unlock()
			if handle == nil {
				return
			}
			if err := handle.SendToolResponse(live.ToolResponse{
				ID:     call.ID,
				Name:   call.Name,
				Result: result,
			}); err != nil {
				slog.Warn("voice: send tool response", "tool", call.Name, "err", err)
			}
			if s.metrics != nil {
				s.metrics.ToolCall(ctx, call.Name, time.Since(started), timedOut)
			}
		})
	}

	if s.cb.OnToolCall == nil {
		slog.Warn("voice: no tool handler registered", "tool", call.Name)
		send(map[string]any{"error": "no handler available"}, false)
		return
	}

	timer := time.AfterFunc(s.toolCallTimeout, func() {
		slog.Warn("voice: tool call timed out", "tool", call.Name, "timeout", s.toolCallTimeout, "err", ErrToolCallTimeout)
		send(map[string]any{"error": ErrToolCallTimeout.Error()}, true)
	})

	s.cb.OnToolCall(call, func(result map[string]any) {
		timer.Stop()
		send(result, false)
	})
}

// SendText delivers a complete outbound text turn, such as a narration request.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	handle := s.handle
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || handle == nil {
		return fmt.Errorf("voice: send text while %s", s.State())
	}
	return handle.SendText(text)
}

// MuteMic stops captured frames from being encoded and sent without tearing
// down the capture stream. Cheap, reversible, latency-free.
func (s *Session) MuteMic() { s.setMuted(true) }

// UnmuteMic resumes sending captured frames.
func (s *Session) UnmuteMic() { s.setMuted(false) }

// Muted reports whether the microphone is currently muted.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Session) setMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

// ClearPlayback cancels all scheduled and playing audio immediately.
func (s *Session) ClearPlayback() {
	s.scheduler.Clear()
}

// PendingPlayback returns the playback queue depth.
func (s *Session) PendingPlayback() int {
	return s.scheduler.Pending()
}

// Close tears the session down: stop capture, clear playback, release the
// microphone, close the network channel — in that order, each step guarded so
// a failure in one does not block the others. Idempotent and safe from any
// state; effective immediately even if the network close handshake is still
// in flight.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateClosing {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	handle := s.handle
	cancel := s.cancel
	group := s.group
	s.handle = nil
	s.cancel = nil
	s.group = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.scheduler.Clear()

	var errs []error
	if err := s.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("voice: release microphone: %w", err))
	}
	if handle != nil {
		if err := handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("voice: close connection: %w", err))
		}
	}
	if group != nil {
		_ = group.Wait()
	}

	s.setState(StateDisconnected)
	if s.metrics != nil {
		s.metrics.SessionClosed(context.Background())
	}
	slog.Info("voice session closed")
	return errors.Join(errs...)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
