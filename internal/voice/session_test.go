package voice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lectern-ai/lectern/internal/voice"
	"github.com/lectern-ai/lectern/pkg/audio"
	audiomock "github.com/lectern-ai/lectern/pkg/audio/mock"
	"github.com/lectern-ai/lectern/pkg/provider/live"
	livemock "github.com/lectern-ai/lectern/pkg/provider/live/mock"
)

// micFrame returns a mono capture-rate frame with all samples at level.
func micFrame(level float32) audio.Frame {
	samples := make([]float32, 320)
	for i := range samples {
		samples[i] = level
	}
	return audio.Frame{Samples: samples, SampleRate: audio.CaptureSampleRate, Channels: 1}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newConnectedSession(t *testing.T, cb voice.Callbacks, opts ...voice.Option) (*voice.Session, *livemock.Session, *audiomock.Source) {
	t.Helper()
	handle := livemock.NewSession()
	provider := &livemock.Provider{Session: handle}
	source := &audiomock.Source{}

	s := voice.New(provider, source, live.SessionConfig{Voice: "Aoede"}, cb, opts...)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, handle, source
}

func TestConnect_MicrophoneDenied(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{}
	source := &audiomock.Source{StartError: errors.New("device busy")}

	s := voice.New(provider, source, live.SessionConfig{}, voice.Callbacks{})
	err := s.Connect(context.Background())
	if !errors.Is(err, voice.ErrMicrophoneUnavailable) {
		t.Fatalf("err = %v, want ErrMicrophoneUnavailable", err)
	}
	if s.State() != voice.StateDisconnected {
		t.Errorf("state = %v, want disconnected", s.State())
	}
	if provider.CallCountConnect != 0 {
		t.Error("provider should not be dialled when capture fails")
	}
}

func TestConnect_HandshakeFailed_ReleasesMicrophone(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{ConnectError: errors.New("401")}
	source := &audiomock.Source{}

	s := voice.New(provider, source, live.SessionConfig{}, voice.Callbacks{})
	err := s.Connect(context.Background())
	if !errors.Is(err, voice.ErrConnectionFailed) {
		t.Fatalf("err = %v, want ErrConnectionFailed", err)
	}
	if s.State() != voice.StateDisconnected {
		t.Errorf("state = %v, want disconnected", s.State())
	}
	if source.CallCountClose == 0 {
		t.Error("partially acquired microphone was not released")
	}
}

func TestConnect_RefusesSecondConnect(t *testing.T) {
	t.Parallel()

	s, _, _ := newConnectedSession(t, voice.Callbacks{})
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("second Connect should fail while connected")
	}
}

func TestCapture_ForwardsEncodedFrames(t *testing.T) {
	t.Parallel()

	s, handle, source := newConnectedSession(t, voice.Callbacks{})
	if s.State() != voice.StateConnected {
		t.Fatalf("state = %v, want connected", s.State())
	}

	source.Push(micFrame(0.5))
	waitFor(t, func() bool { return handle.AudioChunks() == 1 }, "mic frame never reached the session")
}

func TestMuteMic_GatesEncodingWithoutStoppingCapture(t *testing.T) {
	t.Parallel()

	var activity int
	var mu sync.Mutex
	cb := voice.Callbacks{
		OnUserActivity: func() {
			mu.Lock()
			activity++
			mu.Unlock()
		},
	}
	s, handle, source := newConnectedSession(t, cb)

	s.MuteMic()
	source.Push(micFrame(0.5))

	// The VAD still sees muted frames; only transmission is gated.
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return activity == 1
	}, "activity event not emitted while muted")
	if handle.AudioChunks() != 0 {
		t.Errorf("sent %d chunks while muted, want 0", handle.AudioChunks())
	}
	if source.CallCountClose != 0 {
		t.Error("mute must not tear down the capture stream")
	}

	s.UnmuteMic()
	source.Push(micFrame(0.5))
	waitFor(t, func() bool { return handle.AudioChunks() == 1 }, "frame not sent after unmute")
}

func TestInbound_AudioEnqueuedForPlayback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var played int
	sink := func(audio.Frame) {
		mu.Lock()
		played++
		mu.Unlock()
	}
	s, handle, _ := newConnectedSession(t, voice.Callbacks{}, voice.WithPlaybackSink(sink))
	_ = s

	// 480 samples at 24 kHz = 20 ms of audio.
	handle.EmitAudio(audio.EncodePCM16(make([]float32, 480)))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return played == 1
	}, "inbound audio never played")
}

func TestInbound_MalformedAudioDropped(t *testing.T) {
	t.Parallel()

	turnDone := make(chan struct{}, 1)
	s, handle, _ := newConnectedSession(t, voice.Callbacks{
		OnTurnComplete: func() { turnDone <- struct{}{} },
	})

	// Odd byte count cannot decode; the session must drop it and continue.
	handle.EmitAudio([]byte{0x01, 0x02, 0x03})
	handle.EmitTurnComplete()

	select {
	case <-turnDone:
	case <-time.After(3 * time.Second):
		t.Fatal("session stalled after malformed frame")
	}
	if s.PendingPlayback() != 0 {
		t.Error("malformed frame was scheduled for playback")
	}
}

func TestInbound_InterruptedClearsPlaybackFirst(t *testing.T) {
	t.Parallel()

	pendingAtInterrupt := make(chan int, 1)
	var s *voice.Session
	var handle *livemock.Session
	s, handle, _ = newConnectedSession(t, voice.Callbacks{
		OnInterrupted: func() { pendingAtInterrupt <- s.PendingPlayback() },
	})

	// Queue a long frame, then interrupt.
	handle.EmitAudio(audio.EncodePCM16(make([]float32, audio.PlaybackSampleRate*5)))
	handle.EmitInterrupted()

	select {
	case n := <-pendingAtInterrupt:
		if n != 0 {
			t.Errorf("playback pending at OnInterrupted = %d, want 0 (stale audio observed)", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("OnInterrupted never fired")
	}
}

func TestInbound_TextTaggedBySpeaker(t *testing.T) {
	t.Parallel()

	type textEvent struct {
		text string
		role live.Role
	}
	got := make(chan textEvent, 2)
	_, handle, _ := newConnectedSession(t, voice.Callbacks{
		OnText: func(text string, role live.Role) { got <- textEvent{text, role} },
	})

	handle.Emit(live.Event{Type: live.EventText, Text: "go back", TextRole: live.RoleUser})
	handle.Emit(live.Event{Type: live.EventText, Text: "Sure.", TextRole: live.RoleModel})

	for _, want := range []textEvent{{"go back", live.RoleUser}, {"Sure.", live.RoleModel}} {
		select {
		case ev := <-got:
			if ev != want {
				t.Errorf("text event = %+v, want %+v", ev, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("text event not delivered")
		}
	}
}

func TestToolCall_OwnerResponseForwarded(t *testing.T) {
	t.Parallel()

	_, handle, _ := newConnectedSession(t, voice.Callbacks{
		OnToolCall: func(call live.ToolCall, respond func(map[string]any)) {
			respond(map[string]any{"url": "https://example.com/visual.png"})
		},
	})

	handle.Emit(live.Event{
		Type: live.EventToolCall,
		Tool: &live.ToolCall{ID: "fc-1", Name: "generate_visual", Args: "{}"},
	})

	waitFor(t, func() bool { return len(handle.ToolResponses()) == 1 }, "tool response never sent")
	resp := handle.ToolResponses()[0]
	if resp.ID != "fc-1" || resp.Result["url"] != "https://example.com/visual.png" {
		t.Errorf("tool response = %+v", resp)
	}
}

func TestToolCall_TimeoutSynthesizesFailure(t *testing.T) {
	t.Parallel()

	var late func(map[string]any)
	var mu sync.Mutex
	_, handle, _ := newConnectedSession(t, voice.Callbacks{
		OnToolCall: func(_ live.ToolCall, respond func(map[string]any)) {
			mu.Lock()
			late = respond
			mu.Unlock()
		},
	}, voice.WithToolCallTimeout(30*time.Millisecond))

	handle.Emit(live.Event{
		Type: live.EventToolCall,
		Tool: &live.ToolCall{ID: "fc-2", Name: "run_simulation", Args: "{}"},
	})

	waitFor(t, func() bool { return len(handle.ToolResponses()) == 1 }, "synthesized failure never sent")
	resp := handle.ToolResponses()[0]
	if resp.Result["error"] == nil {
		t.Errorf("synthesized response lacks error field: %+v", resp)
	}

	// A late owner response after the timeout must not produce a second reply.
	mu.Lock()
	respond := late
	mu.Unlock()
	if respond != nil {
		respond(map[string]any{"url": "too late"})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(handle.ToolResponses()); n != 1 {
		t.Errorf("responses = %d, want exactly 1", n)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	s, handle, source := newConnectedSession(t, voice.Callbacks{})

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.State() != voice.StateDisconnected {
		t.Errorf("state = %v, want disconnected", s.State())
	}
	if source.CallCountClose == 0 {
		t.Error("microphone not released")
	}
	if !handle.Closed() {
		t.Error("network channel not closed")
	}
	if handle.CallCountClose != 1 {
		t.Errorf("handle closed %d times, want 1", handle.CallCountClose)
	}
}

func TestClose_BestEffortWhenMicCloseFails(t *testing.T) {
	t.Parallel()

	handle := livemock.NewSession()
	provider := &livemock.Provider{Session: handle}
	source := &audiomock.Source{CloseError: errors.New("device wedged")}

	s := voice.New(provider, source, live.SessionConfig{}, voice.Callbacks{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// The capture failure is reported, but the network channel still closes.
	if err := s.Close(); err == nil {
		t.Fatal("Close should surface the capture teardown failure")
	}
	if !handle.Closed() {
		t.Error("network close skipped after earlier teardown failure")
	}
}

func TestSendText_RequiresConnected(t *testing.T) {
	t.Parallel()

	provider := &livemock.Provider{}
	source := &audiomock.Source{}
	s := voice.New(provider, source, live.SessionConfig{}, voice.Callbacks{})

	if err := s.SendText("hello"); err == nil {
		t.Fatal("SendText while disconnected should fail")
	}
}
