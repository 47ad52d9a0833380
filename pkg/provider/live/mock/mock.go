// Package mock provides hand-written mock implementations of the live
// provider interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// Compile-time interface assertions.
var _ live.Provider = (*Provider)(nil)
var _ live.SessionHandle = (*Session)(nil)

// Provider is a mock live.Provider. Connect returns the configured Session
// (or a fresh one) and records the config it was called with.
type Provider struct {
	mu sync.Mutex

	// ConnectError, if set, is returned by Connect.
	ConnectError error

	// Session is returned by Connect when non-nil; otherwise Connect creates
	// a new Session.
	Session *Session

	// LastConfig records the configuration of the most recent Connect call.
	LastConfig live.SessionConfig

	// CallCountConnect counts Connect invocations.
	CallCountConnect int
}

func (p *Provider) Connect(_ context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountConnect++
	p.LastConfig = cfg
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}

// Session is a mock live.SessionHandle. Tests push inbound events with Emit
// and inspect outbound traffic through the recorded slices.
type Session struct {
	mu sync.Mutex

	// SendAudioError, SendTextError and SendToolResponseError are returned by
	// the corresponding methods when set.
	SendAudioError        error
	SendTextError         error
	SendToolResponseError error

	// ErrValue is returned by Err.
	ErrValue error

	// SentAudio collects every chunk passed to SendAudio.
	SentAudio [][]byte

	// SentTexts collects every string passed to SendText.
	SentTexts []string

	// SentToolResponses collects every response passed to SendToolResponse.
	SentToolResponses []live.ToolResponse

	// CallCountClose counts Close invocations.
	CallCountClose int

	events    chan live.Event
	closed    bool
	closeOnce sync.Once
}

// NewSession creates a mock session with a buffered event channel.
func NewSession() *Session {
	return &Session{events: make(chan live.Event, 256)}
}

// Emit delivers an inbound event to whoever is draining Events. Panics if the
// session buffer is full, which indicates a stuck consumer in the test.
func (s *Session) Emit(ev live.Event) {
	s.events <- ev
}

// EmitAudio is shorthand for emitting an audio event with the given bytes.
func (s *Session) EmitAudio(chunk []byte) {
	s.Emit(live.Event{Type: live.EventAudio, Audio: chunk})
}

// EmitTurnComplete is shorthand for emitting a turn completion.
func (s *Session) EmitTurnComplete() {
	s.Emit(live.Event{Type: live.EventTurnComplete})
}

// EmitInterrupted is shorthand for emitting a model-side interrupt.
func (s *Session) EmitInterrupted() {
	s.Emit(live.Event{Type: live.EventInterrupted})
}

func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioError != nil {
		return s.SendAudioError
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SentAudio = append(s.SentAudio, cp)
	return nil
}

func (s *Session) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendTextError != nil {
		return s.SendTextError
	}
	s.SentTexts = append(s.SentTexts, text)
	return nil
}

func (s *Session) SendToolResponse(resp live.ToolResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendToolResponseError != nil {
		return s.SendToolResponseError
	}
	s.SentToolResponses = append(s.SentToolResponses, resp)
	return nil
}

func (s *Session) Events() <-chan live.Event { return s.events }

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrValue
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Texts returns a copy of all texts sent so far.
func (s *Session) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.SentTexts))
	copy(out, s.SentTexts)
	return out
}

// AudioChunks returns the number of audio chunks sent so far.
func (s *Session) AudioChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SentAudio)
}

// ToolResponses returns a copy of all tool responses sent so far.
func (s *Session) ToolResponses() []live.ToolResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]live.ToolResponse, len(s.SentToolResponses))
	copy(out, s.SentToolResponses)
	return out
}
