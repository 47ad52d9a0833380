// Package live defines the Provider interface for realtime conversational
// model backends.
//
// A live provider wraps a bidirectional voice model service that accepts raw
// audio and text turns and streams back synthesized audio, transcript deltas,
// tool-call requests, and turn boundary signals in a single stateful session.
//
// The central abstraction is SessionHandle: unlike a request/response API it
// carries one ordered stream of [Event] values. Ordering matters — the tutor
// state machine's transitions depend on seeing interrupts and turn completions
// exactly as the model emitted them, so implementations must deliver events in
// network arrival order on a single channel.
//
// All implementations must be safe for concurrent use.
package live

import "context"

// EventType classifies the inbound events a session can deliver.
type EventType int

const (
	// EventText is a partial transcript delta — either the model's caption of
	// the user's speech or the text of its own utterance.
	EventText EventType = iota

	// EventAudio is a chunk of synthesized speech as raw PCM16 bytes.
	EventAudio

	// EventToolCall is a request from the model for an external action. The
	// owner must eventually answer via [SessionHandle.SendToolResponse] or the
	// remote turn stalls indefinitely.
	EventToolCall

	// EventTurnComplete marks the end of the model's current utterance.
	EventTurnComplete

	// EventInterrupted means the model itself detected the user talking over
	// it and has abandoned the current utterance.
	EventInterrupted
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventText:
		return "text"
	case EventAudio:
		return "audio"
	case EventToolCall:
		return "toolCall"
	case EventTurnComplete:
		return "turnComplete"
	case EventInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Role identifies the speaker a text delta belongs to.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ToolCall is a structured request from the model for a host-side action.
type ToolCall struct {
	// ID correlates the eventual [ToolResponse] with this call.
	ID string

	// Name is the declared tool name.
	Name string

	// Args is the JSON-encoded argument object.
	Args string
}

// ToolResponse answers a [ToolCall].
type ToolResponse struct {
	ID     string
	Name   string
	Result map[string]any
}

// Event is one inbound session event. Exactly the fields implied by Type are
// populated.
type Event struct {
	Type EventType

	// Text and TextRole are set for EventText.
	Text     string
	TextRole Role

	// Audio is set for EventAudio: raw little-endian PCM16 mono bytes at the
	// provider's output rate (24 kHz).
	Audio []byte

	// Tool is set for EventToolCall.
	Tool *ToolCall
}

// ToolDefinition declares a tool the model may invoke during the session.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// SessionConfig is the initial configuration for a new live session.
type SessionConfig struct {
	// Voice selects the provider voice for synthesized speech.
	Voice string

	// Instructions is the system-level prompt defining the tutor's persona
	// and behavioural constraints.
	Instructions string

	// Tools is the set of tool definitions offered to the model for the
	// lifetime of the session.
	Tools []ToolDefinition
}

// SessionHandle represents an open live session. It is an interface so test
// code can supply mock implementations without a network connection.
//
// Send methods must return quickly; they are called from the hot audio path.
// Callers must drain Events promptly and call Close when done.
type SessionHandle interface {
	// SendAudio delivers one encoded microphone chunk (PCM16, 16 kHz mono) to
	// the model. Returns an error if the session is closed or the transport
	// rejects the write.
	SendAudio(chunk []byte) error

	// SendText delivers a complete client text turn — used for narration
	// requests and mid-lecture steering prompts.
	SendText(text string) error

	// SendToolResponse answers a previously delivered [EventToolCall].
	SendToolResponse(resp ToolResponse) error

	// Events returns the ordered inbound event stream. The channel is closed
	// when the session ends; call [SessionHandle.Err] afterwards to check
	// whether it ended cleanly.
	Events() <-chan Event

	// Err returns the error that closed the Events channel prematurely, or
	// nil after a clean shutdown.
	Err() error

	// Close terminates the session and releases all resources. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any realtime conversational backend.
type Provider interface {
	// Connect establishes a new session. The returned handle is ready to
	// accept audio immediately. The caller owns the handle and must call
	// Close.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)
}
