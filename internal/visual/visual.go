// Package visual generates illustrations and short animations on request
// during a lecture.
//
// The generator is an external collaborator: asynchronous, no internal
// retries. On failure the tutor unmutes the microphone and falls back to a
// verbal explanation.
package visual

import "context"

// Kind selects the media type to generate.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Media is the transient result of one generation request, held by the tutor
// only while the visual overlay is open.
type Media struct {
	// URL locates the generated media: a data URL for images, a download URI
	// for videos.
	URL string

	Kind Kind
}

// Generator produces media from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, kind Kind) (Media, error)
}

// Result carries a generation outcome back into the tutor dispatch loop.
type Result struct {
	Media Media
	Err   error
}
