// Package research resolves questions that need information beyond the
// lecture deck.
//
// The research provider is an external collaborator: a black-box async call
// with no retry logic of its own. The tutor only needs two things from a
// bundle — did it resolve, and what narration text should be recited.
package research

import "context"

// Link is one referenced source in a bundle.
type Link struct {
	Title       string
	URL         string
	Description string
}

// Bundle is the transient result of one research request. It is held by the
// tutor only for the duration of the research sub-flow and discarded on
// transition out.
type Bundle struct {
	// Summary is the narration text recited to the student.
	Summary string

	WebResults   []Link
	VideoResults []Link
}

// Provider answers a question with a synthesized research bundle.
type Provider interface {
	Research(ctx context.Context, question string) (Bundle, error)
}

// Result carries a research outcome back into the tutor dispatch loop.
type Result struct {
	Bundle Bundle
	Err    error
}
