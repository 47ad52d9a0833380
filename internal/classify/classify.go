// Package classify routes a student's follow-up question to the sub-flow that
// can answer it.
//
// The classifier is an external collaborator: a black-box async call with no
// retry logic of its own. Category labels are not mutually exclusive by
// construction ("show me a video explaining X" is arguably both visual and
// external), so [Normalize] applies the documented tie-break: any label
// containing "visual" wins before the remaining labels are matched.
package classify

import (
	"context"

	"github.com/lectern-ai/lectern/internal/deck"
)

// Category is the routing decision for one student question.
type Category string

const (
	// SlideRelated means the question is about the current slide; the model
	// answers inline from the narration context.
	SlideRelated Category = "slide_related"

	// GeneralConcept means the question is on-topic but broader than the
	// slide; still answered inline.
	GeneralConcept Category = "general_concept"

	// External means answering needs information beyond the deck; routes to
	// the research sub-flow.
	External Category = "external"

	// VisualRequest means the student asked for an illustration or animation;
	// routes to the visual generation sub-flow.
	VisualRequest Category = "visual_request"
)

// Classifier decides which sub-flow should handle a student question, given
// the recent transcript and the slide being narrated.
type Classifier interface {
	Classify(ctx context.Context, transcript string, slide deck.Slide) (Category, error)
}

// Result carries a classification outcome back into the tutor dispatch loop.
type Result struct {
	Category Category
	Err      error
}
