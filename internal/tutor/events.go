package tutor

import (
	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/deck"
	"github.com/lectern-ai/lectern/internal/research"
	"github.com/lectern-ai/lectern/internal/visual"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// eventKind discriminates the typed events flowing through the tutor's
// dispatch loop. Every state transition is driven by exactly one of these, so
// transition order is reproducible and testable without timing races.
type eventKind int

const (
	evStart eventKind = iota
	evStop
	evGoToSlide
	evExplain

	// Session events, delivered in network arrival order.
	evTurnComplete
	evInterrupted
	evUserActivity
	evText

	// Timer events carry the sequence number of the timer generation that
	// armed them; stale fires are discarded.
	evAdvanceElapsed
	evGraceElapsed
	evOverlayElapsed

	// Collaborator completions.
	evClassified
	evResearchDone
	evVisualDone
)

// event is the single message type consumed by the dispatch loop.
type event struct {
	kind eventKind

	deck  *deck.Deck // evStart
	slide int        // evGoToSlide
	text  string     // evText, evExplain
	role  live.Role  // evText
	seq   uint64     // timer events

	category classify.Category // evClassified
	bundle   research.Bundle   // evResearchDone
	media    visual.Media      // evVisualDone
	err      error             // collaborator completions
}

// Overlay is published on the overlay bridge when a generated visual should
// be shown or hidden.
type Overlay struct {
	Media visual.Media
	Open  bool
}
