package tutor

// State is the lecture state machine's current mode. Exactly one instance is
// live per lecture; it is owned by the tutor's dispatch loop and transitions
// only via the defined edges.
type State int

const (
	// StateIdle means no lecture is running. Initial state, re-entered on
	// explicit stop.
	StateIdle State = iota

	// StateAutoExplaining means the tutor is narrating slides autonomously.
	StateAutoExplaining

	// StatePausedForQuestion means the learner started speaking; narration is
	// cancelled and a short grace window collects the question.
	StatePausedForQuestion

	// StateAnswering means the grace window elapsed and the question is being
	// classified or answered inline.
	StateAnswering

	// StateResearchMode means an external research fetch is in flight.
	StateResearchMode

	// StateVisualExplaining means a visual generation is in flight or being
	// presented.
	StateVisualExplaining

	// StateWaitingToResume means the tutor answered and is waiting for a
	// resume keyword before advancing to the next slide.
	StateWaitingToResume

	// StateFinished means the last slide was narrated. Terminal until stop.
	StateFinished
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAutoExplaining:
		return "auto_explaining"
	case StatePausedForQuestion:
		return "paused_for_question"
	case StateAnswering:
		return "answering"
	case StateResearchMode:
		return "research_mode"
	case StateVisualExplaining:
		return "visual_explaining"
	case StateWaitingToResume:
		return "waiting_to_resume"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
