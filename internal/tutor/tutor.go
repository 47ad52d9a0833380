// Package tutor implements the auto-lecture state machine.
//
// A [Tutor] walks a learner through a slide deck: it narrates each slide
// through the voice session, pauses when the learner starts speaking,
// classifies the question, routes to research or visual-generation sub-flows
// and resumes narration on a spoken keyword.
//
// All state transitions run on one dispatch goroutine consuming a single
// ordered channel of typed events. Session events, timer fires, collaborator
// completions and user commands are all serialized through that point, so
// transitions are never interleaved.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/bridge"
	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/collab"
	"github.com/lectern-ai/lectern/internal/deck"
	"github.com/lectern-ai/lectern/internal/observe"
	"github.com/lectern-ai/lectern/internal/research"
	"github.com/lectern-ai/lectern/internal/transcript"
	"github.com/lectern-ai/lectern/internal/visual"
	"github.com/lectern-ai/lectern/internal/voice"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

var (
	// ErrLectureActive is returned by StartLecture while a lecture is running.
	// Only one lecture may be active per tutoring surface.
	ErrLectureActive = errors.New("a lecture is already active")

	// ErrNoLecture is returned by lecture commands when no lecture is active.
	ErrNoLecture = errors.New("no lecture is active")
)

const (
	// defaultAdvanceDelay is the pause between a slide's narration finishing
	// and the next slide starting.
	defaultAdvanceDelay = 1500 * time.Millisecond

	// defaultGraceDelay is the window after a barge-in during which the
	// learner's question is collected before classification starts.
	defaultGraceDelay = 2 * time.Second

	// defaultOverlayCloseDelay is how long a presented visual stays on screen
	// after the model finishes explaining it.
	defaultOverlayCloseDelay = 8 * time.Second

	// defaultCollaboratorTimeout bounds each classifier/research/visual call.
	defaultCollaboratorTimeout = 30 * time.Second
)

// Session is the voice surface the tutor drives. *voice.Session satisfies it.
type Session interface {
	State() voice.State
	Connect(ctx context.Context) error
	SendText(text string) error
	MuteMic()
	UnmuteMic()
	ClearPlayback()
	Close() error
}

// Config holds the tutor's timing knobs. Zero fields take defaults.
type Config struct {
	AdvanceDelay        time.Duration
	GraceDelay          time.Duration
	OverlayCloseDelay   time.Duration
	CollaboratorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.AdvanceDelay <= 0 {
		c.AdvanceDelay = defaultAdvanceDelay
	}
	if c.GraceDelay <= 0 {
		c.GraceDelay = defaultGraceDelay
	}
	if c.OverlayCloseDelay <= 0 {
		c.OverlayCloseDelay = defaultOverlayCloseDelay
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	return c
}

// Deps are the tutor's injected collaborators. Session is required; the rest
// may be nil, in which case the corresponding feature degrades gracefully
// (questions are answered inline, no transcript is persisted, overlays are
// dropped).
type Deps struct {
	Session    Session
	Classifier classify.Classifier
	Research   research.Provider
	Visual     visual.Generator
	Store      transcript.Store
	Metrics    *observe.Metrics

	// Overlay receives show/hide notifications for generated visuals.
	Overlay *bridge.Bridge[Overlay]

	// Panel receives research bundles for side-panel display.
	Panel *bridge.Bridge[research.Bundle]
}

// Tutor is the lecture state machine. Create one with [New], drive its loop
// with [Tutor.Run], then start lectures with [Tutor.StartLecture].
type Tutor struct {
	cfg  Config
	deps Deps

	classifyBreaker *collab.Breaker
	researchBreaker *collab.Breaker
	visualBreaker   *collab.Breaker

	events chan event
	done   chan struct{}

	// mu guards the fields below, which are written by the dispatch loop and
	// read by public accessors.
	mu        sync.Mutex
	active    bool
	state     State
	idx       int
	deckLen   int
	lectureID string

	// Loop-owned state. Touched only by the dispatch goroutine.
	ctx            context.Context
	deck           *deck.Deck
	questionBuf    strings.Builder
	genInProgress  bool
	overlayOpen    bool
	narrationStart time.Time

	advanceTimer *time.Timer
	graceTimer   *time.Timer
	overlayTimer *time.Timer
	advanceSeq   uint64
	graceSeq     uint64
	overlaySeq   uint64
}

// New creates a Tutor. [Tutor.Run] must be started before lectures can make
// progress.
func New(cfg Config, deps Deps) *Tutor {
	return &Tutor{
		cfg:             cfg.withDefaults(),
		deps:            deps,
		classifyBreaker: collab.NewBreaker(collab.Config{Name: "classifier"}),
		researchBreaker: collab.NewBreaker(collab.Config{Name: "research"}),
		visualBreaker:   collab.NewBreaker(collab.Config{Name: "visual"}),
		events:          make(chan event, 128),
		done:            make(chan struct{}),
		state:           StateIdle,
	}
}

// Run drives the dispatch loop until ctx is cancelled. It tears down any
// active lecture on exit.
func (t *Tutor) Run(ctx context.Context) error {
	t.ctx = ctx
	defer close(t.done)

	for {
		select {
		case <-ctx.Done():
			if t.isActive() {
				_ = t.deps.Session.Close()
				t.handleStop()
			}
			return nil
		case ev := <-t.events:
			t.dispatch(ev)
		}
	}
}

// push delivers an event into the dispatch loop. After Run exits the event is
// discarded.
func (t *Tutor) push(ev event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

// ── Public command surface ──────────────────────────────────────────────────

// StartLecture connects the voice session if needed and begins narrating d
// from its first slide. It refuses to start while another lecture is active.
func (t *Tutor) StartLecture(ctx context.Context, d *deck.Deck) error {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return ErrLectureActive
	}
	t.active = true
	t.deckLen = d.Len()
	t.mu.Unlock()

	if t.deps.Session.State() != voice.StateConnected {
		if err := t.deps.Session.Connect(ctx); err != nil {
			t.mu.Lock()
			t.active = false
			t.deckLen = 0
			t.mu.Unlock()
			return fmt.Errorf("tutor: connect session: %w", err)
		}
	}

	t.push(event{kind: evStart, deck: d})
	return nil
}

// Stop ends the lecture from any state. Playback is silenced and the session
// closed immediately; the state machine returns to idle. Safe to call when no
// lecture is active.
func (t *Tutor) Stop() error {
	if !t.isActive() {
		return nil
	}

	// Immediate effect from the caller's perspective, even though the state
	// machine catches up asynchronously.
	t.deps.Session.ClearPlayback()
	err := t.deps.Session.Close()

	t.push(event{kind: evStop})
	return err
}

// GoToSlide jumps the lecture to slide index i (0-based) and narrates it. The
// tutor state is unchanged; any pending auto-advance is cancelled.
func (t *Tutor) GoToSlide(i int) error {
	t.mu.Lock()
	active, n := t.active, t.deckLen
	t.mu.Unlock()

	if !active {
		return ErrNoLecture
	}
	if i < 0 || i >= n {
		return fmt.Errorf("tutor: slide index %d out of range [0, %d)", i, n)
	}
	t.push(event{kind: evGoToSlide, slide: i})
	return nil
}

// Explain forwards a UI-originated "explain this" request to the model. It is
// a logged no-op when no lecture is active.
func (t *Tutor) Explain(text string) {
	t.push(event{kind: evExplain, text: text})
}

// State returns the current lecture state.
func (t *Tutor) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SlideIndex returns the current 0-based slide index.
func (t *Tutor) SlideIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx
}

// LectureID returns the id of the current (or most recent) lecture run.
func (t *Tutor) LectureID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lectureID
}

func (t *Tutor) isActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// ── Session notification surface ────────────────────────────────────────────
// Wire these into voice.Callbacks; they feed the dispatch loop.

// NotifyTurnComplete reports that the model finished its current utterance.
func (t *Tutor) NotifyTurnComplete() { t.push(event{kind: evTurnComplete}) }

// NotifyInterrupted reports that the model detected the user talking over it.
func (t *Tutor) NotifyInterrupted() { t.push(event{kind: evInterrupted}) }

// NotifyUserActivity reports locally detected user speech onset.
func (t *Tutor) NotifyUserActivity() { t.push(event{kind: evUserActivity}) }

// NotifyText reports a transcript chunk tagged with its speaker.
func (t *Tutor) NotifyText(text string, role live.Role) {
	t.push(event{kind: evText, text: text, role: role})
}

// ── Dispatch ────────────────────────────────────────────────────────────────

func (t *Tutor) dispatch(ev event) {
	switch ev.kind {
	case evStart:
		t.handleStart(ev.deck)
	case evStop:
		t.handleStop()
	case evGoToSlide:
		t.handleGoToSlide(ev.slide)
	case evExplain:
		t.handleExplain(ev.text)
	case evTurnComplete:
		t.handleTurnComplete()
	case evInterrupted, evUserActivity:
		t.handlePause()
	case evText:
		t.handleText(ev.text, ev.role)
	case evAdvanceElapsed:
		if ev.seq == t.advanceSeq {
			t.handleAdvance()
		}
	case evGraceElapsed:
		if ev.seq == t.graceSeq {
			t.handleGrace()
		}
	case evOverlayElapsed:
		if ev.seq == t.overlaySeq {
			t.closeOverlay()
		}
	case evClassified:
		t.handleClassified(ev.category, ev.err)
	case evResearchDone:
		t.handleResearch(ev.bundle, ev.err)
	case evVisualDone:
		t.handleVisual(ev.media, ev.err)
	}
}

func (t *Tutor) handleStart(d *deck.Deck) {
	if t.State() != StateIdle {
		slog.Warn("tutor: start ignored, lecture in progress", "state", t.State())
		return
	}

	t.deck = d
	t.mu.Lock()
	t.lectureID = uuid.NewString()
	t.mu.Unlock()
	t.setIndex(0)
	if t.deps.Metrics != nil {
		t.deps.Metrics.LectureStarted(t.ctx)
	}
	slog.Info("lecture started",
		"lecture_id", t.lectureID,
		"deck", d.Title(),
		"slides", d.Len())

	t.setState(StateAutoExplaining)
	t.narrate(0)
}

func (t *Tutor) handleStop() {
	if t.State() == StateIdle {
		return
	}

	t.cancelAdvanceTimer()
	t.cancelGraceTimer()
	t.cancelOverlayTimer()
	t.closeOverlay()
	t.genInProgress = false
	t.questionBuf.Reset()
	t.deck = nil

	if t.deps.Metrics != nil {
		t.deps.Metrics.LectureEnded(t.ctx)
	}
	slog.Info("lecture stopped", "lecture_id", t.lectureID)

	t.setState(StateIdle)
	t.mu.Lock()
	t.active = false
	t.deckLen = 0
	t.mu.Unlock()
}

func (t *Tutor) handleGoToSlide(i int) {
	if t.deck == nil {
		return
	}
	// Manual navigation cancels the pending advance and silences the current
	// narration, but does not change state.
	t.cancelAdvanceTimer()
	t.deps.Session.ClearPlayback()
	t.setIndex(i)
	t.narrate(i)
}

func (t *Tutor) handleExplain(text string) {
	if t.State() == StateIdle {
		slog.Warn("tutor: explain request dropped, no lecture active")
		return
	}
	t.sendText(fmt.Sprintf("The learner points at something and asks you to explain it: %q. Explain it briefly in the context of the current slide.", text))
}

func (t *Tutor) handleTurnComplete() {
	switch t.State() {
	case StateAutoExplaining:
		if t.deps.Metrics != nil && !t.narrationStart.IsZero() {
			t.deps.Metrics.Narration(t.ctx, time.Since(t.narrationStart))
			t.narrationStart = time.Time{}
		}
		if t.idxLocked()+1 < t.deck.Len() {
			t.startAdvanceTimer()
		} else {
			slog.Info("lecture finished", "lecture_id", t.lectureID)
			t.setState(StateFinished)
		}

	case StateAnswering:
		// The model answered the question inline.
		t.setState(StateWaitingToResume)

	case StateResearchMode:
		if t.genInProgress {
			// Filler utterance while the research fetch is still running.
			return
		}
		t.setState(StateWaitingToResume)

	case StateVisualExplaining:
		if t.genInProgress {
			// Filler utterance while the visual is still generating.
			return
		}
		t.deps.Session.UnmuteMic()
		t.startOverlayTimer()
		t.setState(StateWaitingToResume)
	}
}

// handlePause reacts to a barge-in (local VAD or the model's own interrupt
// signal) during narration.
func (t *Tutor) handlePause() {
	if t.State() != StateAutoExplaining {
		return
	}

	t.cancelAdvanceTimer()
	t.deps.Session.ClearPlayback()
	t.questionBuf.Reset()
	t.setState(StatePausedForQuestion)
	t.startGraceTimer()
}

func (t *Tutor) handleGrace() {
	if t.State() != StatePausedForQuestion {
		return
	}
	t.setState(StateAnswering)
	t.startClassification(t.questionBuf.String())
}

func (t *Tutor) handleText(text string, role live.Role) {
	t.writeTranscript(text, role)

	if role != live.RoleUser {
		return
	}

	switch t.State() {
	case StatePausedForQuestion, StateAnswering:
		if t.questionBuf.Len() > 0 {
			t.questionBuf.WriteByte(' ')
		}
		t.questionBuf.WriteString(text)

	case StateWaitingToResume:
		if !containsResumeKeyword(text) {
			return
		}
		next := t.idxLocked() + 1
		if next >= t.deck.Len() {
			slog.Info("lecture finished", "lecture_id", t.lectureID)
			t.setState(StateFinished)
			return
		}
		t.setIndex(next)
		t.setState(StateAutoExplaining)
		t.narrate(next)
	}
}

func (t *Tutor) handleAdvance() {
	if t.State() != StateAutoExplaining {
		return
	}
	next := t.idxLocked() + 1
	if next >= t.deck.Len() {
		return
	}
	t.setIndex(next)
	t.narrate(next)
}

// ── Classification and sub-flows ────────────────────────────────────────────

func (t *Tutor) startClassification(question string) {
	if t.deps.Classifier == nil || question == "" {
		// Nothing to classify; the model answers inline and turnComplete moves
		// us to waiting_to_resume.
		return
	}

	slide, err := t.deck.Slide(t.idxLocked())
	if err != nil {
		slog.Error("tutor: current slide lookup", "err", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(t.ctx, t.cfg.CollaboratorTimeout)
		defer cancel()

		var cat classify.Category
		execErr := t.classifyBreaker.Execute(func() error {
			c, err := t.deps.Classifier.Classify(ctx, question, slide)
			cat = c
			return err
		})
		t.push(event{kind: evClassified, category: cat, err: execErr})
	}()
}

func (t *Tutor) handleClassified(cat classify.Category, err error) {
	st := t.State()
	if st != StateAnswering && st != StatePausedForQuestion {
		return
	}

	if err != nil {
		// Degrade to an inline answer; the model has the question already.
		t.collaboratorError("classifier", err)
		return
	}

	switch cat {
	case classify.VisualRequest:
		t.enterVisual()
	case classify.External:
		t.enterResearch()
	default:
		// slide_related and general_concept are answered inline by the model.
		t.setState(StateWaitingToResume)
	}
}

func (t *Tutor) enterResearch() {
	question := t.questionBuf.String()
	t.genInProgress = true
	t.setState(StateResearchMode)
	t.sendText("Tell the learner you are looking that up and will summarize in a moment. Keep it to one short sentence.")

	go func() {
		ctx, cancel := context.WithTimeout(t.ctx, t.cfg.CollaboratorTimeout)
		defer cancel()

		var bundle research.Bundle
		execErr := t.researchBreaker.Execute(func() error {
			b, err := t.deps.Research.Research(ctx, question)
			bundle = b
			return err
		})
		t.push(event{kind: evResearchDone, bundle: bundle, err: execErr})
	}()
}

func (t *Tutor) handleResearch(bundle research.Bundle, err error) {
	if t.State() != StateResearchMode {
		return
	}
	t.genInProgress = false

	if err != nil {
		t.collaboratorError("research", err)
		t.sendText("The lookup did not work out. Answer the learner's question from your own knowledge instead.")
		t.setState(StateAnswering)
		return
	}

	if t.deps.Panel != nil {
		t.deps.Panel.Send(bundle)
	}
	t.sendText(fmt.Sprintf("Here is what the research found: %s\nSummarize this for the learner in a couple of sentences.", bundle.Summary))
}

func (t *Tutor) enterVisual() {
	question := t.questionBuf.String()
	kind := visual.KindImage
	if wantsVideo(question) {
		kind = visual.KindVideo
	}

	slide, _ := t.deck.Slide(t.idxLocked())
	prompt := question
	if slide.Title != "" {
		prompt = fmt.Sprintf("%s (topic: %s)", question, slide.Title)
	}

	// Mute so the learner's chatter during the wait does not interrupt the
	// model's stalling utterance.
	t.deps.Session.MuteMic()
	t.genInProgress = true
	t.setState(StateVisualExplaining)
	t.sendText("Tell the learner you are preparing a visual for them, in one short sentence.")

	go func() {
		ctx, cancel := context.WithTimeout(t.ctx, t.cfg.CollaboratorTimeout)
		defer cancel()

		var media visual.Media
		execErr := t.visualBreaker.Execute(func() error {
			m, err := t.deps.Visual.Generate(ctx, prompt, kind)
			media = m
			return err
		})
		t.push(event{kind: evVisualDone, media: media, err: execErr})
	}()
}

func (t *Tutor) handleVisual(media visual.Media, err error) {
	if t.State() != StateVisualExplaining {
		return
	}
	t.genInProgress = false

	if err != nil {
		t.collaboratorError("visual", err)
		t.deps.Session.UnmuteMic()
		t.sendText("The visual could not be prepared. Explain it verbally instead, using a vivid description.")
		t.setState(StateAnswering)
		return
	}

	t.overlayOpen = true
	if t.deps.Overlay != nil {
		t.deps.Overlay.Send(Overlay{Media: media, Open: true})
	}
	t.sendText("The visual is now on screen. Walk the learner through what it shows.")
}

func wantsVideo(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range []string{"video", "animation", "animate", "motion", "clip"} {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (t *Tutor) narrate(i int) {
	slide, err := t.deck.Slide(i)
	if err != nil {
		slog.Error("tutor: narrate", "err", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "We are on slide %d of %d: %q.\n", t.deck.Number(i), t.deck.Len(), slide.Title)
	b.WriteString("Narrate this slide to the learner, following the script below, then stop.\n")
	if len(slide.Bullets) > 0 {
		b.WriteString("Key points:\n")
		for _, bullet := range slide.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	fmt.Fprintf(&b, "Script: %s\n", slide.Script)
	if slide.Quiz != nil {
		fmt.Fprintf(&b, "Finish by asking the learner this check question: %s\n", slide.Quiz.Question)
	}

	t.narrationStart = time.Now()
	t.sendText(b.String())
}

func (t *Tutor) sendText(text string) {
	if err := t.deps.Session.SendText(text); err != nil {
		slog.Warn("tutor: send narration request", "err", err)
	}
}

func (t *Tutor) writeTranscript(text string, role live.Role) {
	if t.deps.Store == nil || t.lectureID == "" || text == "" {
		return
	}

	speaker := transcript.SpeakerTutor
	if role == live.RoleUser {
		speaker = transcript.SpeakerLearner
	}
	var slideID string
	if t.deck != nil {
		if slide, err := t.deck.Slide(t.idxLocked()); err == nil {
			slideID = slide.ID
		}
	}

	if err := t.deps.Store.Write(t.ctx, transcript.Entry{
		LectureID: t.lectureID,
		Speaker:   speaker,
		Text:      text,
		SlideID:   slideID,
	}); err != nil {
		slog.Warn("tutor: write transcript", "err", err)
	}
}

func (t *Tutor) collaboratorError(name string, err error) {
	slog.Warn("tutor: collaborator failed", "collaborator", name, "err", err)
	if t.deps.Metrics != nil {
		t.deps.Metrics.CollaboratorError(t.ctx, name)
	}
}

func (t *Tutor) closeOverlay() {
	if !t.overlayOpen {
		return
	}
	t.overlayOpen = false
	if t.deps.Overlay != nil {
		t.deps.Overlay.Send(Overlay{Open: false})
	}
}

func (t *Tutor) setState(to State) {
	t.mu.Lock()
	from := t.state
	t.state = to
	t.mu.Unlock()
	if from == to {
		return
	}

	if t.deps.Metrics != nil {
		t.deps.Metrics.Transition(t.ctx, from.String(), to.String())
	}
	slog.Debug("tutor transition", "from", from, "to", to, "lecture_id", t.lectureID)
}

func (t *Tutor) setIndex(i int) {
	t.mu.Lock()
	t.idx = i
	t.mu.Unlock()
}

func (t *Tutor) idxLocked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx
}

// ── Timers ──────────────────────────────────────────────────────────────────
// Each timer is single-shot. Starting a new one cancels its predecessor, and
// the sequence number discards a fire that raced with cancellation.

func (t *Tutor) startAdvanceTimer() {
	t.cancelAdvanceTimer()
	seq := t.advanceSeq
	t.advanceTimer = time.AfterFunc(t.cfg.AdvanceDelay, func() {
		t.push(event{kind: evAdvanceElapsed, seq: seq})
	})
}

func (t *Tutor) cancelAdvanceTimer() {
	if t.advanceTimer != nil {
		t.advanceTimer.Stop()
		t.advanceTimer = nil
	}
	t.advanceSeq++
}

func (t *Tutor) startGraceTimer() {
	t.cancelGraceTimer()
	seq := t.graceSeq
	t.graceTimer = time.AfterFunc(t.cfg.GraceDelay, func() {
		t.push(event{kind: evGraceElapsed, seq: seq})
	})
}

func (t *Tutor) cancelGraceTimer() {
	if t.graceTimer != nil {
		t.graceTimer.Stop()
		t.graceTimer = nil
	}
	t.graceSeq++
}

func (t *Tutor) startOverlayTimer() {
	t.cancelOverlayTimer()
	seq := t.overlaySeq
	t.overlayTimer = time.AfterFunc(t.cfg.OverlayCloseDelay, func() {
		t.push(event{kind: evOverlayElapsed, seq: seq})
	})
}

func (t *Tutor) cancelOverlayTimer() {
	if t.overlayTimer != nil {
		t.overlayTimer.Stop()
		t.overlayTimer = nil
	}
	t.overlaySeq++
}
