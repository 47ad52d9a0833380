package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lectern-ai/lectern/internal/bridge"
	"github.com/lectern-ai/lectern/internal/classify"
	cmock "github.com/lectern-ai/lectern/internal/classify/mock"
	"github.com/lectern-ai/lectern/internal/deck"
	"github.com/lectern-ai/lectern/internal/research"
	rmock "github.com/lectern-ai/lectern/internal/research/mock"
	"github.com/lectern-ai/lectern/internal/transcript"
	"github.com/lectern-ai/lectern/internal/visual"
	vmock "github.com/lectern-ai/lectern/internal/visual/mock"
	"github.com/lectern-ai/lectern/internal/voice"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// mockSession is a hand-written [Session] recording every interaction.
type mockSession struct {
	mu sync.Mutex

	ConnectErr error

	state      voice.State
	texts      []string
	muted      bool
	clearCalls int
	closeCalls int
}

func (m *mockSession) State() voice.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockSession) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.state = voice.StateConnected
	return nil
}

func (m *mockSession) SendText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockSession) MuteMic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = true
}

func (m *mockSession) UnmuteMic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = false
}

func (m *mockSession) ClearPlayback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	m.state = voice.StateDisconnected
	return nil
}

func (m *mockSession) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

func (m *mockSession) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *mockSession) ClearCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCalls
}

func (m *mockSession) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// lastText returns the most recent outbound text turn, or "".
func (m *mockSession) lastText() string {
	texts := m.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fixture struct {
	tut        *Tutor
	sess       *mockSession
	classifier *cmock.Classifier
	research   *rmock.Provider
	visual     *vmock.Generator
	store      *transcript.MemoryStore
	overlay    *bridge.Bridge[Overlay]
	panel      *bridge.Bridge[research.Bundle]
}

var testConfig = Config{
	AdvanceDelay:        30 * time.Millisecond,
	GraceDelay:          60 * time.Millisecond,
	OverlayCloseDelay:   40 * time.Millisecond,
	CollaboratorTimeout: 2 * time.Second,
}

// newFixture builds a running tutor with all collaborators mocked. mutate may
// adjust the deps before construction (e.g. drop the classifier).
func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()

	f := &fixture{
		sess:       &mockSession{},
		classifier: &cmock.Classifier{},
		research:   &rmock.Provider{},
		visual:     &vmock.Generator{},
		store:      transcript.NewMemoryStore(),
		overlay:    bridge.New[Overlay]("overlay"),
		panel:      bridge.New[research.Bundle]("panel"),
	}
	deps := Deps{
		Session:    f.sess,
		Classifier: f.classifier,
		Research:   f.research,
		Visual:     f.visual,
		Store:      f.store,
		Overlay:    f.overlay,
		Panel:      f.panel,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.tut = New(testConfig, deps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.tut.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func threeSlideDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d, err := deck.New("Photosynthesis", []deck.Slide{
		{ID: "s1", Title: "Light Reactions", Script: "Light hits the chloroplast."},
		{ID: "s2", Title: "Calvin Cycle", Script: "Carbon is fixed into sugar."},
		{ID: "s3", Title: "Summary", Script: "Energy in, sugar out."},
	})
	if err != nil {
		t.Fatalf("deck.New() = %v", err)
	}
	return d
}

// waitFor polls cond until it is true or the deadline expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, tut *Tutor, want State) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return tut.State() == want })
}

// startLecture starts a lecture and waits for the first narration request.
func startLecture(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.tut.StartLecture(context.Background(), threeSlideDeck(t)); err != nil {
		t.Fatalf("StartLecture() = %v", err)
	}
	waitState(t, f.tut, StateAutoExplaining)
	waitFor(t, "first narration", func() bool { return len(f.sess.Texts()) >= 1 })
}

// pauseAndAsk drives the tutor from auto_explaining into answering with the
// given question.
func pauseAndAsk(t *testing.T, f *fixture, question string) {
	t.Helper()
	f.tut.NotifyUserActivity()
	waitState(t, f.tut, StatePausedForQuestion)
	f.tut.NotifyText(question, live.RoleUser)
	waitState(t, f.tut, StateAnswering)
}

// ---------------------------------------------------------------------------
// Lecture lifecycle
// ---------------------------------------------------------------------------

func TestStartLecture_NarratesFirstSlide(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	first := f.sess.Texts()[0]
	if !strings.Contains(first, "slide 1 of 3") {
		t.Errorf("narration = %q, want slide 1 of 3", first)
	}
	if !strings.Contains(first, "Light hits the chloroplast.") {
		t.Errorf("narration %q does not include the script", first)
	}
	if f.tut.SlideIndex() != 0 {
		t.Errorf("SlideIndex() = %d, want 0", f.tut.SlideIndex())
	}
	if f.tut.LectureID() == "" {
		t.Error("LectureID() is empty")
	}
}

func TestStartLecture_RefusesSecondLecture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	if err := f.tut.StartLecture(context.Background(), threeSlideDeck(t)); !errors.Is(err, ErrLectureActive) {
		t.Errorf("second StartLecture() = %v, want ErrLectureActive", err)
	}
}

func TestStartLecture_ConnectFailureIsRetriable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.sess.ConnectErr = errors.New("handshake refused")

	err := f.tut.StartLecture(context.Background(), threeSlideDeck(t))
	if err == nil || errors.Is(err, ErrLectureActive) {
		t.Fatalf("StartLecture() = %v, want connect error", err)
	}

	// The failed start must not leave the tutor stuck in "active".
	f.sess.ConnectErr = nil
	if err := f.tut.StartLecture(context.Background(), threeSlideDeck(t)); err != nil {
		t.Errorf("retry StartLecture() = %v", err)
	}
}

func TestHappyPathLecture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.NotifyTurnComplete()
	waitFor(t, "second narration", func() bool { return len(f.sess.Texts()) >= 2 })
	if got := f.sess.lastText(); !strings.Contains(got, "slide 2 of 3") {
		t.Errorf("narration = %q, want slide 2 of 3", got)
	}

	f.tut.NotifyTurnComplete()
	waitFor(t, "third narration", func() bool { return len(f.sess.Texts()) >= 3 })
	if got := f.sess.lastText(); !strings.Contains(got, "slide 3 of 3") {
		t.Errorf("narration = %q, want slide 3 of 3", got)
	}

	f.tut.NotifyTurnComplete()
	waitState(t, f.tut, StateFinished)
	if f.tut.SlideIndex() != 2 {
		t.Errorf("SlideIndex() = %d, want 2", f.tut.SlideIndex())
	}
}

func TestSingleAdvanceTimer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	// Two back-to-back turnCompletes arm the advance timer twice; the second
	// arming cancels the first, so exactly one advance happens.
	f.tut.NotifyTurnComplete()
	f.tut.NotifyTurnComplete()

	waitFor(t, "second narration", func() bool { return len(f.sess.Texts()) >= 2 })
	time.Sleep(3 * testConfig.AdvanceDelay)

	if got := len(f.sess.Texts()); got != 2 {
		t.Errorf("narration count = %d, want 2 (single timer fires)", got)
	}
	if f.tut.SlideIndex() != 1 {
		t.Errorf("SlideIndex() = %d, want 1", f.tut.SlideIndex())
	}
}

func TestGoToSlide(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	if err := f.tut.GoToSlide(2); err != nil {
		t.Fatalf("GoToSlide(2) = %v", err)
	}
	waitFor(t, "jump narration", func() bool { return len(f.sess.Texts()) >= 2 })

	if got := f.sess.lastText(); !strings.Contains(got, "slide 3 of 3") {
		t.Errorf("narration = %q, want slide 3 of 3", got)
	}
	if f.tut.State() != StateAutoExplaining {
		t.Errorf("State() = %v, want auto_explaining (navigation keeps state)", f.tut.State())
	}
	if f.sess.ClearCalls() == 0 {
		t.Error("GoToSlide did not clear playback")
	}

	if err := f.tut.GoToSlide(99); err == nil {
		t.Error("GoToSlide(99) should be rejected")
	}
}

func TestGoToSlide_NoLecture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	if err := f.tut.GoToSlide(0); !errors.Is(err, ErrNoLecture) {
		t.Errorf("GoToSlide() = %v, want ErrNoLecture", err)
	}
}

// ---------------------------------------------------------------------------
// Interruption and resume
// ---------------------------------------------------------------------------

func TestInterruptionMidNarration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.NotifyUserActivity()
	waitState(t, f.tut, StatePausedForQuestion)
	if f.sess.ClearCalls() == 0 {
		t.Error("pause did not clear playback")
	}

	// Grace window elapses with no follow-up text.
	waitState(t, f.tut, StateAnswering)
}

func TestModelInterruptAlsoPauses(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.NotifyInterrupted()
	waitState(t, f.tut, StatePausedForQuestion)
}

func TestResumeKeyword_AdvancesSlide(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.SlideRelated
	startLecture(t, f)

	pauseAndAsk(t, f, "wait, what is a chloroplast?")
	waitState(t, f.tut, StateWaitingToResume)

	f.tut.NotifyText("ok continue", live.RoleUser)
	waitState(t, f.tut, StateAutoExplaining)

	if f.tut.SlideIndex() != 1 {
		t.Errorf("SlideIndex() = %d, want 1", f.tut.SlideIndex())
	}
	waitFor(t, "resume narration", func() bool {
		return strings.Contains(f.sess.lastText(), "slide 2 of 3")
	})
}

func TestResumeKeyword_FuzzyMatchesNoisyTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.GeneralConcept
	startLecture(t, f)

	pauseAndAsk(t, f, "how does energy transfer work in general?")
	waitState(t, f.tut, StateWaitingToResume)

	// "continu" is within edit distance one of "continue".
	f.tut.NotifyText("alright continu", live.RoleUser)
	waitState(t, f.tut, StateAutoExplaining)
}

func TestResumeKeyword_IgnoredOutsideWaitingToResume(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.NotifyText("continue", live.RoleUser)
	time.Sleep(50 * time.Millisecond)

	if f.tut.SlideIndex() != 0 {
		t.Errorf("SlideIndex() = %d, want 0 (keyword outside waiting_to_resume)", f.tut.SlideIndex())
	}
	if f.tut.State() != StateAutoExplaining {
		t.Errorf("State() = %v, want auto_explaining", f.tut.State())
	}
}

func TestResumeOnLastSlide_Finishes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.SlideRelated
	startLecture(t, f)

	if err := f.tut.GoToSlide(2); err != nil {
		t.Fatalf("GoToSlide(2) = %v", err)
	}
	waitFor(t, "jump", func() bool { return f.tut.SlideIndex() == 2 })

	pauseAndAsk(t, f, "one more question about the summary")
	waitState(t, f.tut, StateWaitingToResume)

	f.tut.NotifyText("keep going", live.RoleUser)
	waitState(t, f.tut, StateFinished)
}

// ---------------------------------------------------------------------------
// Research sub-flow
// ---------------------------------------------------------------------------

func TestResearchFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.External
	f.research.Block = make(chan struct{})
	f.research.Bundle = research.Bundle{Summary: "Rubisco is the busiest enzyme on Earth."}

	bundles := make(chan research.Bundle, 1)
	f.panel.Register(func(b research.Bundle) { bundles <- b })

	startLecture(t, f)
	pauseAndAsk(t, f, "what does current research say about rubisco?")
	waitState(t, f.tut, StateResearchMode)

	// The model's "looking that up" filler finishes while the fetch is still
	// in flight; that turnComplete must be ignored.
	f.tut.NotifyTurnComplete()
	time.Sleep(30 * time.Millisecond)
	if f.tut.State() != StateResearchMode {
		t.Fatalf("State() = %v, want research_mode (filler turnComplete ignored)", f.tut.State())
	}

	close(f.research.Block)
	waitFor(t, "summary narration", func() bool {
		return strings.Contains(f.sess.lastText(), "Rubisco is the busiest enzyme on Earth.")
	})

	select {
	case b := <-bundles:
		if b.Summary != f.research.Bundle.Summary {
			t.Errorf("panel bundle = %+v", b)
		}
	case <-time.After(time.Second):
		t.Fatal("panel bridge never received the bundle")
	}

	// Real summary utterance completes.
	f.tut.NotifyTurnComplete()
	waitState(t, f.tut, StateWaitingToResume)
}

func TestResearchFailure_FallsBackVerbally(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.External
	f.research.Err = errors.New("search backend down")

	startLecture(t, f)
	pauseAndAsk(t, f, "what is the latest news on artificial photosynthesis?")

	waitState(t, f.tut, StateAnswering)
	waitFor(t, "verbal fallback", func() bool {
		return strings.Contains(f.sess.lastText(), "your own knowledge")
	})
}

// ---------------------------------------------------------------------------
// Visual sub-flow
// ---------------------------------------------------------------------------

func TestVisualFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.VisualRequest
	f.visual.Block = make(chan struct{})
	f.visual.Media = visual.Media{URL: "data:image/png;base64,xyz", Kind: visual.KindImage}

	overlays := make(chan Overlay, 2)
	f.overlay.Register(func(o Overlay) { overlays <- o })

	startLecture(t, f)
	pauseAndAsk(t, f, "can you show me a diagram of this?")
	waitState(t, f.tut, StateVisualExplaining)

	if !f.sess.Muted() {
		t.Error("mic should be muted during visual generation")
	}

	// Filler turnComplete while still generating is ignored.
	f.tut.NotifyTurnComplete()
	time.Sleep(30 * time.Millisecond)
	if f.tut.State() != StateVisualExplaining {
		t.Fatalf("State() = %v, want visual_explaining", f.tut.State())
	}

	close(f.visual.Block)
	select {
	case o := <-overlays:
		if !o.Open || o.Media.URL != f.visual.Media.URL {
			t.Errorf("overlay = %+v, want open with media", o)
		}
	case <-time.After(time.Second):
		t.Fatal("overlay bridge never received the visual")
	}

	// The real explanation completes: unmute, resume waiting, close the
	// overlay after the delay.
	f.tut.NotifyTurnComplete()
	waitState(t, f.tut, StateWaitingToResume)
	waitFor(t, "mic unmuted", func() bool { return !f.sess.Muted() })

	select {
	case o := <-overlays:
		if o.Open {
			t.Errorf("second overlay event = %+v, want close", o)
		}
	case <-time.After(time.Second):
		t.Fatal("overlay was never closed")
	}
}

func TestVisualFailure_UnmutesAndFallsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.VisualRequest
	f.visual.Err = errors.New("render farm unavailable")

	startLecture(t, f)
	pauseAndAsk(t, f, "show me an animation of the calvin cycle")
	waitState(t, f.tut, StateVisualExplaining)

	waitState(t, f.tut, StateAnswering)
	waitFor(t, "mic unmuted", func() bool { return !f.sess.Muted() })
	waitFor(t, "verbal fallback", func() bool {
		return strings.Contains(f.sess.lastText(), "verbally")
	})
}

func TestVisualRequest_VideoKeywordSelectsVideo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Category = classify.VisualRequest
	f.visual.Media = visual.Media{URL: "https://storage.example/clip.mp4"}

	startLecture(t, f)
	pauseAndAsk(t, f, "play a video of electrons moving")

	waitFor(t, "visual call", func() bool { return f.visual.Calls() >= 1 })
	waitFor(t, "prompt recorded", func() bool { return len(f.visual.Prompts) >= 1 })
	if got := f.visual.Prompts[0]; !strings.Contains(got, "electrons moving") {
		t.Errorf("prompt = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Classification edge cases
// ---------------------------------------------------------------------------

func TestClassifierFailure_AnswersInline(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.classifier.Err = errors.New("rate limited")

	startLecture(t, f)
	pauseAndAsk(t, f, "what is the chloroplast made of?")

	// Degrades to an inline answer; state stays answering until the model's
	// turn completes.
	time.Sleep(50 * time.Millisecond)
	if f.tut.State() != StateAnswering {
		t.Fatalf("State() = %v, want answering", f.tut.State())
	}
	f.tut.NotifyTurnComplete()
	waitState(t, f.tut, StateWaitingToResume)
}

func TestNoClassifier_AnswersInline(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(d *Deps) { d.Classifier = nil })

	startLecture(t, f)
	pauseAndAsk(t, f, "anything at all")

	f.tut.NotifyTurnComplete()
	waitState(t, f.tut, StateWaitingToResume)
}

// ---------------------------------------------------------------------------
// Stop safety
// ---------------------------------------------------------------------------

func TestStop_FromEveryState(t *testing.T) {
	t.Parallel()

	states := map[string]func(t *testing.T, f *fixture){
		"auto_explaining": func(t *testing.T, f *fixture) {},
		"paused_for_question": func(t *testing.T, f *fixture) {
			f.tut.NotifyUserActivity()
			waitState(t, f.tut, StatePausedForQuestion)
		},
		"answering": func(t *testing.T, f *fixture) {
			pauseAndAsk(t, f, "a question")
		},
		"research_mode": func(t *testing.T, f *fixture) {
			f.classifier.Category = classify.External
			f.research.Block = make(chan struct{})
			t.Cleanup(func() { close(f.research.Block) })
			pauseAndAsk(t, f, "look this up")
			waitState(t, f.tut, StateResearchMode)
		},
		"visual_explaining": func(t *testing.T, f *fixture) {
			f.classifier.Category = classify.VisualRequest
			f.visual.Block = make(chan struct{})
			t.Cleanup(func() { close(f.visual.Block) })
			pauseAndAsk(t, f, "draw this")
			waitState(t, f.tut, StateVisualExplaining)
		},
		"waiting_to_resume": func(t *testing.T, f *fixture) {
			f.classifier.Category = classify.SlideRelated
			pauseAndAsk(t, f, "a question")
			waitState(t, f.tut, StateWaitingToResume)
		},
		"finished": func(t *testing.T, f *fixture) {
			f.tut.GoToSlide(2)
			waitFor(t, "jump", func() bool { return f.tut.SlideIndex() == 2 })
			f.tut.NotifyTurnComplete()
			waitState(t, f.tut, StateFinished)
		},
	}

	for name, drive := range states {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			startLecture(t, f)
			drive(t, f)

			narrations := len(f.sess.Texts())
			if err := f.tut.Stop(); err != nil {
				t.Fatalf("Stop() = %v", err)
			}
			waitState(t, f.tut, StateIdle)

			if f.sess.CloseCalls() == 0 {
				t.Error("Stop() did not close the session")
			}

			// No stale timer may resurrect the lecture.
			time.Sleep(3 * testConfig.AdvanceDelay)
			if f.tut.State() != StateIdle {
				t.Errorf("State() = %v after stop, want idle", f.tut.State())
			}
			if got := len(f.sess.Texts()); got != narrations {
				t.Errorf("narrations after stop = %d, want %d (no timer fired)", got, narrations)
			}
		})
	}
}

func TestStop_NoLectureIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	if err := f.tut.Stop(); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
	if f.sess.CloseCalls() != 0 {
		t.Error("Stop() touched the session with no lecture active")
	}
}

func TestStop_AllowsNewLecture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	if err := f.tut.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	waitState(t, f.tut, StateIdle)

	if err := f.tut.StartLecture(context.Background(), threeSlideDeck(t)); err != nil {
		t.Errorf("StartLecture() after stop = %v", err)
	}
	waitState(t, f.tut, StateAutoExplaining)
}

// ---------------------------------------------------------------------------
// Transcript and explain
// ---------------------------------------------------------------------------

func TestTranscript_CapturesBothSpeakers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.NotifyText("Light hits the chloroplast.", live.RoleModel)
	f.tut.NotifyText("what hits the what now?", live.RoleUser)

	waitFor(t, "transcript entries", func() bool {
		entries, _ := f.store.Recent(context.Background(), f.tut.LectureID(), 0)
		return len(entries) == 2
	})

	entries, _ := f.store.Recent(context.Background(), f.tut.LectureID(), 0)
	if entries[0].Speaker != transcript.SpeakerTutor {
		t.Errorf("entries[0].Speaker = %v, want tutor", entries[0].Speaker)
	}
	if entries[1].Speaker != transcript.SpeakerLearner {
		t.Errorf("entries[1].Speaker = %v, want learner", entries[1].Speaker)
	}
	if entries[0].SlideID != "s1" {
		t.Errorf("entries[0].SlideID = %q, want s1", entries[0].SlideID)
	}
}

func TestExplain_ForwardsDuringLecture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	startLecture(t, f)

	f.tut.Explain("the second bullet point")
	waitFor(t, "explain request", func() bool {
		return strings.Contains(f.sess.lastText(), "the second bullet point")
	})
}

func TestExplain_DroppedWhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.tut.Explain("anything")
	time.Sleep(30 * time.Millisecond)

	if got := len(f.sess.Texts()); got != 0 {
		t.Errorf("texts = %d, want 0", got)
	}
}
