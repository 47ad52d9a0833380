package audio

import (
	"math"
	"sync"
	"time"
)

const (
	// defaultActivityThreshold is the RMS level above which a frame counts as
	// user speech, on the [-1, 1] sample scale.
	defaultActivityThreshold = 0.02

	// defaultStride samples every 4th value when computing RMS. Sufficient for
	// onset detection and keeps the per-frame cost low.
	defaultStride = 4

	// defaultDebounce is the minimum interval between emitted activity events,
	// preventing event storms during continuous speech.
	defaultDebounce = 500 * time.Millisecond
)

// DetectorOption configures a [Detector] during construction.
type DetectorOption func(*Detector)

// WithActivityThreshold overrides the RMS speech threshold. The default is 0.02.
func WithActivityThreshold(t float64) DetectorOption {
	return func(d *Detector) { d.threshold = t }
}

// WithDebounce overrides the minimum interval between activity events.
// The default is 500 ms.
func WithDebounce(interval time.Duration) DetectorOption {
	return func(d *Detector) { d.debounce = interval }
}

// WithNowFunc substitutes the time source used for debouncing. Used by tests.
func WithNowFunc(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// Detector is a cheap, local voice activity detector: it flags user speech
// onset from short-window energy without waiting for the remote model's own
// turn-taking signal, which arrives with network latency.
//
// It is a heuristic, not a classifier — it trades false positives for low
// latency, and the consuming state machine additionally waits for the remote
// interrupt signal. The only state kept across frames is the timestamp of the
// last emitted event.
//
// Safe for concurrent use, though the capture loop is its only expected caller.
type Detector struct {
	threshold float64
	stride    int
	debounce  time.Duration
	now       func() time.Time
	onActive  func()

	mu   sync.Mutex
	last time.Time
}

// NewDetector creates a Detector that invokes onActive (debounced) whenever
// frame energy exceeds the speech threshold. onActive is called from the
// caller of [Detector.Process] and must not block.
func NewDetector(onActive func(), opts ...DetectorOption) *Detector {
	d := &Detector{
		threshold: defaultActivityThreshold,
		stride:    defaultStride,
		debounce:  defaultDebounce,
		now:       time.Now,
		onActive:  onActive,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process inspects one captured frame and emits an activity event if its RMS
// energy exceeds the threshold and the debounce interval has elapsed since
// the last event.
func (d *Detector) Process(frame Frame) {
	if rmsStrided(frame.Samples, d.stride) <= d.threshold {
		return
	}

	now := d.now()
	d.mu.Lock()
	if !d.last.IsZero() && now.Sub(d.last) < d.debounce {
		d.mu.Unlock()
		return
	}
	d.last = now
	d.mu.Unlock()

	if d.onActive != nil {
		d.onActive()
	}
}

// rmsStrided computes the root mean square over every stride-th sample.
func rmsStrided(samples []float32, stride int) float64 {
	if stride < 1 {
		stride = 1
	}
	var sum float64
	var n int
	for i := 0; i < len(samples); i += stride {
		v := float64(samples[i])
		sum += v * v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
