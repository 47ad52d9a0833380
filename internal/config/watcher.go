package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileState is what the watcher remembers about the file on disk: the cheap
// mtime gate and the content hash behind it. A touched-but-unchanged file
// updates the mtime without triggering a reload.
type fileState struct {
	mtime time.Time
	hash  [sha256.Size]byte
}

// Watcher polls a lectern config file and delivers edits through a callback.
// Polling (rather than inotify) keeps the behavior identical across
// platforms and container filesystems.
//
// The poll cadence follows the server.watch_interval knob of the loaded
// config itself, so an edit to the interval takes effect on the next sweep.
// An invalid edit is rejected and the previous config stays current.
type Watcher struct {
	path     string
	onChange func(old, new *Config)

	// pinned is set by WithInterval; it keeps the cadence fixed regardless
	// of what the file says. Tests use it for fast, deterministic sweeps.
	pinned   bool
	interval time.Duration

	mu      sync.Mutex
	current *Config
	seen    fileState

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval pins the polling interval, overriding server.watch_interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pinned = true
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path, starts the polling goroutine and
// returns the watcher. A load failure here is fatal; after startup, load
// failures only log and keep the previous config.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, state, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.seen = state
	if !w.pinned {
		w.interval = cfg.Server.WatchInterval.Std()
	}

	go w.run()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if next := w.sweep(); next != w.interval {
				w.interval = next
				ticker.Reset(next)
				slog.Info("config watch interval changed", "interval", next)
			}
		}
	}
}

// sweep checks the file once and returns the interval the next sweep should
// use. Any failure leaves the current config in place.
func (w *Watcher) sweep() time.Duration {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return w.interval
	}

	w.mu.Lock()
	seen := w.seen
	w.mu.Unlock()

	if info.ModTime().Equal(seen.mtime) {
		return w.interval
	}

	cfg, state, err := w.load()
	if err != nil {
		slog.Warn("config watcher: rejecting edited config", "path", w.path, "err", err)
		return w.interval
	}

	w.mu.Lock()
	if state.hash == w.seen.hash {
		w.seen.mtime = state.mtime
		w.mu.Unlock()
		return w.interval
	}
	old := w.current
	w.current = cfg
	w.seen = state
	w.mu.Unlock()

	slog.Info("configuration reloaded", "path", w.path)
	// Outside the lock so the callback can call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}

	if w.pinned {
		return w.interval
	}
	return cfg.Server.WatchInterval.Std()
}

// load reads, parses and validates the file, returning the config together
// with the file state for change detection.
func (w *Watcher) load() (*Config, fileState, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}

	return cfg, fileState{mtime: info.ModTime(), hash: sha256.Sum256(data)}, nil
}
