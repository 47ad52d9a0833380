// Package app is the composition root: it wires configuration, collaborator
// providers, storage, observability and the lecture state machine into one
// runnable unit with an ordered shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-ai/lectern/internal/bridge"
	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/deck"
	"github.com/lectern-ai/lectern/internal/health"
	"github.com/lectern-ai/lectern/internal/observe"
	"github.com/lectern-ai/lectern/internal/research"
	"github.com/lectern-ai/lectern/internal/transcript"
	"github.com/lectern-ai/lectern/internal/tutor"
	"github.com/lectern-ai/lectern/internal/visual"
	"github.com/lectern-ai/lectern/internal/voice"
	"github.com/lectern-ai/lectern/pkg/audio"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// shutdownGrace bounds the teardown of individual closers during Shutdown.
const shutdownGrace = 5 * time.Second

// Collaborators holds the model-backed services the app composes. Live is
// required; the others degrade gracefully when nil (questions are answered
// inline by the live model, research and visuals are unavailable).
type Collaborators struct {
	Live       live.Provider
	Classifier classify.Classifier
	Research   research.Provider
	Visual     visual.Generator
}

// ChatMessage is one transcript delta published on the chat bridge for UI
// surfaces to render.
type ChatMessage struct {
	Text string
	Role live.Role
}

// Option overrides a dependency the app would otherwise construct itself.
// Used by tests to inject doubles without touching config or the network.
type Option func(*App)

// WithStore injects a transcript store, skipping DSN-based construction.
func WithStore(st transcript.Store) Option {
	return func(a *App) { a.store = st }
}

// WithDeck injects a deck, skipping the file load from config.
func WithDeck(d *deck.Deck) Option {
	return func(a *App) { a.deck = d }
}

// WithAudioSource injects the capture source for the voice session.
func WithAudioSource(src audio.Source) Option {
	return func(a *App) { a.source = src }
}

// WithPlaybackSink injects the output callback receiving the model's
// synthesized frames at their scheduled start times. Without it the lecture
// is silent: frames are scheduled and speaking events fire, but no audio
// leaves the process.
func WithPlaybackSink(sink audio.Sink) Option {
	return func(a *App) { a.sink = sink }
}

// WithMetrics injects metric instruments, skipping OTel SDK initialisation.
// Without this option the app installs the global meter provider, which can
// only happen once per process.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// App owns every long-lived component of a lectern server.
type App struct {
	cfg *config.Config

	metrics *observe.Metrics
	store   transcript.Store
	deck    *deck.Deck
	source  audio.Source
	sink    audio.Sink
	session *voice.Session
	tutor   *tutor.Tutor

	chat    *bridge.Bridge[ChatMessage]
	overlay *bridge.Bridge[tutor.Overlay]
	panel   *bridge.Bridge[research.Bundle]

	httpSrv *http.Server

	// closers run in reverse registration order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// New builds a fully wired App from config and providers. On error every
// resource acquired so far has been released.
func New(ctx context.Context, cfg *config.Config, collab Collaborators, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if collab.Live == nil {
		return nil, errors.New("app: a live provider is required")
	}

	a := &App{
		cfg:     cfg,
		chat:    bridge.New[ChatMessage]("chat"),
		overlay: bridge.New[tutor.Overlay]("overlay"),
		panel:   bridge.New[research.Bundle]("panel"),
	}
	for _, opt := range opts {
		opt(a)
	}

	// ── 1. Observability ────────────────────────────────────────────────
	if a.metrics == nil {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.closers = append(a.closers, func() error {
			c, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return shutdown(c)
		})

		m, err := observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			a.teardown()
			return nil, fmt.Errorf("app: create metrics: %w", err)
		}
		a.metrics = m
	}

	// ── 2. Transcript store ─────────────────────────────────────────────
	if a.store == nil {
		if dsn := cfg.Transcript.DSN; dsn != "" {
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				a.teardown()
				return nil, fmt.Errorf("app: connect transcript store: %w", err)
			}
			st := transcript.NewPostgresStore(pool)
			if err := st.Migrate(ctx); err != nil {
				pool.Close()
				a.teardown()
				return nil, fmt.Errorf("app: migrate transcript store: %w", err)
			}
			a.closers = append(a.closers, func() error {
				pool.Close()
				return nil
			})
			a.store = st
		} else {
			slog.Info("transcript store is in-memory; set transcript.dsn to persist lectures")
			a.store = transcript.NewMemoryStore()
		}
	}

	// ── 3. Deck ─────────────────────────────────────────────────────────
	if a.deck == nil {
		d, err := deck.Load(cfg.Deck.Path)
		if err != nil {
			a.teardown()
			return nil, fmt.Errorf("app: load deck: %w", err)
		}
		a.deck = d
	}

	// ── 4. Voice session ────────────────────────────────────────────────
	if a.source == nil {
		a.teardown()
		return nil, errors.New("app: no audio capture source configured")
	}

	// The callbacks close over a.tutor, which is assigned in step 5. None of
	// them can fire before the session connects, and connecting is driven by
	// the tutor itself.
	cb := voice.Callbacks{
		OnText: func(text string, role live.Role) {
			a.tutor.NotifyText(text, role)
			a.chat.Send(ChatMessage{Text: text, Role: role})
		},
		OnTurnComplete: func() { a.tutor.NotifyTurnComplete() },
		OnInterrupted:  func() { a.tutor.NotifyInterrupted() },
		OnUserActivity: func() { a.tutor.NotifyUserActivity() },
	}

	sessOpts := []voice.Option{voice.WithMetrics(a.metrics)}
	if a.sink != nil {
		sessOpts = append(sessOpts, voice.WithPlaybackSink(a.sink))
	} else {
		slog.Warn("no playback sink configured; synthesized speech will be discarded")
	}
	if d := cfg.Tutor.ToolCallTimeout.Std(); d > 0 {
		sessOpts = append(sessOpts, voice.WithToolCallTimeout(d))
	}
	var detOpts []audio.DetectorOption
	if cfg.Tutor.VADThreshold > 0 {
		detOpts = append(detOpts, audio.WithActivityThreshold(cfg.Tutor.VADThreshold))
	}
	if d := cfg.Tutor.VADDebounce.Std(); d > 0 {
		detOpts = append(detOpts, audio.WithDebounce(d))
	}
	if len(detOpts) > 0 {
		sessOpts = append(sessOpts, voice.WithDetectorOptions(detOpts...))
	}

	a.session = voice.New(collab.Live, a.source, live.SessionConfig{
		Voice:        cfg.Tutor.Voice,
		Instructions: cfg.Tutor.Instructions,
	}, cb, sessOpts...)
	a.closers = append(a.closers, a.session.Close)

	// ── 5. Lecture state machine ────────────────────────────────────────
	a.tutor = tutor.New(tutor.Config{
		AdvanceDelay:        cfg.Tutor.AdvanceDelay.Std(),
		GraceDelay:          cfg.Tutor.GraceDelay.Std(),
		OverlayCloseDelay:   cfg.Tutor.OverlayCloseDelay.Std(),
		CollaboratorTimeout: cfg.Tutor.CollaboratorTimeout.Std(),
	}, tutor.Deps{
		Session:    a.session,
		Classifier: collab.Classifier,
		Research:   collab.Research,
		Visual:     collab.Visual,
		Store:      a.store,
		Metrics:    a.metrics,
		Overlay:    a.overlay,
		Panel:      a.panel,
	})

	// ── 6. HTTP surface ─────────────────────────────────────────────────
	checks := health.New([]health.Probe{
		{
			Name: "transcript-store",
			Run: func(ctx context.Context) error {
				_, err := a.store.Recent(ctx, "readyz-probe", 1)
				return err
			},
		},
		{
			Name: "deck",
			Run: func(context.Context) error {
				if a.deck.Len() == 0 {
					return errors.New("deck has no slides")
				}
				return nil
			},
		},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	checks.Register(mux)
	a.registerControlRoutes(mux)

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Tutor returns the lecture state machine.
func (a *App) Tutor() *tutor.Tutor { return a.tutor }

// Deck returns the deck loaded at startup.
func (a *App) Deck() *deck.Deck { return a.deck }

// Chat returns the bridge carrying transcript deltas for UI surfaces.
func (a *App) Chat() *bridge.Bridge[ChatMessage] { return a.chat }

// Overlay returns the bridge carrying visual overlay notifications.
func (a *App) Overlay() *bridge.Bridge[tutor.Overlay] { return a.overlay }

// Panel returns the bridge carrying research bundles.
func (a *App) Panel() *bridge.Bridge[research.Bundle] { return a.panel }

// Run serves HTTP and drives the tutor loop until ctx is cancelled or a
// component fails. It always returns after the HTTP server has stopped.
func (a *App) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.tutor.Run(runCtx)
	})

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		c, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.httpSrv.Shutdown(c)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown releases all resources in reverse construction order. It is safe
// to call more than once; only the first call does work. Teardown stops
// early when ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("app: shutdown aborted: %w", ctx.Err()))
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// teardown releases already-acquired resources after a construction failure.
func (a *App) teardown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("teardown after failed construction", "error", err)
		}
	}
	a.closers = nil
}
