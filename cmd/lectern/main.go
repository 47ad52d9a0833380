// Command lectern is the main entry point for the lectern voice tutoring
// server. It narrates a slide deck over a realtime voice session, fields
// learner questions, and exposes a small HTTP control surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/lectern-ai/lectern/internal/app"
	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/research"
	"github.com/lectern-ai/lectern/internal/visual"
	"github.com/lectern-ai/lectern/pkg/audio"
	"github.com/lectern-ai/lectern/pkg/provider/live"
	geminilive "github.com/lectern-ai/lectern/pkg/provider/live/gemini"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// The watcher polls the file for edits; log level changes apply live,
	// everything else needs a restart.
	logLevel := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(d.NewLogLevel.Slog())
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.TutorTimingChanged {
			slog.Warn("tutor timing changed in config; restart to apply")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lectern: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lectern: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(cfg.Server.LogLevel.Slog())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("lectern starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(ctx, reg)

	// ── Instantiate collaborators ─────────────────────────────────────────────
	collab, err := buildCollaborators(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// Capture comes in as raw PCM16 on stdin, playback goes out as raw PCM16
	// on stdout (the startup summary and logs go to stderr). Pipe both ends
	// through any capture/playback front-end:
	//
	//	arecord -f S16_LE -r 16000 -c 1 -t raw |
	//	  lectern -config lectern.yaml |
	//	  aplay -f S16_LE -r 24000 -c 1 -t raw
	source := audio.NewReaderSource(os.Stdin)
	sink := audio.NewWriterSink(os.Stdout)

	application, err := app.New(ctx, cfg, collab,
		app.WithAudioSource(source),
		app.WithPlaybackSink(sink.Play),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider kinds to the implementations that ship with
// lectern. Used for startup logging.
var builtinProviders = map[string][]string{
	"live":       {"gemini-live"},
	"classifier": {"openai"},
	"research":   {"openai", "anthropic", "gemini", "ollama"},
	"visual":     {"genai"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(ctx context.Context, reg *config.Registry) {
	// ── Live ──────────────────────────────────────────────────────────────────

	reg.RegisterLive("gemini-live", func(entry config.ProviderEntry) (live.Provider, error) {
		var opts []geminilive.Option
		if entry.Model != "" {
			opts = append(opts, geminilive.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, geminilive.WithBaseURL(entry.BaseURL))
		}
		return geminilive.New(entry.APIKey, opts...), nil
	})

	// ── Classifier ────────────────────────────────────────────────────────────

	reg.RegisterClassifier("openai", func(entry config.ProviderEntry) (classify.Classifier, error) {
		var opts []classify.Option
		if entry.BaseURL != "" {
			opts = append(opts, classify.WithBaseURL(entry.BaseURL))
		}
		return classify.NewOpenAI(entry.APIKey, entry.Model, opts...)
	})

	// ── Research ──────────────────────────────────────────────────────────────
	// openai, anthropic and gemini share the same pattern: APIKey + optional
	// BaseURL.
	for _, providerName := range []string{"openai", "anthropic", "gemini"} {
		reg.RegisterResearch(providerName, func(entry config.ProviderEntry) (research.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return research.NewAnyLLM(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterResearch("ollama", func(entry config.ProviderEntry) (research.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return research.NewAnyLLM("ollama", entry.Model, opts...)
	})

	// ── Visual ────────────────────────────────────────────────────────────────

	reg.RegisterVisual("genai", func(entry config.ProviderEntry) (visual.Generator, error) {
		var opts []visual.GenAIOption
		if m := entry.Options["image_model"]; m != "" {
			opts = append(opts, visual.WithImageModel(m))
		}
		if m := entry.Options["video_model"]; m != "" {
			opts = append(opts, visual.WithVideoModel(m))
		}
		return visual.NewGenAI(ctx, entry.APIKey, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildCollaborators instantiates all providers named in cfg using the
// registry and returns them in an [app.Collaborators] struct.
func buildCollaborators(cfg *config.Config, reg *config.Registry) (app.Collaborators, error) {
	var cs app.Collaborators

	name := cfg.Providers.Live.Name
	p, err := reg.CreateLive(cfg.Providers.Live)
	if err != nil {
		return cs, fmt.Errorf("create live provider %q: %w", name, err)
	}
	cs.Live = p
	slog.Info("provider created", "kind", "live", "name", name)

	if name := cfg.Providers.Classifier.Name; name != "" {
		c, err := reg.CreateClassifier(cfg.Providers.Classifier)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "classifier", "name", name)
		} else if err != nil {
			return cs, fmt.Errorf("create classifier provider %q: %w", name, err)
		} else {
			cs.Classifier = c
			slog.Info("provider created", "kind", "classifier", "name", name)
		}
	}

	if name := cfg.Providers.Research.Name; name != "" {
		r, err := reg.CreateResearch(cfg.Providers.Research)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "research", "name", name)
		} else if err != nil {
			return cs, fmt.Errorf("create research provider %q: %w", name, err)
		} else {
			cs.Research = r
			slog.Info("provider created", "kind", "research", "name", name)
		}
	}

	if name := cfg.Providers.Visual.Name; name != "" {
		v, err := reg.CreateVisual(cfg.Providers.Visual)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "visual", "name", name)
		} else if err != nil {
			return cs, fmt.Errorf("create visual provider %q: %w", name, err)
		} else {
			cs.Visual = v
			slog.Info("provider created", "kind", "visual", "name", name)
		}
	}

	return cs, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

// printStartupSummary writes to stderr: stdout is reserved for the raw
// playback audio stream.
func printStartupSummary(cfg *config.Config) {
	fmt.Fprintln(os.Stderr, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║         lectern — startup summary     ║")
	fmt.Fprintln(os.Stderr, "╠═══════════════════════════════════════╣")
	printProvider("Live", cfg.Providers.Live.Name, cfg.Providers.Live.Model)
	printProvider("Classifier", cfg.Providers.Classifier.Name, cfg.Providers.Classifier.Model)
	printProvider("Research", cfg.Providers.Research.Name, cfg.Providers.Research.Model)
	printProvider("Visual", cfg.Providers.Visual.Name, cfg.Providers.Visual.Model)
	fmt.Fprintf(os.Stderr, "║  Deck            : %-19s ║\n", trim(cfg.Deck.Path))
	if cfg.Transcript.DSN != "" {
		fmt.Fprintf(os.Stderr, "║  Transcripts     : %-19s ║\n", "postgres")
	} else {
		fmt.Fprintf(os.Stderr, "║  Transcripts     : %-19s ║\n", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Fprintf(os.Stderr, "║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Fprintln(os.Stderr, "╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Fprintf(os.Stderr, "║  %-12s    : %-19s ║\n", kind, trim(value))
}

func trim(value string) string {
	if len(value) > 19 {
		return value[:16] + "…"
	}
	return value
}
