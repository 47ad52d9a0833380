package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  live:
    name: gemini-live
    api_key: test-key
    model: gemini-2.0-flash-live-001
  classifier:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  research:
    name: ollama
    model: llama3
  visual:
    name: genai
    api_key: test-key
tutor:
  voice: Aoede
  advance_delay: 1.5s
  grace_delay: 2s
  vad_threshold: 0.02
  vad_debounce: 500ms
deck:
  path: decks/photosynthesis.yaml
transcript:
  dsn: postgres://lectern@localhost/lectern
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() = %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Providers.Live.Name != "gemini-live" {
		t.Errorf("Live.Name = %q", cfg.Providers.Live.Name)
	}
	if got := cfg.Tutor.AdvanceDelay.Std(); got != 1500*time.Millisecond {
		t.Errorf("AdvanceDelay = %v, want 1.5s", got)
	}
	if got := cfg.Tutor.VADDebounce.Std(); got != 500*time.Millisecond {
		t.Errorf("VADDebounce = %v, want 500ms", got)
	}
	if cfg.Transcript.DSN == "" {
		t.Error("Transcript.DSN is empty")
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(`
providers:
  live:
    name: gemini-live
    api_key: k
deck:
  path: deck.yaml
`))
	if err != nil {
		t.Fatalf("LoadFromReader() = %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if got := cfg.Server.WatchInterval.Std(); got != 5*time.Second {
		t.Errorf("WatchInterval = %v, want 5s", got)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
serverr:
  listen_addr: ":1234"
`))
	if err == nil {
		t.Fatal("unknown top-level field should be rejected")
	}
}

func TestLoadFromReader_RejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
tutor:
  advance_delay: soon
deck:
  path: deck.yaml
`))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("LoadFromReader() = %v, want invalid duration error", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080", LogLevel: "loud"},
		Providers: ProvidersConfig{
			Classifier: ProviderEntry{Name: "openai"}, // missing api_key
		},
		Tutor: TutorConfig{VADThreshold: 3},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want joined failures")
	}
	for _, want := range []string{
		"server.log_level",
		"deck.path is required",
		"providers.live.name is required",
		"providers.classifier.api_key",
		"tutor.vad_threshold",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidate_OllamaNeedsNoAPIKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server: ServerConfig{ListenAddr: ":8080", LogLevel: LogInfo},
		Providers: ProvidersConfig{
			Live:     ProviderEntry{Name: "gemini-live", APIKey: "k"},
			Research: ProviderEntry{Name: "ollama", Model: "llama3"},
		},
		Deck: DeckConfig{Path: "deck.yaml"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLogLevel_Slog(t *testing.T) {
	t.Parallel()

	if LogDebug.Slog() >= LogInfo.Slog() {
		t.Error("debug should be below info")
	}
	if LogLevel("bogus").Slog() != LogInfo.Slog() {
		t.Error("unknown level should map to info")
	}
}
