// Package config provides the configuration schema, loader, and provider
// registry for the Lectern tutoring server.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the Lectern server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog converts l to the corresponding slog level. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration is a time.Duration that unmarshals from YAML strings like "1.5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ProviderEntry configures one external provider.
type ProviderEntry struct {
	// Name selects the factory registered for this provider kind.
	Name string `yaml:"name"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Options carries provider-specific extras.
	Options map[string]string `yaml:"options"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// ListenAddr is the address the metrics/health server binds to.
	// Default ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// WatchInterval is how often the config file is polled for edits.
	// Default 5s. The knob is itself hot-reloadable.
	WatchInterval Duration `yaml:"watch_interval"`
}

// ProvidersConfig selects the external providers per concern.
type ProvidersConfig struct {
	// Live is the realtime speech model the lecture converses through.
	Live ProviderEntry `yaml:"live"`

	// Classifier routes follow-up questions.
	Classifier ProviderEntry `yaml:"classifier"`

	// Research answers external questions with web/video context.
	Research ProviderEntry `yaml:"research"`

	// Visual generates illustrations and short animations.
	Visual ProviderEntry `yaml:"visual"`
}

// TutorConfig holds the lecture timing knobs and the voice persona.
type TutorConfig struct {
	// Voice is the prebuilt voice name used for synthesized speech.
	Voice string `yaml:"voice"`

	// Instructions is the system prompt framing the tutor persona.
	Instructions string `yaml:"instructions"`

	// AdvanceDelay is the pause between slides. Default 1.5s.
	AdvanceDelay Duration `yaml:"advance_delay"`

	// GraceDelay is the question-collection window after a barge-in.
	// Default 2s.
	GraceDelay Duration `yaml:"grace_delay"`

	// OverlayCloseDelay is how long a visual stays up after its explanation.
	OverlayCloseDelay Duration `yaml:"overlay_close_delay"`

	// CollaboratorTimeout bounds classifier/research/visual calls.
	CollaboratorTimeout Duration `yaml:"collaborator_timeout"`

	// ToolCallTimeout bounds how long a model tool call may wait for the
	// host's response.
	ToolCallTimeout Duration `yaml:"tool_call_timeout"`

	// VADThreshold is the speech-onset RMS threshold on a -1..1 scale.
	// Default 0.02.
	VADThreshold float64 `yaml:"vad_threshold"`

	// VADDebounce is the minimum gap between activity events. Default 500ms.
	VADDebounce Duration `yaml:"vad_debounce"`
}

// DeckConfig locates the lecture deck.
type DeckConfig struct {
	Path string `yaml:"path"`
}

// TranscriptConfig configures transcript persistence. An empty DSN selects
// the in-memory store.
type TranscriptConfig struct {
	DSN string `yaml:"dsn"`
}

// Config is the root configuration structure for Lectern.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Tutor      TutorConfig      `yaml:"tutor"`
	Deck       DeckConfig       `yaml:"deck"`
	Transcript TranscriptConfig `yaml:"transcript"`
}
