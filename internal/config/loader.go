package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"live":       {"gemini-live"},
	"classifier": {"openai"},
	"research":   {"openai", "anthropic", "gemini", "ollama"},
	"visual":     {"genai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.WatchInterval == 0 {
		cfg.Server.WatchInterval = Duration(5 * time.Second)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Deck.Path == "" {
		errs = append(errs, errors.New("deck.path is required"))
	}

	if cfg.Providers.Live.Name == "" {
		errs = append(errs, errors.New("providers.live.name is required; the tutor cannot speak without a live provider"))
	}
	errs = append(errs, validateProvider("live", cfg.Providers.Live)...)
	errs = append(errs, validateProvider("classifier", cfg.Providers.Classifier)...)
	errs = append(errs, validateProvider("research", cfg.Providers.Research)...)
	errs = append(errs, validateProvider("visual", cfg.Providers.Visual)...)

	if cfg.Providers.Classifier.Name == "" {
		slog.Warn("no classifier provider configured; all questions will be answered inline")
	}

	if t := cfg.Tutor.VADThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("tutor.vad_threshold %v is out of range [0, 1]", t))
	}
	for name, d := range map[string]Duration{
		"server.watch_interval":      cfg.Server.WatchInterval,
		"tutor.advance_delay":        cfg.Tutor.AdvanceDelay,
		"tutor.grace_delay":          cfg.Tutor.GraceDelay,
		"tutor.overlay_close_delay":  cfg.Tutor.OverlayCloseDelay,
		"tutor.collaborator_timeout": cfg.Tutor.CollaboratorTimeout,
		"tutor.tool_call_timeout":    cfg.Tutor.ToolCallTimeout,
		"tutor.vad_debounce":         cfg.Tutor.VADDebounce,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// validateProvider checks one provider entry. An empty name is allowed (the
// feature is disabled); a set name needs an API key unless the provider runs
// locally.
func validateProvider(kind string, entry ProviderEntry) []error {
	if entry.Name == "" {
		return nil
	}

	var errs []error
	if known := ValidProviderNames[kind]; !slices.Contains(known, entry.Name) {
		slog.Warn("unrecognised provider name",
			"kind", kind,
			"name", entry.Name,
			"known", known)
	}
	if entry.APIKey == "" && entry.Name != "ollama" {
		errs = append(errs, fmt.Errorf("providers.%s.api_key is required for %q", kind, entry.Name))
	}
	return errs
}
