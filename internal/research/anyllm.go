package research

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// Compile-time assertion that AnyLLM satisfies the Provider interface.
var _ Provider = (*AnyLLM)(nil)

const researchPrompt = `You are the research assistant behind a spoken tutoring session.
Given the student's question, write a concise summary suitable for reading
aloud (3-5 sentences, no markdown, no headings). Then list supporting
sources, one per line, in the form:
SOURCE: <title> | <url>
Mark video sources as:
VIDEO: <title> | <url>`

// AnyLLM implements [Provider] by synthesizing a bundle through
// github.com/mozilla-ai/any-llm-go, so any of its supported model backends
// (OpenAI, Anthropic, Gemini, Ollama, ...) can serve research requests.
type AnyLLM struct {
	backend anyllmlib.Provider
	model   string
}

// NewAnyLLM creates a research provider backed by the named any-llm-go
// backend. providerName is one of: "openai", "anthropic", "gemini", "ollama".
// Without an API key option, the backend reads its usual environment variable.
func NewAnyLLM(providerName, model string, opts ...anyllmlib.Option) (*AnyLLM, error) {
	if providerName == "" {
		return nil, fmt.Errorf("research: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("research: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("research: create %q backend: %w", providerName, err)
	}
	return &AnyLLM{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}

// Research implements [Provider].
func (a *AnyLLM) Research(ctx context.Context, question string) (Bundle, error) {
	resp, err := a.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: a.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: researchPrompt},
			{Role: anyllmlib.RoleUser, Content: question},
		},
	})
	if err != nil {
		return Bundle{}, fmt.Errorf("research: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Bundle{}, fmt.Errorf("research: empty choices in response")
	}

	return parseBundle(resp.Choices[0].Message.ContentString()), nil
}

// parseBundle splits the model output into narration text and source lines.
func parseBundle(content string) Bundle {
	var b Bundle
	var summary []string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SOURCE:"):
			if l, ok := parseLink(strings.TrimPrefix(trimmed, "SOURCE:")); ok {
				b.WebResults = append(b.WebResults, l)
			}
		case strings.HasPrefix(trimmed, "VIDEO:"):
			if l, ok := parseLink(strings.TrimPrefix(trimmed, "VIDEO:")); ok {
				b.VideoResults = append(b.VideoResults, l)
			}
		case trimmed != "":
			summary = append(summary, trimmed)
		}
	}

	b.Summary = strings.Join(summary, " ")
	return b
}

// parseLink splits "<title> | <url>" into a Link.
func parseLink(s string) (Link, bool) {
	title, url, found := strings.Cut(s, "|")
	if !found {
		return Link{}, false
	}
	l := Link{
		Title: strings.TrimSpace(title),
		URL:   strings.TrimSpace(url),
	}
	if l.Title == "" || l.URL == "" {
		return Link{}, false
	}
	return l, true
}
