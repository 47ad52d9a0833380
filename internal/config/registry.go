package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/research"
	"github.com/lectern-ai/lectern/internal/visual"
	"github.com/lectern-ai/lectern/pkg/provider/live"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	live       map[string]func(ProviderEntry) (live.Provider, error)
	classifier map[string]func(ProviderEntry) (classify.Classifier, error)
	research   map[string]func(ProviderEntry) (research.Provider, error)
	visual     map[string]func(ProviderEntry) (visual.Generator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		live:       make(map[string]func(ProviderEntry) (live.Provider, error)),
		classifier: make(map[string]func(ProviderEntry) (classify.Classifier, error)),
		research:   make(map[string]func(ProviderEntry) (research.Provider, error)),
		visual:     make(map[string]func(ProviderEntry) (visual.Generator, error)),
	}
}

// RegisterLive registers a live speech provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLive(name string, factory func(ProviderEntry) (live.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[name] = factory
}

// RegisterClassifier registers a question classifier factory under name.
func (r *Registry) RegisterClassifier(name string, factory func(ProviderEntry) (classify.Classifier, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifier[name] = factory
}

// RegisterResearch registers a research provider factory under name.
func (r *Registry) RegisterResearch(name string, factory func(ProviderEntry) (research.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.research[name] = factory
}

// RegisterVisual registers a visual generator factory under name.
func (r *Registry) RegisterVisual(name string, factory func(ProviderEntry) (visual.Generator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visual[name] = factory
}

// CreateLive instantiates a live provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if none is registered.
func (r *Registry) CreateLive(entry ProviderEntry) (live.Provider, error) {
	r.mu.RLock()
	factory, ok := r.live[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: live/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateClassifier instantiates a classifier using the factory registered
// under entry.Name.
func (r *Registry) CreateClassifier(entry ProviderEntry) (classify.Classifier, error) {
	r.mu.RLock()
	factory, ok := r.classifier[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: classifier/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateResearch instantiates a research provider using the factory
// registered under entry.Name.
func (r *Registry) CreateResearch(entry ProviderEntry) (research.Provider, error) {
	r.mu.RLock()
	factory, ok := r.research[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: research/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVisual instantiates a visual generator using the factory registered
// under entry.Name.
func (r *Registry) CreateVisual(entry ProviderEntry) (visual.Generator, error) {
	r.mu.RLock()
	factory, ok := r.visual[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: visual/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
