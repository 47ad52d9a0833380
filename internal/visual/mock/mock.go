// Package mock provides a hand-written mock [visual.Generator] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern/internal/visual"
)

// Compile-time assertion.
var _ visual.Generator = (*Generator)(nil)

// Generator is a mock implementation of [visual.Generator].
type Generator struct {
	mu sync.Mutex

	// Media is returned by Generate when Err is nil.
	Media visual.Media

	// Err is returned by Generate when set.
	Err error

	// Block, when non-nil, is closed by the test to release pending
	// Generate calls. Lets tests hold a generation in flight.
	Block chan struct{}

	// Prompts records every prompt passed to Generate.
	Prompts []string
}

func (g *Generator) Generate(ctx context.Context, prompt string, kind visual.Kind) (visual.Media, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	block := g.Block
	media, err := g.Media, g.Err
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return visual.Media{}, ctx.Err()
		}
	}
	if err != nil {
		return visual.Media{}, err
	}
	if media.Kind == "" {
		media.Kind = kind
	}
	return media, nil
}

// Calls returns the number of Generate invocations so far.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}
