// Package mock provides a hand-written mock [research.Provider] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern/internal/research"
)

// Compile-time assertion.
var _ research.Provider = (*Provider)(nil)

// Provider is a mock implementation of [research.Provider].
type Provider struct {
	mu sync.Mutex

	// Bundle is returned by Research when Err is nil.
	Bundle research.Bundle

	// Err is returned by Research when set.
	Err error

	// Block, when non-nil, is closed by the test to release pending
	// Research calls.
	Block chan struct{}

	// Questions records every question passed to Research.
	Questions []string
}

func (p *Provider) Research(ctx context.Context, question string) (research.Bundle, error) {
	p.mu.Lock()
	p.Questions = append(p.Questions, question)
	block := p.Block
	bundle, err := p.Bundle, p.Err
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return research.Bundle{}, ctx.Err()
		}
	}
	if err != nil {
		return research.Bundle{}, err
	}
	return bundle, nil
}

// Calls returns the number of Research invocations so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Questions)
}
