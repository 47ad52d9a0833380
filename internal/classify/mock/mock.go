// Package mock provides a hand-written mock [classify.Classifier] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern/internal/classify"
	"github.com/lectern-ai/lectern/internal/deck"
)

// Compile-time assertion.
var _ classify.Classifier = (*Classifier)(nil)

// Classifier is a mock implementation of [classify.Classifier].
// Set the exported fields before use; inspect the recorded calls after.
type Classifier struct {
	mu sync.Mutex

	// Category is returned by Classify when Err is nil.
	Category classify.Category

	// Err is returned by Classify when set.
	Err error

	// Block, when non-nil, is closed by the test to release pending
	// Classify calls. Lets tests hold a classification in flight.
	Block chan struct{}

	// Transcripts records every transcript passed to Classify.
	Transcripts []string
}

func (c *Classifier) Classify(ctx context.Context, transcript string, _ deck.Slide) (classify.Category, error) {
	c.mu.Lock()
	c.Transcripts = append(c.Transcripts, transcript)
	block := c.Block
	cat, err := c.Category, c.Err
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return cat, nil
}

// Calls returns the number of Classify invocations so far.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Transcripts)
}
