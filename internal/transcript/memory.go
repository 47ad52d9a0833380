package transcript

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory [Store]. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	nextSeq map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
		nextSeq: make(map[string]int64),
	}
}

// Write implements [Store].
func (s *MemoryStore) Write(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq[e.LectureID]++
	e.Seq = s.nextSeq[e.LectureID]
	e.CreatedAt = time.Now()
	s.entries[e.LectureID] = append(s.entries[e.LectureID], e)
	return nil
}

// Recent implements [Store].
func (s *MemoryStore) Recent(_ context.Context, lectureID string, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[lectureID]
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Entry, n)
	copy(out, all[len(all)-n:])
	return out, nil
}

// Search implements [Store]. Matching is a case-insensitive substring test.
func (s *MemoryStore) Search(_ context.Context, lectureID, query string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []Entry
	for _, e := range s.entries[lectureID] {
		if strings.Contains(strings.ToLower(e.Text), needle) {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
