// Package transcript persists what was said during a lecture.
//
// Every text line — the tutor's narration and answers, the learner's
// questions — is appended as an [Entry] so a lecture can be reviewed after
// the fact. Two implementations exist: [MemoryStore] for tests and
// single-process runs, and [PostgresStore] for durable storage with
// full-text search.
package transcript

import (
	"context"
	"time"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerLearner Speaker = "learner"
	SpeakerTutor   Speaker = "tutor"
)

// Entry is one line of lecture transcript.
type Entry struct {
	// LectureID groups entries belonging to one lecture run.
	LectureID string `json:"lecture_id"`

	// Seq orders entries within a lecture. Assigned by the store on Write.
	Seq int64 `json:"seq"`

	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`

	// SlideID is the slide that was active when the line was spoken.
	// Empty when no slide context applies.
	SlideID string `json:"slide_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence interface for lecture transcripts.
type Store interface {
	// Write appends an entry. The store assigns Seq and CreatedAt.
	Write(ctx context.Context, e Entry) error

	// Recent returns the last n entries of a lecture in chronological order.
	Recent(ctx context.Context, lectureID string, n int) ([]Entry, error)

	// Search returns entries of a lecture whose text matches the query, in
	// chronological order.
	Search(ctx context.Context, lectureID, query string, limit int) ([]Entry, error)
}
