package transcript

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the lecture_transcript table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS lecture_transcript (
    lecture_id TEXT NOT NULL,
    seq        BIGINT NOT NULL,
    speaker    TEXT NOT NULL,
    text       TEXT NOT NULL,
    slide_id   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (lecture_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_lecture_transcript_text
    ON lecture_transcript USING GIN (to_tsvector('english', text));
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Search uses full-text
// matching over the transcript text.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store using the given connection or pool. The
// caller is responsible for calling [PostgresStore.Migrate] before issuing
// queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("transcript: migrate: %w", err)
	}
	return nil
}

// Write implements [Store]. Seq is assigned atomically per lecture.
func (s *PostgresStore) Write(ctx context.Context, e Entry) error {
	const query = `
		INSERT INTO lecture_transcript (lecture_id, seq, speaker, text, slide_id)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4
		FROM lecture_transcript WHERE lecture_id = $1`

	if _, err := s.db.Exec(ctx, query, e.LectureID, string(e.Speaker), e.Text, e.SlideID); err != nil {
		return fmt.Errorf("transcript: write: %w", err)
	}
	return nil
}

// Recent implements [Store].
func (s *PostgresStore) Recent(ctx context.Context, lectureID string, n int) ([]Entry, error) {
	const query = `
		SELECT lecture_id, seq, speaker, text, slide_id, created_at
		FROM (
			SELECT lecture_id, seq, speaker, text, slide_id, created_at
			FROM lecture_transcript
			WHERE lecture_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) last
		ORDER BY seq ASC`

	rows, err := s.db.Query(ctx, query, lectureID, n)
	if err != nil {
		return nil, fmt.Errorf("transcript: recent: %w", err)
	}
	return scanEntries(rows)
}

// Search implements [Store].
func (s *PostgresStore) Search(ctx context.Context, lectureID, query string, limit int) ([]Entry, error) {
	const sql = `
		SELECT lecture_id, seq, speaker, text, slide_id, created_at
		FROM lecture_transcript
		WHERE lecture_id = $1
		  AND to_tsvector('english', text) @@ plainto_tsquery('english', $2)
		ORDER BY seq ASC
		LIMIT $3`

	rows, err := s.db.Query(ctx, sql, lectureID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: search: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var speaker string
		if err := rows.Scan(&e.LectureID, &e.Seq, &speaker, &e.Text, &e.SlideID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		e.Speaker = Speaker(speaker)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: rows: %w", err)
	}
	return out, nil
}
