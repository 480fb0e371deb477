package catalog

import "context"

// Schema creates every table the services use. Each statement is
// idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id              BIGSERIAL PRIMARY KEY,
		gutenberg_id    BIGINT UNIQUE,
		title           TEXT NOT NULL,
		author          TEXT NOT NULL DEFAULT '',
		word_count      INTEGER NOT NULL DEFAULT 0,
		content         TEXT NOT NULL,
		summary         TEXT NOT NULL DEFAULT '',
		c_rank          DOUBLE PRECISION,
		idempotency_key TEXT UNIQUE,
		status          TEXT NOT NULL DEFAULT 'PENDING',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS indexed_books (
		book_id     BIGINT PRIMARY KEY REFERENCES books(id) ON DELETE CASCADE,
		occurrences JSONB NOT NULL,
		indexed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS indexed_books_occurrences_idx ON indexed_books USING GIN (occurrences)`,
	`CREATE TABLE IF NOT EXISTS jaccard_neighbors (
		book_id     BIGINT PRIMARY KEY REFERENCES books(id) ON DELETE CASCADE,
		neighbors   JSONB NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
		id          BIGSERIAL PRIMARY KEY,
		data        JSONB NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrator applies schema statements.
type Migrator interface {
	Migrate(ctx context.Context, statements []string) error
}

// EnsureSchema applies Schema through m.
func EnsureSchema(ctx context.Context, m Migrator) error {
	return m.Migrate(ctx, Schema)
}
