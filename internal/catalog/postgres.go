package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/resilience"
)

// Unique-violation SQLSTATE.
const pqUniqueViolation = "23505"

// Postgres is the catalog backed by lib/pq. Reads are retried behind a
// circuit breaker; writes share the breaker but are attempted once.
type Postgres struct {
	db     *postgres.Client
	read   *resilience.Policy
	write  *resilience.Policy
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

type PostgresOption func(*Postgres)

// WithBreakerObserver reports breaker transitions, typically to
// metrics.ObserveBreaker.
func WithBreakerObserver(fn func(name string, state int)) PostgresOption {
	return func(p *Postgres) {
		p.read.Breaker = resilience.NewCircuitBreaker("catalog", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) { fn(name, int(to)) },
		})
		p.write.Breaker = p.read.Breaker
	}
}

func NewPostgres(db *postgres.Client, opts ...PostgresOption) *Postgres {
	breaker := resilience.NewCircuitBreaker("catalog", resilience.CircuitBreakerConfig{})
	p := &Postgres{
		db: db,
		read: &resilience.Policy{
			Breaker: breaker,
			Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond},
			Timeout: db.QueryTimeout(),
		},
		write: &resilience.Policy{
			Breaker: breaker,
			Retry:   resilience.RetryConfig{MaxAttempts: 1},
			Timeout: db.QueryTimeout(),
		},
		logger: slog.Default().With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// FetchAllOccurrenceIndices returns every occurrence index ordered by book
// id, which is the scan order ties are broken by.
func (p *Postgres) FetchAllOccurrenceIndices(ctx context.Context) ([]search.IndexedBook, error) {
	var out []search.IndexedBook
	err := p.read.Do(ctx, "fetch_all_occurrences", func(ctx context.Context) error {
		out = out[:0]
		rows, err := p.db.DB.QueryContext(ctx,
			`SELECT book_id, occurrences FROM indexed_books ORDER BY book_id`)
		if err != nil {
			return fmt.Errorf("querying occurrence indices: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ib search.IndexedBook
			var raw []byte
			if err := rows.Scan(&ib.BookID, &raw); err != nil {
				return fmt.Errorf("scanning occurrence row: %w", err)
			}
			if err := json.Unmarshal(raw, &ib.Occurrences); err != nil {
				return fmt.Errorf("decoding occurrences of book %d: %w", ib.BookID, err)
			}
			out = append(out, ib)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchBookIDsHavingTerm uses the JSONB key-exists operator, served by the
// GIN index on occurrences.
func (p *Postgres) FetchBookIDsHavingTerm(ctx context.Context, term string) ([]int64, error) {
	var ids []int64
	err := p.read.Do(ctx, "fetch_ids_having_term", func(ctx context.Context) error {
		ids = ids[:0]
		rows, err := p.db.DB.QueryContext(ctx,
			`SELECT book_id FROM indexed_books WHERE occurrences ? $1 ORDER BY book_id`, term)
		if err != nil {
			return fmt.Errorf("querying books containing %q: %w", term, err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning book id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Postgres) FetchOccurrenceCount(ctx context.Context, bookID int64, term string) (int64, error) {
	var count int64
	err := p.read.Do(ctx, "fetch_occurrence_count", func(ctx context.Context) error {
		err := p.db.DB.QueryRowContext(ctx,
			`SELECT COALESCE((occurrences->>$2)::BIGINT, 0) FROM indexed_books WHERE book_id = $1`,
			bookID, term,
		).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			count = 0
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying count of %q in book %d: %w", term, bookID, err)
		}
		return nil
	})
	return count, err
}

// FetchBooksByIDs returns the requested books without their content, in no
// particular order.
func (p *Postgres) FetchBooksByIDs(ctx context.Context, ids []int64) ([]search.Book, error) {
	if len(ids) == 0 {
		return []search.Book{}, nil
	}
	var books []search.Book
	err := p.read.Do(ctx, "fetch_books", func(ctx context.Context) error {
		books = books[:0]
		rows, err := p.db.DB.QueryContext(ctx,
			`SELECT id, COALESCE(gutenberg_id, 0), title, author, word_count, '', summary, c_rank
			FROM books WHERE id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("querying %d books: %w", len(ids), err)
		}
		defer rows.Close()
		for rows.Next() {
			b, err := scanBook(rows)
			if err != nil {
				return err
			}
			books = append(books, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (p *Postgres) FetchNeighborList(ctx context.Context, bookID int64) ([]int64, bool, error) {
	var neighbors []int64
	found := false
	err := p.read.Do(ctx, "fetch_neighbors", func(ctx context.Context) error {
		var raw []byte
		err := p.db.DB.QueryRowContext(ctx,
			`SELECT neighbors FROM jaccard_neighbors WHERE book_id = $1`, bookID,
		).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying neighbors of book %d: %w", bookID, err)
		}
		if err := json.Unmarshal(raw, &neighbors); err != nil {
			return fmt.Errorf("decoding neighbors of book %d: %w", bookID, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return neighbors, found, nil
}

func (p *Postgres) GetBook(ctx context.Context, id int64) (search.Book, error) {
	var b search.Book
	err := p.read.Do(ctx, "get_book", func(ctx context.Context) error {
		row := p.db.DB.QueryRowContext(ctx,
			`SELECT id, COALESCE(gutenberg_id, 0), title, author, word_count, content, summary, c_rank
			FROM books WHERE id = $1`, id)
		var err error
		b, err = scanBook(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Newf(apperrors.ErrBookNotFound, http.StatusNotFound, "book %d", id)
		}
		return err
	})
	return b, err
}

func (p *Postgres) InsertBook(ctx context.Context, nb NewBook) (search.Book, bool, error) {
	if nb.IdempotencyKey != "" {
		if b, ok, err := p.findByIdempotencyKey(ctx, nb.IdempotencyKey); err != nil || ok {
			return b, false, err
		}
	}

	var id int64
	err := p.write.Do(ctx, "insert_book", func(ctx context.Context) error {
		return p.db.InTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx,
				`INSERT INTO books (gutenberg_id, title, author, word_count, content, summary, idempotency_key, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				nullableInt(nb.GutenbergID), nb.Title, nb.Author, nb.WordCount, nb.Content, nb.Summary,
				nullableString(nb.IdempotencyKey), StatusPending,
			).Scan(&id)
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
				if pqErr.Constraint == "books_idempotency_key_key" {
					return apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict, "idempotency key already in use")
				}
				return apperrors.Newf(apperrors.ErrBookExists, http.StatusConflict, "gutenberg id %d already stored", nb.GutenbergID)
			}
			return err
		})
	})
	if err != nil {
		return search.Book{}, false, fmt.Errorf("inserting book %q: %w", nb.Title, err)
	}
	p.logger.Info("book stored", "book_id", id, "title", nb.Title, "words", nb.WordCount)
	return search.Book{
		ID:          id,
		GutenbergID: nb.GutenbergID,
		Title:       nb.Title,
		Author:      nb.Author,
		WordCount:   nb.WordCount,
		Content:     nb.Content,
		Summary:     nb.Summary,
	}, true, nil
}

func (p *Postgres) findByIdempotencyKey(ctx context.Context, key string) (search.Book, bool, error) {
	var b search.Book
	found := false
	err := p.read.Do(ctx, "find_idempotency_key", func(ctx context.Context) error {
		row := p.db.DB.QueryRowContext(ctx,
			`SELECT id, COALESCE(gutenberg_id, 0), title, author, word_count, '', summary, c_rank
			FROM books WHERE idempotency_key = $1`, key)
		var err error
		b, err = scanBook(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying idempotency key: %w", err)
		}
		found = true
		return nil
	})
	return b, found, err
}

func (p *Postgres) UpsertOccurrences(ctx context.Context, bookID int64, occ search.OccurrenceIndex) error {
	raw, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("encoding occurrences of book %d: %w", bookID, err)
	}
	return p.write.Do(ctx, "upsert_occurrences", func(ctx context.Context) error {
		return p.db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO indexed_books (book_id, occurrences, indexed_at) VALUES ($1, $2, NOW())
				ON CONFLICT (book_id) DO UPDATE SET occurrences = EXCLUDED.occurrences, indexed_at = NOW()`,
				bookID, raw,
			); err != nil {
				return fmt.Errorf("upserting occurrences of book %d: %w", bookID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE books SET status = $2 WHERE id = $1`, bookID, StatusIndexed,
			); err != nil {
				return fmt.Errorf("marking book %d indexed: %w", bookID, err)
			}
			return nil
		})
	})
}

func (p *Postgres) SaveNeighborhoods(ctx context.Context, hoods []Neighborhood) error {
	// The whole pass is one transaction and can run well past a single
	// query's budget, so it only gets the breaker.
	return p.write.Breaker.Execute(func() error {
		return p.db.InTx(ctx, func(tx *sql.Tx) error {
			nstmt, err := tx.PrepareContext(ctx,
				`INSERT INTO jaccard_neighbors (book_id, neighbors, computed_at) VALUES ($1, $2, NOW())
				ON CONFLICT (book_id) DO UPDATE SET neighbors = EXCLUDED.neighbors, computed_at = NOW()`)
			if err != nil {
				return fmt.Errorf("preparing neighbor upsert: %w", err)
			}
			defer nstmt.Close()
			rstmt, err := tx.PrepareContext(ctx, `UPDATE books SET c_rank = $2 WHERE id = $1`)
			if err != nil {
				return fmt.Errorf("preparing rank update: %w", err)
			}
			defer rstmt.Close()

			for _, h := range hoods {
				neighbors := h.Neighbors
				if neighbors == nil {
					neighbors = []int64{}
				}
				raw, err := json.Marshal(neighbors)
				if err != nil {
					return fmt.Errorf("encoding neighbors of book %d: %w", h.BookID, err)
				}
				if _, err := nstmt.ExecContext(ctx, h.BookID, raw); err != nil {
					return fmt.Errorf("saving neighbors of book %d: %w", h.BookID, err)
				}
				if _, err := rstmt.ExecContext(ctx, h.BookID, h.RankScore); err != nil {
					return fmt.Errorf("saving rank of book %d: %w", h.BookID, err)
				}
			}
			p.logger.Info("neighborhoods saved", "books", len(hoods))
			return nil
		})
	})
}

// ForEachBook pages through books by id so the full corpus never sits in
// memory at once.
func (p *Postgres) ForEachBook(ctx context.Context, fn func(search.Book) error) error {
	const page = 50
	var after int64
	for {
		var batch []search.Book
		err := p.read.Do(ctx, "page_books", func(ctx context.Context) error {
			batch = batch[:0]
			rows, err := p.db.DB.QueryContext(ctx,
				`SELECT id, COALESCE(gutenberg_id, 0), title, author, word_count, content, summary, c_rank
				FROM books WHERE id > $1 ORDER BY id LIMIT $2`, after, page)
			if err != nil {
				return fmt.Errorf("paging books after %d: %w", after, err)
			}
			defer rows.Close()
			for rows.Next() {
				b, err := scanBook(rows)
				if err != nil {
					return err
				}
				batch = append(batch, b)
			}
			return rows.Err()
		})
		if err != nil {
			return err
		}
		for _, b := range batch {
			if err := fn(b); err != nil {
				return err
			}
		}
		if len(batch) < page {
			return nil
		}
		after = batch[len(batch)-1].ID
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (search.Book, error) {
	var b search.Book
	var rank sql.NullFloat64
	err := row.Scan(&b.ID, &b.GutenbergID, &b.Title, &b.Author, &b.WordCount, &b.Content, &b.Summary, &rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("scanning book: %w", err)
	}
	if rank.Valid {
		v := rank.Float64
		b.RankScore = &v
	}
	return b, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
