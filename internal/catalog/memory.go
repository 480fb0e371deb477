package catalog

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

// Memory is an in-process catalog with the same semantics as Postgres.
type Memory struct {
	mu          sync.RWMutex
	nextID      int64
	books       map[int64]search.Book
	status      map[int64]string
	byKey       map[string]int64
	byGutenberg map[int64]int64
	occurrences map[int64]search.OccurrenceIndex
	neighbors   map[int64][]int64
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		books:       make(map[int64]search.Book),
		status:      make(map[int64]string),
		byKey:       make(map[string]int64),
		byGutenberg: make(map[int64]int64),
		occurrences: make(map[int64]search.OccurrenceIndex),
		neighbors:   make(map[int64][]int64),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) InsertBook(_ context.Context, nb NewBook) (search.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nb.IdempotencyKey != "" {
		if id, ok := m.byKey[nb.IdempotencyKey]; ok {
			b := m.books[id]
			b.Content = ""
			return b, false, nil
		}
	}
	if nb.GutenbergID != 0 {
		if _, ok := m.byGutenberg[nb.GutenbergID]; ok {
			return search.Book{}, false, apperrors.Newf(apperrors.ErrBookExists, http.StatusConflict,
				"gutenberg id %d already stored", nb.GutenbergID)
		}
	}

	m.nextID++
	b := search.Book{
		ID:          m.nextID,
		GutenbergID: nb.GutenbergID,
		Title:       nb.Title,
		Author:      nb.Author,
		WordCount:   nb.WordCount,
		Content:     nb.Content,
		Summary:     nb.Summary,
	}
	m.books[b.ID] = b
	m.status[b.ID] = StatusPending
	if nb.IdempotencyKey != "" {
		m.byKey[nb.IdempotencyKey] = b.ID
	}
	if nb.GutenbergID != 0 {
		m.byGutenberg[nb.GutenbergID] = b.ID
	}
	return b, true, nil
}

func (m *Memory) GetBook(_ context.Context, id int64) (search.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return search.Book{}, apperrors.Newf(apperrors.ErrBookNotFound, http.StatusNotFound, "book %d", id)
	}
	return b, nil
}

// Status reports the indexing status of a book.
func (m *Memory) Status(id int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.status[id]
	return s, ok
}

func (m *Memory) UpsertOccurrences(_ context.Context, bookID int64, occ search.OccurrenceIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[bookID]; !ok {
		return apperrors.Newf(apperrors.ErrBookNotFound, http.StatusNotFound, "book %d", bookID)
	}
	m.occurrences[bookID] = maps.Clone(occ)
	m.status[bookID] = StatusIndexed
	return nil
}

// PutIndex stores an occurrence index without a backing book record. Used
// to seed fixtures and benchmarks.
func (m *Memory) PutIndex(bookID int64, occ search.OccurrenceIndex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occurrences[bookID] = maps.Clone(occ)
}

// PutBook stores b as is, keeping its id.
func (m *Memory) PutBook(b search.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	if _, ok := m.status[b.ID]; !ok {
		m.status[b.ID] = StatusPending
	}
	if b.ID > m.nextID {
		m.nextID = b.ID
	}
}

func (m *Memory) SaveNeighborhoods(_ context.Context, hoods []Neighborhood) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range hoods {
		m.neighbors[h.BookID] = slices.Clone(h.Neighbors)
		if b, ok := m.books[h.BookID]; ok {
			score := h.RankScore
			b.RankScore = &score
			m.books[h.BookID] = b
		}
	}
	return nil
}

func (m *Memory) ForEachBook(ctx context.Context, fn func(search.Book) error) error {
	m.mu.RLock()
	ids := slices.Sorted(maps.Keys(m.books))
	m.mu.RUnlock()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.RLock()
		b, ok := m.books[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) FetchAllOccurrenceIndices(context.Context) ([]search.IndexedBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]search.IndexedBook, 0, len(m.occurrences))
	for _, id := range slices.Sorted(maps.Keys(m.occurrences)) {
		out = append(out, search.IndexedBook{BookID: id, Occurrences: m.occurrences[id]})
	}
	return out, nil
}

func (m *Memory) FetchBookIDsHavingTerm(_ context.Context, term string) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := []int64{}
	for _, id := range slices.Sorted(maps.Keys(m.occurrences)) {
		if _, ok := m.occurrences[id][term]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Memory) FetchOccurrenceCount(_ context.Context, bookID int64, term string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.occurrences[bookID][term], nil
}

// FetchBooksByIDs omits book content, like the Postgres store.
func (m *Memory) FetchBooksByIDs(_ context.Context, ids []int64) ([]search.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]search.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			b.Content = ""
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) FetchNeighborList(_ context.Context, bookID int64) ([]int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.neighbors[bookID]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(n), true, nil
}
